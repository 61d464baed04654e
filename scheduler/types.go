// Copyright 2024 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package scheduler

import "fmt"

// TaskPriority orders tasks inside the main-thread queue. A higher value is
// served first. Background submission ignores priority, see TaskScheduler.
type TaskPriority int

const (
	PriorityLow      TaskPriority = 0
	PriorityNormal   TaskPriority = 1
	PriorityHigh     TaskPriority = 2
	PriorityCritical TaskPriority = 3
)

func (p TaskPriority) String() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityNormal:
		return "Normal"
	case PriorityHigh:
		return "High"
	case PriorityCritical:
		return "Critical"
	default:
		return fmt.Sprintf("TaskPriority(%d)", int(p))
	}
}

// ThreadType selects where a task runs: the background pool or the single
// designated main thread drained by the frame driver.
type ThreadType int

const (
	ThreadTypeBackground ThreadType = 0
	ThreadTypeMain       ThreadType = 1
)

func (t ThreadType) String() string {
	switch t {
	case ThreadTypeBackground:
		return "Background"
	case ThreadTypeMain:
		return "Main"
	default:
		return fmt.Sprintf("ThreadType(%d)", int(t))
	}
}
