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

package task

// TaskStatus is the lifecycle state of a TaskHandle. Completed, Failed and
// Cancelled are terminal; a handle never leaves a terminal status.
type TaskStatus int32

const (
	StatusPending   TaskStatus = 0
	StatusRunning   TaskStatus = 1
	StatusCompleted TaskStatus = 2
	StatusFailed    TaskStatus = 3
	StatusCancelled TaskStatus = 4
)

func (s TaskStatus) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusRunning:
		return "Running"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}
