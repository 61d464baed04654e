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

import (
	"sync"
)

var taskManagerInstance *TaskManager
var once sync.Once

// GetTaskManagerInstance returns the process-wide default manager, lazily
// constructed and initialized. Prefer constructing managers explicitly and
// passing them around; the default exists for application code that follows
// the one-scheduler-per-process convention.
func GetTaskManagerInstance() *TaskManager {
	once.Do(func() {
		if taskManagerInstance == nil {
			taskManagerInstance = NewTaskManager(nil)
			taskManagerInstance.Initialize()
		}
	})
	return taskManagerInstance
}

// SetTaskManagerInstance replaces the default manager. It must be called
// during startup (or test setup), before any goroutine may reach
// GetTaskManagerInstance.
func SetTaskManagerInstance(m *TaskManager) {
	taskManagerInstance = m
}
