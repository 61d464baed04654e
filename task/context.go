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
	"runtime"
	"time"

	"tasksystem/pkg/apperror"
	"tasksystem/scheduler"
	"tasksystem/utils/threadpool"
)

// Context is the execution context handed to a task body. It tracks which
// thread category the body is currently running on and carries the
// cancellation token.
//
// A Context is only valid inside the body it was handed to; it must not be
// retained or shared across tasks. Await passes the parent's context into a
// sub-task body, which is how awaiting chains without a thread hop.
type Context struct {
	core    *handleCore
	manager *TaskManager
	token   CancellationToken

	threadType scheduler.ThreadType
	priority   scheduler.TaskPriority

	// inline marks a context created by Task.GetResult: suspension points
	// degrade to synchronous behavior on the calling goroutine.
	inline bool
}

func (tc *Context) Token() CancellationToken         { return tc.token }
func (tc *Context) ThreadType() scheduler.ThreadType { return tc.threadType }
func (tc *Context) Priority() scheduler.TaskPriority { return tc.priority }
func (tc *Context) OnMainThread() bool               { return tc.threadType == scheduler.ThreadTypeMain }

// CheckCancelled is the polling point for cooperative cancellation. Bodies
// should call it between work segments and return the error as-is.
func (tc *Context) CheckCancelled() error {
	return tc.token.CheckCancelled()
}

// suspend parks the body: the continuation is enqueued first, then the
// current runner is released, then the body blocks until the next runner
// delivers a permit. A false from enqueue means the scheduler is stopped;
// the body gets ErrSchedulerStopped and is expected to unwind.
func (tc *Context) suspend(enqueue func(threadpool.TaskFunc) bool, next scheduler.ThreadType) error {
	if !enqueue(tc.core.step) {
		return apperror.ErrSchedulerStopped.GenWithStackByArgs()
	}
	tc.threadType = next
	tc.core.suspendCh <- struct{}{}
	<-tc.core.resumeCh
	return nil
}

// SwitchToMainThread moves the rest of the body onto the main-thread queue.
// Already being on the main thread makes it a no-op, avoiding a pointless
// one-frame hop.
func SwitchToMainThread(tc *Context) error {
	if tc.inline || tc.OnMainThread() {
		return nil
	}
	return tc.suspend(func(fn threadpool.TaskFunc) bool {
		return tc.manager.sched.Schedule(fn, scheduler.PriorityNormal, scheduler.ThreadTypeMain)
	}, scheduler.ThreadTypeMain)
}

// SwitchToBackground moves the rest of the body onto the background pool at
// the given priority. It always suspends, even when already on a worker.
func SwitchToBackground(tc *Context, priority scheduler.TaskPriority) error {
	if tc.inline {
		return nil
	}
	return tc.suspend(func(fn threadpool.TaskFunc) bool {
		return tc.manager.sched.Schedule(fn, priority, scheduler.ThreadTypeBackground)
	}, scheduler.ThreadTypeBackground)
}

// Delay resumes the body on the given thread type no earlier than d from
// now. Non-positive durations return immediately.
func Delay(tc *Context, d time.Duration, threadType scheduler.ThreadType) error {
	if d <= 0 {
		return nil
	}
	if tc.inline {
		time.Sleep(d)
		return nil
	}
	return tc.suspend(func(fn threadpool.TaskFunc) bool {
		return tc.manager.sched.ScheduleDelayed(fn, d, scheduler.PriorityNormal, threadType)
	}, threadType)
}

// DelayMs delays on the current thread category.
func DelayMs(tc *Context, ms int64) error {
	return Delay(tc, time.Duration(ms)*time.Millisecond, tc.threadType)
}

// DelaySec delays on the current thread category.
func DelaySec(tc *Context, sec float64) error {
	return Delay(tc, time.Duration(sec*float64(time.Second)), tc.threadType)
}

// Yield reschedules the body on its current thread category at low priority
// so other ready work runs first.
func Yield(tc *Context) error {
	if tc.inline {
		runtime.Gosched()
		return nil
	}
	tt := tc.threadType
	return tc.suspend(func(fn threadpool.TaskFunc) bool {
		return tc.manager.sched.Schedule(fn, scheduler.PriorityLow, tt)
	}, tt)
}
