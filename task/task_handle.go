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
	"github.com/google/uuid"

	"tasksystem/pkg/apperror"
	"tasksystem/scheduler"
)

// TaskHandle tracks one scheduled Task: status, error, result and
// completion. The scheduler's closures hold the handle strongly, so the
// handle stays alive for the task's whole run whether or not the caller
// keeps its reference.
type TaskHandle[T any] struct {
	core *handleCore
	task *Task[T]

	priority   scheduler.TaskPriority
	threadType scheduler.ThreadType

	// result is written inside the settle once and published to waiters by
	// the done-channel close.
	result T
}

func newTaskHandle[T any](m *TaskManager, t *Task[T], priority scheduler.TaskPriority,
	threadType scheduler.ThreadType, token CancellationToken) *TaskHandle[T] {
	return &TaskHandle[T]{
		core:       newHandleCore(token, m.stats, m.name),
		task:       t,
		priority:   priority,
		threadType: threadType,
	}
}

func (h *TaskHandle[T]) ID() uuid.UUID            { return h.core.id }
func (h *TaskHandle[T]) Status() TaskStatus       { return h.core.Status() }
func (h *TaskHandle[T]) Err() error               { return h.core.Err() }
func (h *TaskHandle[T]) Token() CancellationToken { return h.core.token }

func (h *TaskHandle[T]) IsDone() bool {
	return h.core.Status().IsTerminal()
}

func (h *TaskHandle[T]) IsCancelled() bool {
	return h.core.Status() == StatusCancelled
}

// Cancel requests cooperative cancellation. A Pending task never starts; a
// Running one keeps executing until its body polls the token. Terminal
// handles are left untouched.
func (h *TaskHandle[T]) Cancel() {
	h.core.cancel()
}

// Wait blocks until the handle reaches a terminal status.
func (h *TaskHandle[T]) Wait() {
	<-h.core.done
}

// GetResult waits for completion and returns the produced value, or the
// error the task settled with.
func (h *TaskHandle[T]) GetResult() (T, error) {
	h.Wait()
	var zero T
	if err := h.core.Err(); err != nil {
		return zero, err
	}
	return h.result, nil
}

// start is the closure the manager schedules. It runs on whatever runner the
// scheduler dispatched it to and lends that runner to the body's first
// segment.
func (h *TaskHandle[T]) start(m *TaskManager) {
	if !h.core.status.CompareAndSwap(int32(StatusPending), int32(StatusRunning)) {
		// Cancelled before it ever ran.
		return
	}
	tc := &Context{
		core:       h.core,
		manager:    m,
		token:      h.core.token,
		threadType: h.threadType,
		priority:   h.priority,
	}
	go h.run(tc)
	h.core.step()
}

// run is the task goroutine. It waits for the first permit, executes the
// body to completion, settles the handle and releases the final runner.
func (h *TaskHandle[T]) run(tc *Context) {
	<-h.core.resumeCh

	v, err := runBody(h.task.body, tc)
	if err == nil {
		h.core.settle(StatusCompleted, nil, func() { h.result = v })
	} else {
		switch apperror.ErrorTypeOf(err) {
		case apperror.ErrorTypeCancelled, apperror.ErrorTypeStopped:
			h.core.settle(StatusCancelled, err, nil)
		default:
			h.core.settle(StatusFailed, err, nil)
		}
	}

	h.core.suspendCh <- struct{}{}
}
