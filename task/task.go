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
	"github.com/pingcap/log"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"tasksystem/pkg/apperror"
	"tasksystem/scheduler"
)

// Task is a lazily started computation producing T or an error. Nothing runs
// at construction; the body executes when the task is handed to Run (through
// a TaskManager), awaited from another body, or pumped with GetResult.
//
// A Task is single-consumption: starting or running it a second time yields
// ErrTaskConsumed.
type Task[T any] struct {
	body     func(*Context) (T, error)
	consumed atomic.Bool
}

func NewTask[T any](body func(*Context) (T, error)) *Task[T] {
	if body == nil {
		log.Panic("task body must not be nil")
	}
	return &Task[T]{body: body}
}

// NewVoidTask adapts a result-less body.
func NewVoidTask(body func(*Context) error) *Task[struct{}] {
	if body == nil {
		log.Panic("task body must not be nil")
	}
	return &Task[struct{}]{body: func(tc *Context) (struct{}, error) {
		return struct{}{}, body(tc)
	}}
}

func (t *Task[T]) consume() bool {
	return t.consumed.CompareAndSwap(false, true)
}

// GetResult runs the task to completion synchronously on the calling
// goroutine, without any scheduler involvement: thread switches are no-ops,
// Delay sleeps in place and Yield gives up the processor briefly. It is the
// escape hatch for code outside the task world, such as tests and startup
// paths. Do not call it from inside a task body; use Await there.
func (t *Task[T]) GetResult() (T, error) {
	var zero T
	if !t.consume() {
		return zero, apperror.ErrTaskConsumed.GenWithStackByArgs()
	}
	tc := &Context{
		token:      NewCancellationToken(),
		threadType: scheduler.ThreadTypeBackground,
		priority:   scheduler.PriorityNormal,
		inline:     true,
	}
	return runBody(t.body, tc)
}

// Await runs a sub-task inline on the caller's goroutine and runner, sharing
// the parent's context. Suspension inside the sub-task therefore suspends
// the parent, exactly like chaining coroutines without a thread hop. The
// sub-task's error propagates unchanged, so a cancelled sub-task unwinds its
// parent too unless the parent handles the error.
func Await[T any](tc *Context, t *Task[T]) (T, error) {
	var zero T
	if !t.consume() {
		return zero, apperror.ErrTaskConsumed.GenWithStackByArgs()
	}
	return runBody(t.body, tc)
}

// runBody executes a body with panic containment. A panicking body is a
// programming error; it is logged loudly and surfaced as ErrTaskPanicked.
func runBody[T any](body func(*Context) (T, error), tc *Context) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("task body panicked",
				zap.Any("panic", r), zap.Stack("stack"))
			var zero T
			result = zero
			err = apperror.ErrTaskPanicked.GenWithStackByArgs(r)
		}
	}()
	return body(tc)
}
