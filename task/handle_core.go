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

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"tasksystem/pkg/apperror"
	"tasksystem/pkg/metrics"
)

// Handle is the type-erased view of a TaskHandle, enough for TaskGroup and
// other aggregators that do not care about the result type.
type Handle interface {
	ID() uuid.UUID
	Status() TaskStatus
	Err() error
	IsDone() bool
	IsCancelled() bool
	Cancel()
	Wait()
	Token() CancellationToken
}

// handleCore is the non-generic machinery shared by every TaskHandle[T]:
// status, error, completion signalling and the runner permit channels.
//
// The permit protocol: the task body runs on its own goroutine, but only
// while it holds a permit. A runner (pool worker or the main-thread drain)
// executes step(), which hands the permit over on resumeCh and then blocks
// on suspendCh until the body reaches its next suspension point or finishes.
// So one runner is occupied per running task segment, exactly as if the
// runner executed the segment itself.
type handleCore struct {
	id    uuid.UUID
	token CancellationToken
	stats *TaskStatistics

	status atomic.Int32

	errMu sync.Mutex
	err   error

	done     chan struct{}
	doneOnce sync.Once

	resumeCh  chan struct{}
	suspendCh chan struct{}

	managerName string
}

func newHandleCore(token CancellationToken, stats *TaskStatistics, managerName string) *handleCore {
	return &handleCore{
		id:          uuid.New(),
		token:       token,
		stats:       stats,
		done:        make(chan struct{}),
		resumeCh:    make(chan struct{}),
		suspendCh:   make(chan struct{}),
		managerName: managerName,
	}
}

// step lends the calling runner to the task until its next suspension point.
// It is the continuation the scheduler dispatches.
func (c *handleCore) step() {
	c.resumeCh <- struct{}{}
	<-c.suspendCh
}

func (c *handleCore) Status() TaskStatus {
	return TaskStatus(c.status.Load())
}

func (c *handleCore) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// settle moves the handle into a terminal status exactly once. beforeDone
// runs inside the once so a result value written there is published to
// waiters by the done-channel close.
func (c *handleCore) settle(status TaskStatus, err error, beforeDone func()) {
	c.doneOnce.Do(func() {
		if beforeDone != nil {
			beforeDone()
		}
		c.errMu.Lock()
		c.err = err
		c.errMu.Unlock()
		c.status.Store(int32(status))
		close(c.done)

		metrics.TaskStatusCounter.WithLabelValues(c.managerName, status.String()).Inc()
		if c.stats != nil {
			c.stats.recordTerminal(status)
		}
	})
}

// cancel settles the handle as Cancelled if it has not finished yet. A body
// that is mid-segment keeps running until it polls the token; its own
// settle attempt afterwards is a no-op.
func (c *handleCore) cancel() {
	if c.Status().IsTerminal() {
		return
	}
	c.token.Cancel()
	c.settle(StatusCancelled, apperror.ErrTaskCancelled.GenWithStackByArgs(), nil)
}
