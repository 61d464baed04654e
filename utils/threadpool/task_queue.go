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

package threadpool

import (
	"sync"
)

// TaskFunc is the unit of work handled by the thread pool. A TaskFunc is
// owned by exactly one queue at a time; once popped it is never re-enqueued
// by the queue itself.
type TaskFunc func()

// TaskQueue is the per-worker double-ended task queue.
//
// The owning worker consumes from the head (FIFO), thieves take from the
// tail. Splitting the two ends keeps a worker's own progress and stealing
// from contending on the same element.
type TaskQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []TaskFunc
	stopped bool
}

func NewTaskQueue() *TaskQueue {
	q := &TaskQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends the task to the tail and wakes one waiter. It never blocks.
// A stopped queue rejects the task; its owner may already have exited, so
// accepting it would strand the task forever.
func (q *TaskQueue) Push(task TaskFunc) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return false
	}
	q.tasks = append(q.tasks, task)
	q.cond.Signal()
	return true
}

// Pop removes the head task, blocking until one is available. It returns
// false only when the queue is stopped and fully drained, so a stopped queue
// still hands out its remaining tasks first.
func (q *TaskQueue) Pop() (TaskFunc, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if len(q.tasks) > 0 {
			return q.popHeadLocked(), true
		}
		if q.stopped {
			return nil, false
		}
		q.cond.Wait()
	}
}

// TryPop is the non-blocking head removal used by the owning worker.
func (q *TaskQueue) TryPop() (TaskFunc, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil, false
	}
	return q.popHeadLocked(), true
}

// TrySteal is the non-blocking tail removal used by other workers.
func (q *TaskQueue) TrySteal() (TaskFunc, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.tasks)
	if n == 0 {
		return nil, false
	}
	task := q.tasks[n-1]
	q.tasks[n-1] = nil
	q.tasks = q.tasks[:n-1]
	return task, true
}

// Stop is idempotent. It wakes every blocked Pop caller; those callers drain
// the remaining tasks before reporting the queue empty.
func (q *TaskQueue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopped = true
	q.cond.Broadcast()
}

func (q *TaskQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *TaskQueue) Empty() bool {
	return q.Size() == 0
}

func (q *TaskQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = nil
}

func (q *TaskQueue) popHeadLocked() TaskFunc {
	task := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	if len(q.tasks) == 0 {
		// Reset so the backing array does not grow without bound.
		q.tasks = nil
	}
	return task
}
