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

import (
	"container/heap"
	"sync"
	"time"

	"github.com/pingcap/log"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"tasksystem/pkg/metrics"
	"tasksystem/utils/threadpool"
)

// TaskScheduler routes work either to the main-thread priority queue or to
// the background thread pool, and keeps a delayed-task queue keyed by
// execution time.
//
// The main-thread queue is consumed only by ProcessMainThreadTasks, which the
// frame driver calls on the designated main goroutine. The delayed queue is
// consumed by whichever goroutine calls ProcessDelayedTasks.
//
// Background scheduling is deliberately priority-blind: priority is a
// main-thread concept, the pool serves its queues FIFO with stealing.
type TaskScheduler struct {
	name string
	pool *threadpool.ThreadPool

	mainMu   sync.Mutex
	mainHeap priorityHeap

	delayedMu   sync.Mutex
	delayedHeap delayedHeap

	seq     atomic.Uint64
	stopped atomic.Bool
}

// NewTaskScheduler binds the scheduler to a non-owning thread pool. The pool
// is shut down by its owner, not by the scheduler. queueCapacity preallocates
// the main-thread and delayed queues; non-positive means no preallocation.
func NewTaskScheduler(name string, pool *threadpool.ThreadPool, queueCapacity int) *TaskScheduler {
	if pool == nil {
		log.Panic("task scheduler requires a thread pool",
			zap.String("scheduler", name))
	}
	if queueCapacity < 0 {
		queueCapacity = 0
	}
	return &TaskScheduler{
		name:        name,
		pool:        pool,
		mainHeap:    make(priorityHeap, 0, queueCapacity),
		delayedHeap: make(delayedHeap, 0, queueCapacity),
	}
}

// Schedule enqueues the task for execution as soon as possible on the given
// thread type. It returns false when the scheduler (or the pool) is stopped,
// so the caller can settle whatever is waiting on the task instead of leaving
// it hanging.
func (s *TaskScheduler) Schedule(fn threadpool.TaskFunc, priority TaskPriority, threadType ThreadType) bool {
	if s.stopped.Load() {
		log.Warn("schedule on a stopped task scheduler, task dropped",
			zap.String("scheduler", s.name),
			zap.Stringer("priority", priority),
			zap.Stringer("threadType", threadType))
		return false
	}
	if threadType == ThreadTypeMain {
		s.mainMu.Lock()
		heap.Push(&s.mainHeap, prioritizedTask{
			fn:       fn,
			priority: priority,
			seq:      s.seq.Add(1),
		})
		s.mainMu.Unlock()
		metrics.MainThreadTaskGauge.WithLabelValues(s.name).Inc()
		return true
	}
	return s.pool.Submit(fn)
}

// ScheduleDelayed enqueues the task to run no earlier than now+delay. The
// task is promoted into the live queues by ProcessDelayedTasks, so how much
// later it actually runs is bounded by the driver's Update frequency.
func (s *TaskScheduler) ScheduleDelayed(fn threadpool.TaskFunc, delay time.Duration, priority TaskPriority, threadType ThreadType) bool {
	if s.stopped.Load() {
		log.Warn("schedule on a stopped task scheduler, task dropped",
			zap.String("scheduler", s.name))
		return false
	}
	s.delayedMu.Lock()
	heap.Push(&s.delayedHeap, delayedTask{
		fn:          fn,
		executeTime: time.Now().Add(delay),
		priority:    priority,
		threadType:  threadType,
		seq:         s.seq.Add(1),
	})
	s.delayedMu.Unlock()
	metrics.DelayedTaskGauge.WithLabelValues(s.name).Inc()
	return true
}

// ProcessMainThreadTasks drains the whole main-thread queue into a local
// buffer under the lock, then runs every task in priority order outside the
// lock. Running outside the lock matters: task bodies may re-enter Schedule,
// and anything they schedule waits for the next frame.
//
// Must be called only from the main thread.
func (s *TaskScheduler) ProcessMainThreadTasks() int {
	s.mainMu.Lock()
	var drained []prioritizedTask
	for s.mainHeap.Len() > 0 {
		drained = append(drained, heap.Pop(&s.mainHeap).(prioritizedTask))
	}
	s.mainMu.Unlock()

	if len(drained) == 0 {
		return 0
	}
	metrics.MainThreadTaskGauge.WithLabelValues(s.name).Sub(float64(len(drained)))
	for i := range drained {
		drained[i].fn()
	}
	return len(drained)
}

// ProcessDelayedTasks promotes every delayed task whose execution time has
// arrived into the live queues. A task is never dispatched before its
// execution time; it may run arbitrarily later.
func (s *TaskScheduler) ProcessDelayedTasks() int {
	now := time.Now()

	s.delayedMu.Lock()
	var due []delayedTask
	for s.delayedHeap.Len() > 0 && !s.delayedHeap[0].executeTime.After(now) {
		due = append(due, heap.Pop(&s.delayedHeap).(delayedTask))
	}
	s.delayedMu.Unlock()

	if len(due) == 0 {
		return 0
	}
	metrics.DelayedTaskGauge.WithLabelValues(s.name).Sub(float64(len(due)))
	metrics.PromotedTaskCounter.WithLabelValues(s.name).Add(float64(len(due)))
	for i := range due {
		s.Schedule(due[i].fn, due[i].priority, due[i].threadType)
	}
	return len(due)
}

// Shutdown marks the scheduler stopped and clears both queues. It does not
// touch the thread pool; the pool's owner shuts it down separately.
func (s *TaskScheduler) Shutdown() {
	if !s.stopped.CompareAndSwap(false, true) {
		return
	}

	s.mainMu.Lock()
	droppedMain := s.mainHeap.Len()
	s.mainHeap = nil
	s.mainMu.Unlock()

	s.delayedMu.Lock()
	droppedDelayed := s.delayedHeap.Len()
	s.delayedHeap = nil
	s.delayedMu.Unlock()

	if droppedMain > 0 {
		metrics.MainThreadTaskGauge.WithLabelValues(s.name).Sub(float64(droppedMain))
	}
	if droppedDelayed > 0 {
		metrics.DelayedTaskGauge.WithLabelValues(s.name).Sub(float64(droppedDelayed))
	}
	log.Info("task scheduler is shut down",
		zap.String("scheduler", s.name),
		zap.Int("droppedMainThreadTasks", droppedMain),
		zap.Int("droppedDelayedTasks", droppedDelayed))
}

func (s *TaskScheduler) IsStopped() bool {
	return s.stopped.Load()
}

// MainThreadTaskCount reports the number of tasks waiting for the next
// main-thread drain.
func (s *TaskScheduler) MainThreadTaskCount() int {
	s.mainMu.Lock()
	defer s.mainMu.Unlock()
	return s.mainHeap.Len()
}

// DelayedTaskCount reports the number of tasks in the delayed queue.
func (s *TaskScheduler) DelayedTaskCount() int {
	s.delayedMu.Lock()
	defer s.delayedMu.Unlock()
	return s.delayedHeap.Len()
}
