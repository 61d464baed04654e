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
	"time"

	"github.com/pingcap/log"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"tasksystem/pkg/apperror"
	"tasksystem/pkg/config"
	"tasksystem/scheduler"
	"tasksystem/utils/threadpool"
)

// TaskManager is the façade of the task system. It owns the background
// thread pool and the task scheduler, and is driven by an external frame
// loop: the driver calls Update once per frame on the goroutine it has
// designated as the main thread. That same driver is the only party that
// should call Initialize and Shutdown.
//
// Managers are independent instances; tests can construct as many as they
// need. A process-wide default exists in task_manager_instance.go for
// callers that want the traditional singleton.
type TaskManager struct {
	name  string
	cfg   *config.TaskSystemConfig
	pool  *threadpool.ThreadPool
	sched *scheduler.TaskScheduler
	stats *TaskStatistics

	initialized atomic.Bool
	stopped     atomic.Bool
}

func NewTaskManager(cfg *config.TaskSystemConfig) *TaskManager {
	if cfg == nil {
		cfg = config.NewDefaultTaskSystemConfig()
	}
	return &TaskManager{
		name:  cfg.Name,
		cfg:   cfg,
		stats: &TaskStatistics{},
	}
}

// Initialize spawns the pool and binds the scheduler. Calling it twice logs
// a warning and is a no-op.
func (m *TaskManager) Initialize() {
	if !m.initialized.CompareAndSwap(false, true) {
		log.Warn("task manager is already initialized", zap.String("manager", m.name))
		return
	}
	m.pool = threadpool.NewThreadPool(m.name, m.cfg.NormalizedWorkerCount())
	m.sched = scheduler.NewTaskScheduler(m.name, m.pool, m.cfg.QueueCapacity)
	log.Info("task manager is initialized",
		zap.String("manager", m.name),
		zap.Int("workerCount", m.pool.ThreadCount()))
}

// Update promotes due delayed tasks and drains the main-thread queue. It
// must be called on the designated main goroutine, once per frame.
func (m *TaskManager) Update() {
	if !m.initialized.Load() || m.stopped.Load() {
		return
	}
	promoted := m.sched.ProcessDelayedTasks()
	m.stats.recordPromoted(promoted)
	m.sched.ProcessMainThreadTasks()
}

// Shutdown stops the scheduler and then the pool, exactly once. Pending and
// delayed tasks that never started are dropped; tasks already executing
// finish their current segment. Waiting for workers longer than the
// configured ShutdownTimeout logs a warning, but the workers are always
// joined. Shutdown without Initialize logs a warning and is a no-op.
func (m *TaskManager) Shutdown() {
	if !m.initialized.Load() {
		log.Warn("shutdown of a task manager that was never initialized",
			zap.String("manager", m.name))
		return
	}
	if !m.stopped.CompareAndSwap(false, true) {
		return
	}
	m.sched.Shutdown()
	m.shutdownPool()
	log.Info("task manager is shut down",
		zap.String("manager", m.name))
}

func (m *TaskManager) shutdownPool() {
	if m.cfg.ShutdownTimeout <= 0 {
		m.pool.Shutdown()
		return
	}
	done := make(chan struct{})
	go func() {
		m.pool.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(m.cfg.ShutdownTimeout):
		log.Warn("workers are still busy past the shutdown timeout, keep waiting",
			zap.String("manager", m.name),
			zap.Duration("shutdownTimeout", m.cfg.ShutdownTimeout))
		<-done
	}
}

func (m *TaskManager) IsStopped() bool {
	return m.stopped.Load()
}

func (m *TaskManager) Statistics() StatisticsSnapshot {
	return m.stats.Snapshot()
}

// Scheduler exposes the underlying scheduler for callers that work at the
// callable level rather than with Task values.
func (m *TaskManager) Scheduler() *scheduler.TaskScheduler {
	return m.sched
}

func (m *TaskManager) ready() bool {
	return m.initialized.Load() && !m.stopped.Load()
}

// Run schedules the task on the given thread type and returns its handle
// immediately. On a stopped or uninitialized manager the handle comes back
// already settled as Cancelled with ErrSchedulerStopped, so waiters are
// never left hanging.
func Run[T any](m *TaskManager, t *Task[T], priority scheduler.TaskPriority,
	threadType scheduler.ThreadType) *TaskHandle[T] {
	return RunWithToken(m, t, priority, threadType, NewCancellationToken())
}

// RunOnMainThread schedules the task onto the main-thread queue; it starts
// during one of the driver's Update calls.
func RunOnMainThread[T any](m *TaskManager, t *Task[T], priority scheduler.TaskPriority) *TaskHandle[T] {
	return Run(m, t, priority, scheduler.ThreadTypeMain)
}

// RunDelayed schedules the task to start no earlier than delay from now.
func RunDelayed[T any](m *TaskManager, t *Task[T], delay time.Duration,
	priority scheduler.TaskPriority, threadType scheduler.ThreadType) *TaskHandle[T] {
	return runInternal(m, t, delay, priority, threadType, NewCancellationToken())
}

// RunWithToken is Run with a caller-provided cancellation token, typically a
// TaskGroup's token.
func RunWithToken[T any](m *TaskManager, t *Task[T], priority scheduler.TaskPriority,
	threadType scheduler.ThreadType, token CancellationToken) *TaskHandle[T] {
	return runInternal(m, t, 0, priority, threadType, token)
}

func runInternal[T any](m *TaskManager, t *Task[T], delay time.Duration,
	priority scheduler.TaskPriority, threadType scheduler.ThreadType,
	token CancellationToken) *TaskHandle[T] {
	h := newTaskHandle(m, t, priority, threadType, token)
	m.stats.recordScheduled()

	if !t.consume() {
		h.core.settle(StatusFailed, apperror.ErrTaskConsumed.GenWithStackByArgs(), nil)
		return h
	}

	accepted := false
	if m.ready() {
		startFn := func() { h.start(m) }
		if delay > 0 {
			accepted = m.sched.ScheduleDelayed(startFn, delay, priority, threadType)
		} else {
			accepted = m.sched.Schedule(startFn, priority, threadType)
		}
	}
	if !accepted {
		m.stats.recordDropped()
		h.core.settle(StatusCancelled, apperror.ErrSchedulerStopped.GenWithStackByArgs(), nil)
	}
	return h
}
