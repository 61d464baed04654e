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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"tasksystem/pkg/apperror"
	"tasksystem/pkg/config"
	"tasksystem/scheduler"
)

// newTestManager builds an initialized manager plus a frame driver goroutine
// standing in for the application's main loop.
func newTestManager(t *testing.T) *TaskManager {
	cfg := config.NewDefaultTaskSystemConfig()
	cfg.Name = t.Name()
	cfg.WorkerCount = 2
	m := NewTaskManager(cfg)
	m.Initialize()

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.Update()
			}
		}
	}()
	t.Cleanup(func() {
		close(stop)
		m.Shutdown()
	})
	return m
}

func TestRunBackgroundTask(t *testing.T) {
	m := newTestManager(t)

	h := Run(m, NewTask(func(tc *Context) (int, error) {
		if tc.OnMainThread() {
			return 0, apperror.NewAppError(apperror.ErrorTypeUnknown, "started on main")
		}
		return 42, nil
	}), scheduler.PriorityNormal, scheduler.ThreadTypeBackground)

	v, err := h.GetResult()
	require.NoError(t, err)
	require.Equal(t, 42, v)
	require.Equal(t, StatusCompleted, h.Status())
	require.True(t, h.IsDone())
	require.False(t, h.IsCancelled())
}

func TestRunOnMainThread(t *testing.T) {
	m := newTestManager(t)

	h := RunOnMainThread(m, NewTask(func(tc *Context) (bool, error) {
		return tc.OnMainThread(), nil
	}), scheduler.PriorityNormal)

	onMain, err := h.GetResult()
	require.NoError(t, err)
	require.True(t, onMain)
}

func TestSwitchBetweenThreads(t *testing.T) {
	m := newTestManager(t)

	h := Run(m, NewTask(func(tc *Context) (int, error) {
		if tc.OnMainThread() {
			return 0, apperror.NewAppError(apperror.ErrorTypeUnknown, "started on main")
		}
		if err := SwitchToMainThread(tc); err != nil {
			return 0, err
		}
		if !tc.OnMainThread() {
			return 0, apperror.NewAppError(apperror.ErrorTypeUnknown, "hop to main failed")
		}
		// Already on main, this one must be a no-op.
		if err := SwitchToMainThread(tc); err != nil {
			return 0, err
		}
		if err := SwitchToBackground(tc, scheduler.PriorityHigh); err != nil {
			return 0, err
		}
		if tc.OnMainThread() {
			return 0, apperror.NewAppError(apperror.ErrorTypeUnknown, "hop to background failed")
		}
		if err := Yield(tc); err != nil {
			return 0, err
		}
		return 1, nil
	}), scheduler.PriorityNormal, scheduler.ThreadTypeBackground)

	v, err := h.GetResult()
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestRunDelayedFloor(t *testing.T) {
	m := newTestManager(t)

	const delay = 50 * time.Millisecond
	start := time.Now()
	h := RunDelayed(m, NewTask(func(tc *Context) (time.Duration, error) {
		return time.Since(start), nil
	}), delay, scheduler.PriorityNormal, scheduler.ThreadTypeBackground)

	elapsed, err := h.GetResult()
	require.NoError(t, err)
	require.GreaterOrEqual(t, elapsed, delay)
}

func TestDelayInsideTask(t *testing.T) {
	m := newTestManager(t)

	h := Run(m, NewTask(func(tc *Context) (time.Duration, error) {
		start := time.Now()
		if err := Delay(tc, 30*time.Millisecond, scheduler.ThreadTypeBackground); err != nil {
			return 0, err
		}
		return time.Since(start), nil
	}), scheduler.PriorityNormal, scheduler.ThreadTypeBackground)

	elapsed, err := h.GetResult()
	require.NoError(t, err)
	require.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}

func TestCancelPendingTask(t *testing.T) {
	cfg := config.NewDefaultTaskSystemConfig()
	cfg.Name = t.Name()
	cfg.WorkerCount = 2
	m := NewTaskManager(cfg)
	m.Initialize()
	defer m.Shutdown()

	// No driver: a main-thread task stays pending until Update runs.
	executed := atomic.NewBool(false)
	h := RunOnMainThread(m, NewTask(func(tc *Context) (int, error) {
		executed.Store(true)
		return 0, nil
	}), scheduler.PriorityNormal)

	require.Equal(t, StatusPending, h.Status())
	h.Cancel()
	require.Equal(t, StatusCancelled, h.Status())
	require.True(t, h.IsCancelled())

	// Even after the frame runs, a cancelled pending task never starts.
	m.Update()
	time.Sleep(20 * time.Millisecond)
	require.False(t, executed.Load())

	_, err := h.GetResult()
	require.Error(t, err)
	require.True(t, apperror.ErrTaskCancelled.Equal(err))
}

func TestCooperativeCancellation(t *testing.T) {
	m := newTestManager(t)

	started := make(chan struct{})
	h := Run(m, NewTask(func(tc *Context) (int, error) {
		close(started)
		for {
			if err := tc.CheckCancelled(); err != nil {
				return 0, err
			}
			if err := Yield(tc); err != nil {
				return 0, err
			}
		}
	}), scheduler.PriorityNormal, scheduler.ThreadTypeBackground)

	<-started
	h.Cancel()
	h.Wait()
	require.Equal(t, StatusCancelled, h.Status())
}

func TestRunOnStoppedManagerSettlesHandle(t *testing.T) {
	cfg := config.NewDefaultTaskSystemConfig()
	cfg.Name = t.Name()
	cfg.WorkerCount = 2
	m := NewTaskManager(cfg)
	m.Initialize()
	m.Shutdown()

	h := Run(m, NewTask(func(tc *Context) (int, error) { return 1, nil }),
		scheduler.PriorityNormal, scheduler.ThreadTypeBackground)

	// The handle must come back already settled so nobody waits forever.
	h.Wait()
	require.Equal(t, StatusCancelled, h.Status())
	_, err := h.GetResult()
	require.Error(t, err)
	require.True(t, apperror.ErrSchedulerStopped.Equal(err))
}

func TestRunOnUninitializedManagerSettlesHandle(t *testing.T) {
	m := NewTaskManager(nil)

	h := Run(m, NewTask(func(tc *Context) (int, error) { return 1, nil }),
		scheduler.PriorityNormal, scheduler.ThreadTypeBackground)
	h.Wait()
	require.Equal(t, StatusCancelled, h.Status())
}

func TestShutdownPastTimeoutStillJoinsWorkers(t *testing.T) {
	cfg := config.NewDefaultTaskSystemConfig()
	cfg.Name = t.Name()
	cfg.WorkerCount = 2
	cfg.ShutdownTimeout = time.Millisecond
	m := NewTaskManager(cfg)
	m.Initialize()

	started := make(chan struct{})
	h := Run(m, NewTask(func(tc *Context) (int, error) {
		close(started)
		time.Sleep(30 * time.Millisecond)
		return 1, nil
	}), scheduler.PriorityNormal, scheduler.ThreadTypeBackground)

	<-started
	// The segment outlives the timeout; Shutdown logs a warning but still
	// joins the worker, so the handle is settled when it returns.
	m.Shutdown()
	require.True(t, m.IsStopped())
	require.True(t, h.IsDone())

	v, err := h.GetResult()
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestManagerLifecycleIsForgiving(t *testing.T) {
	m := NewTaskManager(nil)
	// Shutdown before Initialize is a logged no-op.
	m.Shutdown()

	m.Initialize()
	// Double initialize is a logged no-op.
	m.Initialize()

	m.Shutdown()
	m.Shutdown()
	require.True(t, m.IsStopped())
}

func TestFailedTaskStatus(t *testing.T) {
	m := newTestManager(t)

	h := Run(m, NewTask(func(tc *Context) (int, error) {
		return 0, apperror.NewAppError(apperror.ErrorTypeUnknown, "deliberate")
	}), scheduler.PriorityNormal, scheduler.ThreadTypeBackground)

	_, err := h.GetResult()
	require.Error(t, err)
	require.Equal(t, StatusFailed, h.Status())
}

func TestPanickingTaskFails(t *testing.T) {
	m := newTestManager(t)

	h := Run(m, NewTask(func(tc *Context) (int, error) {
		panic("kaboom")
	}), scheduler.PriorityNormal, scheduler.ThreadTypeBackground)

	_, err := h.GetResult()
	require.Error(t, err)
	require.True(t, apperror.ErrTaskPanicked.Equal(err))
	require.Equal(t, StatusFailed, h.Status())
}

func TestTypedCancellationErrorSettlesCancelled(t *testing.T) {
	m := newTestManager(t)

	h := Run(m, NewTask(func(tc *Context) (int, error) {
		return 0, apperror.NewAppError(apperror.ErrorTypeCancelled, "caller gave up")
	}), scheduler.PriorityNormal, scheduler.ThreadTypeBackground)

	h.Wait()
	require.Equal(t, StatusCancelled, h.Status())
	require.True(t, h.IsCancelled())
}

func TestStatisticsCounts(t *testing.T) {
	m := newTestManager(t)

	h1 := Run(m, NewTask(func(tc *Context) (int, error) { return 1, nil }),
		scheduler.PriorityNormal, scheduler.ThreadTypeBackground)
	h2 := Run(m, NewTask(func(tc *Context) (int, error) { return 2, nil }),
		scheduler.PriorityNormal, scheduler.ThreadTypeBackground)
	h1.Wait()
	h2.Wait()

	stats := m.Statistics()
	require.Equal(t, int64(2), stats.Scheduled)
	require.Equal(t, int64(2), stats.Completed)
	require.Equal(t, int64(0), stats.Failed)
}

func TestAwaitInsideScheduledTask(t *testing.T) {
	m := newTestManager(t)

	h := Run(m, NewTask(func(tc *Context) (int, error) {
		a, err := Await(tc, NewTask(func(tc *Context) (int, error) {
			// The sub-task may suspend too; it shares the parent's runner.
			if err := Yield(tc); err != nil {
				return 0, err
			}
			return 10, nil
		}))
		if err != nil {
			return 0, err
		}
		b, err := Await(tc, NewTask(func(tc *Context) (int, error) { return 20, nil }))
		if err != nil {
			return 0, err
		}
		return a + b, nil
	}), scheduler.PriorityNormal, scheduler.ThreadTypeBackground)

	v, err := h.GetResult()
	require.NoError(t, err)
	require.Equal(t, 30, v)
}
