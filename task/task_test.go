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

	"tasksystem/pkg/apperror"
)

func TestTaskValueRoundTrip(t *testing.T) {
	task := NewTask(func(tc *Context) (int, error) {
		return 21 * 2, nil
	})
	v, err := task.GetResult()
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestTaskNestedAwait(t *testing.T) {
	parent := NewTask(func(tc *Context) (int, error) {
		a, err := Await(tc, NewTask(func(tc *Context) (int, error) { return 10, nil }))
		if err != nil {
			return 0, err
		}
		b, err := Await(tc, NewTask(func(tc *Context) (int, error) { return 20, nil }))
		if err != nil {
			return 0, err
		}
		return a + b, nil
	})
	v, err := parent.GetResult()
	require.NoError(t, err)
	require.Equal(t, 30, v)
}

func TestTaskSingleConsumption(t *testing.T) {
	task := NewTask(func(tc *Context) (int, error) { return 1, nil })
	_, err := task.GetResult()
	require.NoError(t, err)

	_, err = task.GetResult()
	require.Error(t, err)
	require.True(t, apperror.ErrTaskConsumed.Equal(err))
}

func TestTaskPanicBecomesError(t *testing.T) {
	task := NewTask(func(tc *Context) (int, error) {
		panic("boom")
	})
	_, err := task.GetResult()
	require.Error(t, err)
	require.True(t, apperror.ErrTaskPanicked.Equal(err))
}

func TestTaskAwaitErrorPropagates(t *testing.T) {
	parent := NewTask(func(tc *Context) (int, error) {
		return Await(tc, NewTask(func(tc *Context) (int, error) {
			return 0, apperror.ErrTaskCancelled.GenWithStackByArgs()
		}))
	})
	_, err := parent.GetResult()
	require.Error(t, err)
	require.True(t, apperror.ErrTaskCancelled.Equal(err))
}

func TestVoidTask(t *testing.T) {
	ran := false
	task := NewVoidTask(func(tc *Context) error {
		ran = true
		return nil
	})
	_, err := task.GetResult()
	require.NoError(t, err)
	require.True(t, ran)
}

func TestInlineAwaitablesAreSynchronous(t *testing.T) {
	task := NewTask(func(tc *Context) (int, error) {
		// Outside a scheduler these are no-ops or plain sleeps.
		if err := SwitchToMainThread(tc); err != nil {
			return 0, err
		}
		if err := Yield(tc); err != nil {
			return 0, err
		}
		start := time.Now()
		if err := DelayMs(tc, 20); err != nil {
			return 0, err
		}
		if time.Since(start) < 20*time.Millisecond {
			return 0, apperror.NewAppError(apperror.ErrorTypeUnknown, "delay returned early")
		}
		return 7, nil
	})
	v, err := task.GetResult()
	require.NoError(t, err)
	require.Equal(t, 7, v)
}
