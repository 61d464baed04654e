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

// TaskGroup aggregates handles for joint cancellation and joint wait. Tasks
// that should observe the group's cancellation must be started with the
// group's token, e.g. via RunWithToken(m, t, prio, tt, g.Token()).
//
// Add may race with CancelAll and WaitAll from other goroutines; the
// internal lock covers the handle list only, never the blocking waits.
type TaskGroup struct {
	mu      sync.Mutex
	handles []Handle
	token   CancellationToken
}

func NewTaskGroup() *TaskGroup {
	return &TaskGroup{token: NewCancellationToken()}
}

func (g *TaskGroup) Token() CancellationToken {
	return g.token
}

func (g *TaskGroup) Add(h Handle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handles = append(g.handles, h)
}

func (g *TaskGroup) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.handles)
}

// CancelAll cancels the shared token and every handle added so far. Handles
// added afterwards are not cancelled retroactively, but tasks started with
// the group's token still observe the raised flag.
func (g *TaskGroup) CancelAll() {
	g.token.Cancel()
	for _, h := range g.snapshot() {
		h.Cancel()
	}
}

// WaitAll blocks until every handle added so far is terminal. The handle
// list is snapshotted first so the lock is not held while waiting.
func (g *TaskGroup) WaitAll() {
	for _, h := range g.snapshot() {
		h.Wait()
	}
}

func (g *TaskGroup) snapshot() []Handle {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Handle, len(g.handles))
	copy(out, g.handles)
	return out
}
