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
	"time"

	"tasksystem/utils/threadpool"
)

// prioritizedTask is an entry of the main-thread queue. The seq number makes
// ordering among equal priorities deterministic (earlier Schedule wins).
type prioritizedTask struct {
	fn       threadpool.TaskFunc
	priority TaskPriority
	seq      uint64
}

type priorityHeap []prioritizedTask

// ====================================
// Notice: Don't call those methods below directly! They are only called by heap package.

func (h priorityHeap) Len() int { return len(h) }
func (h priorityHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h priorityHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *priorityHeap) Push(x interface{}) {
	*h = append(*h, x.(prioritizedTask))
}

// Pop the last element of the slice.
func (h *priorityHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = prioritizedTask{} // avoid memory leak
	*h = old[0 : n-1]
	return x
}

// ====================================

// delayedTask is an entry of the delayed queue, ordered by execution time
// (earliest first), then by seq.
type delayedTask struct {
	fn          threadpool.TaskFunc
	executeTime time.Time
	priority    TaskPriority
	threadType  ThreadType
	seq         uint64
}

type delayedHeap []delayedTask

func (h delayedHeap) Len() int { return len(h) }
func (h delayedHeap) Less(i, j int) bool {
	if c := h[i].executeTime.Compare(h[j].executeTime); c != 0 {
		return c < 0
	}
	return h[i].seq < h[j].seq
}
func (h delayedHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *delayedHeap) Push(x interface{}) {
	*h = append(*h, x.(delayedTask))
}

func (h *delayedHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = delayedTask{}
	*h = old[0 : n-1]
	return x
}
