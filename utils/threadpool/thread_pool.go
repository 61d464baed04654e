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
	"runtime"
	"sync"
	"time"

	"github.com/pingcap/log"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"tasksystem/pkg/metrics"
)

const minThreadCount = 2

// ThreadPool runs tasks on a fixed set of worker goroutines, one TaskQueue
// per worker. Submission round-robins across the queues and idle workers
// steal from each other's tails.
//
// The pool is priority-agnostic: priority only exists for the main-thread
// queue at the scheduler layer, background work is served FIFO per owner
// with stealing on top.
type ThreadPool struct {
	name        string
	threadCount int
	queues      []*TaskQueue

	nextQueue atomic.Uint64
	stopped   atomic.Bool
	wg        sync.WaitGroup
}

// NewThreadPool spawns threadCount workers immediately. A non-positive
// threadCount means GOMAXPROCS, with a floor of two workers.
func NewThreadPool(name string, threadCount int) *ThreadPool {
	if threadCount <= 0 {
		threadCount = runtime.GOMAXPROCS(0)
	}
	if threadCount < minThreadCount {
		threadCount = minThreadCount
	}

	p := &ThreadPool{
		name:        name,
		threadCount: threadCount,
		queues:      make([]*TaskQueue, threadCount),
	}
	for i := 0; i < threadCount; i++ {
		p.queues[i] = NewTaskQueue()
	}
	for i := 0; i < threadCount; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
	log.Info("thread pool is created",
		zap.String("pool", name), zap.Int("threadCount", threadCount))
	return p
}

// Submit places the task on the next queue in round-robin order. A task
// submitted after Shutdown is dropped; the return value tells the caller so
// it can settle whatever was waiting on the task.
func (p *ThreadPool) Submit(task TaskFunc) bool {
	if p.stopped.Load() {
		log.Warn("submit to a stopped thread pool, task dropped",
			zap.String("pool", p.name))
		metrics.DroppedTaskCounter.WithLabelValues(p.name).Inc()
		return false
	}
	idx := p.nextQueue.Add(1) % uint64(p.threadCount)
	if !p.queues[idx].Push(task) {
		// Lost the race with Shutdown, the queue already refused it.
		log.Warn("submit to a stopped thread pool, task dropped",
			zap.String("pool", p.name))
		metrics.DroppedTaskCounter.WithLabelValues(p.name).Inc()
		return false
	}
	metrics.SubmittedTaskCounter.WithLabelValues(p.name).Inc()
	metrics.PendingTaskGauge.WithLabelValues(p.name).Inc()
	return true
}

// SubmitToThread pins the task to a specific worker's queue. The index is
// wrapped modulo the thread count.
func (p *ThreadPool) SubmitToThread(i int, task TaskFunc) bool {
	if p.stopped.Load() {
		log.Warn("submit to a stopped thread pool, task dropped",
			zap.String("pool", p.name), zap.Int("thread", i))
		metrics.DroppedTaskCounter.WithLabelValues(p.name).Inc()
		return false
	}
	if i < 0 {
		i = -i
	}
	if !p.queues[i%p.threadCount].Push(task) {
		log.Warn("submit to a stopped thread pool, task dropped",
			zap.String("pool", p.name), zap.Int("thread", i))
		metrics.DroppedTaskCounter.WithLabelValues(p.name).Inc()
		return false
	}
	metrics.SubmittedTaskCounter.WithLabelValues(p.name).Inc()
	metrics.PendingTaskGauge.WithLabelValues(p.name).Inc()
	return true
}

func (p *ThreadPool) workerLoop(i int) {
	defer p.wg.Done()

	own := p.queues[i]
	for {
		// Fast path, the worker's own queue.
		if task, ok := own.TryPop(); ok {
			p.runTask(task, false)
			continue
		}
		// Nothing local, go stealing.
		if task, ok := p.trySteal(i); ok {
			p.runTask(task, true)
			continue
		}
		// Block on the own queue. A false return means the queue is stopped
		// and drained, so the worker exits.
		task, ok := own.Pop()
		if !ok {
			return
		}
		p.runTask(task, false)
	}
}

// trySteal visits every other queue in round-robin offset order and takes
// from the tail of the first non-empty one.
func (p *ThreadPool) trySteal(self int) (TaskFunc, bool) {
	for off := 1; off < p.threadCount; off++ {
		victim := p.queues[(self+off)%p.threadCount]
		if task, ok := victim.TrySteal(); ok {
			return task, true
		}
	}
	return nil, false
}

func (p *ThreadPool) runTask(task TaskFunc, stolen bool) {
	start := time.Now()
	task()
	metrics.ExecutedTaskCounter.WithLabelValues(p.name).Inc()
	metrics.PendingTaskGauge.WithLabelValues(p.name).Dec()
	metrics.TaskExecuteDuration.WithLabelValues(p.name).Observe(time.Since(start).Seconds())
	if stolen {
		metrics.StolenTaskCounter.WithLabelValues(p.name).Inc()
	}
}

// Shutdown stops every queue and joins every worker. The transition happens
// exactly once; later calls are no-ops. Each worker drains its own queue
// before exiting, but not the queues of other workers.
func (p *ThreadPool) Shutdown() {
	if !p.stopped.CompareAndSwap(false, true) {
		return
	}
	for _, q := range p.queues {
		q.Stop()
	}
	p.wg.Wait()
	log.Info("thread pool is shut down",
		zap.String("pool", p.name),
		zap.Int("pendingTasks", p.PendingTaskCount()))
}

func (p *ThreadPool) IsStopped() bool {
	return p.stopped.Load()
}

// PendingTaskCount sums the sizes of all worker queues. It reaches zero
// during Shutdown: every accepted task is executed before its worker exits,
// and stopped queues refuse new tasks.
func (p *ThreadPool) PendingTaskCount() int {
	total := 0
	for _, q := range p.queues {
		total += q.Size()
	}
	return total
}

func (p *ThreadPool) ThreadCount() int {
	return p.threadCount
}
