package config

import (
	"runtime"
	"time"
)

const (
	// The minimum number of worker goroutines in the background pool.
	minWorkerCount = 2
	// Default capacity hint for the scheduler's heaps.
	defaultQueueCapacity = 4096

	defaultShutdownTimeout = 10 * time.Second
)

type TaskSystemConfig struct {
	// The number of worker goroutines in the background thread pool.
	// Zero or negative means GOMAXPROCS, with a floor of two workers.
	WorkerCount int
	// The name used in log lines and metric labels for this instance.
	Name string
	// Capacity hint for the main-thread and delayed-task queues.
	QueueCapacity int
	// The maximum time Shutdown waits for workers to finish their current
	// task segment before logging a warning. Workers are always joined.
	ShutdownTimeout time.Duration
}

func NewDefaultTaskSystemConfig() *TaskSystemConfig {
	return &TaskSystemConfig{
		WorkerCount:     defaultWorkerCount(),
		Name:            "default",
		QueueCapacity:   defaultQueueCapacity,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

func defaultWorkerCount() int {
	n := runtime.GOMAXPROCS(0)
	if n < minWorkerCount {
		n = minWorkerCount
	}
	return n
}

// NormalizedWorkerCount applies the zero/negative default and the floor.
func (c *TaskSystemConfig) NormalizedWorkerCount() int {
	if c.WorkerCount <= 0 {
		return defaultWorkerCount()
	}
	if c.WorkerCount < minWorkerCount {
		return minWorkerCount
	}
	return c.WorkerCount
}
