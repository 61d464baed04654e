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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SubmittedTaskCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tasksystem",
			Subsystem: "threadpool",
			Name:      "task_submit",
			Help:      "The total number of tasks submitted to the thread pool",
		}, []string{"pool"})
	ExecutedTaskCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tasksystem",
			Subsystem: "threadpool",
			Name:      "task_execute",
			Help:      "The total number of tasks executed by the thread pool",
		}, []string{"pool"})
	StolenTaskCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tasksystem",
			Subsystem: "threadpool",
			Name:      "task_steal",
			Help:      "The total number of tasks taken from another worker's queue",
		}, []string{"pool"})
	DroppedTaskCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tasksystem",
			Subsystem: "threadpool",
			Name:      "task_drop",
			Help:      "The total number of tasks dropped after shutdown",
		}, []string{"pool"})
	PendingTaskGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tasksystem",
			Subsystem: "threadpool",
			Name:      "task_pending",
			Help:      "The current number of tasks waiting in worker queues",
		}, []string{"pool"})
	TaskExecuteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tasksystem",
			Subsystem: "threadpool",
			Name:      "task_execute_duration",
			Help:      "Histogram of the execution duration of one task segment in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 18),
		}, []string{"pool"})

	MainThreadTaskGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tasksystem",
			Subsystem: "scheduler",
			Name:      "main_thread_task",
			Help:      "The current number of tasks waiting for the main-thread drain",
		}, []string{"scheduler"})
	DelayedTaskGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tasksystem",
			Subsystem: "scheduler",
			Name:      "delayed_task",
			Help:      "The current number of tasks waiting in the delayed queue",
		}, []string{"scheduler"})
	PromotedTaskCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tasksystem",
			Subsystem: "scheduler",
			Name:      "delayed_task_promote",
			Help:      "The total number of delayed tasks promoted into the live queues",
		}, []string{"scheduler"})

	TaskStatusCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tasksystem",
			Subsystem: "manager",
			Name:      "task_status",
			Help:      "The total number of task handles entering each terminal status",
		}, []string{"manager", "status"})
)

// InitTaskSystemMetrics registers all metrics used by the task system.
func InitTaskSystemMetrics(registry *prometheus.Registry) {
	registry.MustRegister(SubmittedTaskCounter)
	registry.MustRegister(ExecutedTaskCounter)
	registry.MustRegister(StolenTaskCounter)
	registry.MustRegister(DroppedTaskCounter)
	registry.MustRegister(PendingTaskGauge)
	registry.MustRegister(TaskExecuteDuration)

	registry.MustRegister(MainThreadTaskGauge)
	registry.MustRegister(DelayedTaskGauge)
	registry.MustRegister(PromotedTaskCounter)

	registry.MustRegister(TaskStatusCounter)
}
