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
	"go.uber.org/atomic"
)

// TaskStatistics keeps cheap atomic counters about a manager's tasks. It is
// observability only, nothing reads it to make decisions. The same numbers
// are exported through pkg/metrics for prometheus scraping.
type TaskStatistics struct {
	scheduled atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	cancelled atomic.Int64
	dropped   atomic.Int64
	promoted  atomic.Int64
}

// StatisticsSnapshot is a point-in-time copy of the counters.
type StatisticsSnapshot struct {
	Scheduled int64
	Completed int64
	Failed    int64
	Cancelled int64
	Dropped   int64
	Promoted  int64
}

func (s *TaskStatistics) recordScheduled() {
	s.scheduled.Inc()
}

func (s *TaskStatistics) recordDropped() {
	s.dropped.Inc()
}

func (s *TaskStatistics) recordPromoted(n int) {
	if n > 0 {
		s.promoted.Add(int64(n))
	}
}

func (s *TaskStatistics) recordTerminal(status TaskStatus) {
	switch status {
	case StatusCompleted:
		s.completed.Inc()
	case StatusFailed:
		s.failed.Inc()
	case StatusCancelled:
		s.cancelled.Inc()
	}
}

func (s *TaskStatistics) Snapshot() StatisticsSnapshot {
	return StatisticsSnapshot{
		Scheduled: s.scheduled.Load(),
		Completed: s.completed.Load(),
		Failed:    s.failed.Load(),
		Cancelled: s.cancelled.Load(),
		Dropped:   s.dropped.Load(),
		Promoted:  s.promoted.Load(),
	}
}
