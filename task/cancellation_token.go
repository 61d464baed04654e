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

	"tasksystem/pkg/apperror"
)

// CancellationToken is a shared one-way flag for cooperative cancellation.
// Copies of a token observe the same flag. Cancellation cannot interrupt a
// running task body; the body has to poll the token at convenient points.
type CancellationToken struct {
	flag *atomic.Bool
}

func NewCancellationToken() CancellationToken {
	return CancellationToken{flag: atomic.NewBool(false)}
}

// Cancel raises the flag. It is idempotent and the flag is never reset.
func (t CancellationToken) Cancel() {
	if t.flag != nil {
		t.flag.Store(true)
	}
}

func (t CancellationToken) IsCancelled() bool {
	return t.flag != nil && t.flag.Load()
}

// CheckCancelled returns ErrTaskCancelled iff the token is cancelled at call
// time. Task bodies return that error to unwind, which settles the handle as
// Cancelled.
func (t CancellationToken) CheckCancelled() error {
	if t.IsCancelled() {
		return apperror.ErrTaskCancelled.GenWithStackByArgs()
	}
	return nil
}
