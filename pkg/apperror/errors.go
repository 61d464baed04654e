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

package apperror

import (
	"fmt"

	"github.com/pingcap/errors"
)

var (
	// ErrTaskCancelled is returned by CancellationToken.CheckCancelled and
	// surfaces through TaskHandle.GetResult for cancelled tasks.
	ErrTaskCancelled = errors.Normalize(
		"task is cancelled",
		errors.RFCCodeText("TaskSystem:ErrTaskCancelled"),
	)
	// ErrTaskPanicked is the error recorded on a handle whose body panicked.
	ErrTaskPanicked = errors.Normalize(
		"task body panicked: %v",
		errors.RFCCodeText("TaskSystem:ErrTaskPanicked"),
	)
	// ErrSchedulerStopped is recorded on a handle whose work could not be
	// enqueued because the scheduler or thread pool is already shut down.
	ErrSchedulerStopped = errors.Normalize(
		"task scheduler is stopped",
		errors.RFCCodeText("TaskSystem:ErrSchedulerStopped"),
	)
	// ErrTaskConsumed is returned when a Task value is started or run twice.
	ErrTaskConsumed = errors.Normalize(
		"task has already been consumed",
		errors.RFCCodeText("TaskSystem:ErrTaskConsumed"),
	)
)

type ErrorType int

const (
	// ErrorTypeUnknown is the default error type.
	ErrorTypeUnknown ErrorType = 0

	ErrorTypeCancelled ErrorType = 1
	ErrorTypePanicked  ErrorType = 2
	ErrorTypeStopped   ErrorType = 3
	ErrorTypeConsumed  ErrorType = 4
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeCancelled:
		return "Cancelled"
	case ErrorTypePanicked:
		return "Panicked"
	case ErrorTypeStopped:
		return "Stopped"
	case ErrorTypeConsumed:
		return "Consumed"
	default:
		return "Unknown"
	}
}

type AppError struct {
	Type   ErrorType
	Reason string
}

func NewAppError(t ErrorType, reason string) *AppError {
	return &AppError{
		Type:   t,
		Reason: reason,
	}
}

func (e AppError) Error() string {
	return fmt.Sprintf("ErrorType: %s, Reason: %s", e.Type, e.Reason)
}

func (e AppError) GetType() ErrorType {
	return e.Type
}

func (e AppError) Equal(err AppError) bool {
	return e.Type == err.Type
}

// ErrorTypeOf maps an error to its ErrorType, for callers that switch on
// categories rather than comparing errors directly. An AppError carries its
// type explicitly; the sentinel errors above map to their category.
func ErrorTypeOf(err error) ErrorType {
	switch v := err.(type) {
	case nil:
		return ErrorTypeUnknown
	case *AppError:
		return v.Type
	case AppError:
		return v.Type
	}
	switch {
	case ErrTaskCancelled.Equal(err):
		return ErrorTypeCancelled
	case ErrTaskPanicked.Equal(err):
		return ErrorTypePanicked
	case ErrSchedulerStopped.Equal(err):
		return ErrorTypeStopped
	case ErrTaskConsumed.Equal(err):
		return ErrorTypeConsumed
	default:
		return ErrorTypeUnknown
	}
}
