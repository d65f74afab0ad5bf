package executor

import (
	"context"
	"fmt"
	"time"
)

// ActionError is recorded when a task's action returns an error, reports
// failure, or panics.
type ActionError struct {
	Task    string
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("task %s failed: %s: %v", e.Task, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("task %s failed: %v", e.Task, e.Err)
	case e.Message != "":
		return fmt.Sprintf("task %s failed: %s", e.Task, e.Message)
	}
	return fmt.Sprintf("task %s failed", e.Task)
}

func (e *ActionError) Unwrap() error { return e.Err }

// TimeoutError is recorded when a task exceeds its timeout.
type TimeoutError struct {
	Task    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task %s timed out after %s", e.Task, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// CancellationError is recorded for tasks aborted or never started because
// the run was cancelled. Task is empty for tasks that never started.
type CancellationError struct {
	Task  string
	Cause error
}

func (e *CancellationError) Error() string {
	if e.Task == "" {
		return fmt.Sprintf("run cancelled: %v", e.Cause)
	}
	return fmt.Sprintf("task %s cancelled: %v", e.Task, e.Cause)
}

func (e *CancellationError) Unwrap() error { return e.Cause }
