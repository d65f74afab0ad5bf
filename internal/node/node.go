// Package node defines the execution state machine of a task within a run
// and the per-task result recorded alongside it.
package node

import (
	"fmt"
	"time"
)

// Status is the execution state of a task within one run.
type Status int32

const (
	// StatusPending means the task waits for its dependencies.
	StatusPending Status = iota
	// StatusReady means every dependency SUCCEEDED and the task may be dispatched.
	StatusReady
	// StatusRunning means a worker is executing the task's action.
	StatusRunning
	// StatusSucceeded means the action completed successfully.
	StatusSucceeded
	// StatusFailed means the action failed, timed out or was cancelled.
	StatusFailed
	// StatusSkipped means the task never ran because of an upstream failure
	// or cancellation.
	StatusSkipped
	// StatusNotExecuted means the task was only a finalizer of tasks that
	// never ran.
	StatusNotExecuted
)

var statusNames = map[Status]string{
	StatusPending:     "PENDING",
	StatusReady:       "READY",
	StatusRunning:     "RUNNING",
	StatusSucceeded:   "SUCCEEDED",
	StatusFailed:      "FAILED",
	StatusSkipped:     "SKIPPED",
	StatusNotExecuted: "NOT_EXECUTED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int32(s))
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkipped, StatusNotExecuted:
		return true
	}
	return false
}

// Ran reports whether the task's action was actually started.
func (s Status) Ran() bool {
	return s == StatusSucceeded || s == StatusFailed
}

var allowed = map[Status][]Status{
	StatusPending: {StatusReady, StatusSkipped, StatusNotExecuted},
	StatusReady:   {StatusRunning, StatusSkipped},
	StatusRunning: {StatusSucceeded, StatusFailed},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to Status) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionError is returned for an illegal status change.
type TransitionError struct {
	ID   string
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("task %s: illegal transition %s -> %s", e.ID, e.From, e.To)
}

// Result is what the executor records about a task beyond its status.
type Result struct {
	// Message is the action's result message.
	Message string
	// Output is the captured stdout and stderr of the action.
	Output string
	// UpToDate is set when the action was not invoked because its inputs
	// were unchanged since the last successful run.
	UpToDate bool
	Started  time.Time
	Finished time.Time
}

// Duration returns how long the task ran.
func (r Result) Duration() time.Duration {
	if r.Started.IsZero() || r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}
