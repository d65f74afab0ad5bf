package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidGraph is the class of every graph-build failure.
var ErrInvalidGraph = errors.New("invalid task graph")

// UnknownTaskError is returned when an address matches no registered task.
type UnknownTaskError struct {
	Address string
	// RequiredBy is the task that referenced Address, empty for goals.
	RequiredBy string
	Err        error
}

func (e *UnknownTaskError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "task %q not found", e.Address)
	if e.RequiredBy != "" {
		fmt.Fprintf(&sb, " (required by %s)", e.RequiredBy)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

func (e *UnknownTaskError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidGraph}
	}
	return []error{ErrInvalidGraph, e.Err}
}

// AmbiguousTaskError is returned when a short-form goal matches tasks in
// more than one project.
type AmbiguousTaskError struct {
	Name    string
	Matches []string
}

func (e *AmbiguousTaskError) Error() string {
	return fmt.Sprintf("task name %q is ambiguous, candidates: %s", e.Name, strings.Join(e.Matches, ", "))
}

func (e *AmbiguousTaskError) Unwrap() error { return ErrInvalidGraph }

// CycleError reports a dependency cycle. Path starts and ends with the same
// address.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "dependency cycle detected: " + strings.Join(e.Path, " -> ")
}

func (e *CycleError) Unwrap() error { return ErrInvalidGraph }
