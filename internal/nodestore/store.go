// Package nodestore defines the interface for storing and retrieving the
// mutable execution state of tasks during a run.
//
// # Why Node Store Exists
//
// The store isolates **mutable execution state** (status, result, error)
// from the **immutable task graph** built by package graph. The graph is
// frozen before execution starts; the store is the only thing that changes.
//
// # Lifecycle and Usage
//
// The node store is:
//  1. **Created** once per run (ephemeral, not persistent across runs)
//  2. **Mutated** as tasks move through the node.Status state machine
//  3. **Read** by the report builder once the run is over
//
// # State Transitions
//
// Transition enforces node.CanTransition, so a task can never be marked
// RUNNING twice or leave a terminal state.
package nodestore

import (
	"context"

	"github.com/specialistvlad/buildgrid/internal/node"
)

// Store manages the execution state of the tasks of one run.
//
// Implementations MUST be thread-safe: workers record results concurrently
// while the scheduler reads statuses.
type Store interface {
	// GetStatus returns the task's status, StatusPending if never set.
	GetStatus(ctx context.Context, id string) (node.Status, error)

	// Transition moves the task to status `to`, failing with a
	// *node.TransitionError if the move is illegal from its current status.
	Transition(ctx context.Context, id string, to node.Status) error

	// SetResult records what the executor observed about the task.
	SetResult(ctx context.Context, id string, result node.Result) error

	// GetResult returns the recorded result, zero if none.
	GetResult(ctx context.Context, id string) (node.Result, error)

	// SetError records why the task failed or was skipped.
	SetError(ctx context.Context, id string, cause error) error

	// GetError returns the recorded cause, nil if none.
	GetError(ctx context.Context, id string) (error, error)
}
