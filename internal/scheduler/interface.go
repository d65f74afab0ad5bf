package scheduler

import (
	"context"

	"github.com/specialistvlad/buildgrid/internal/graph"
	"github.com/specialistvlad/buildgrid/internal/node"
)

// Scheduler decides which tasks of a run may execute next.
type Scheduler interface {
	// Next settles every PENDING task whose outcome no longer depends on
	// running work and returns the READY tasks that can start right now
	// without a resource conflict, in deterministic order.
	Next(ctx context.Context) ([]*graph.Node, error)

	// Started marks a READY task RUNNING and takes its resources.
	Started(ctx context.Context, id string) error

	// Finished records the terminal status of a RUNNING task and releases
	// its resources.
	Finished(ctx context.Context, id string, status node.Status, cause error) error

	// Abort marks every task that has not started as SKIPPED with cause.
	Abort(ctx context.Context, cause error) error

	// Running returns the number of tasks currently RUNNING.
	Running() int

	// Done reports whether every task reached a terminal status.
	Done(ctx context.Context) (bool, error)
}
