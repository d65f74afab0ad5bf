// Package executor defines the contract of the task execution engine, the
// hooks it calls while running, and the execution-phase error taxonomy.
package executor

import (
	"context"
	"io"
	"time"

	"github.com/specialistvlad/buildgrid/internal/graph"
	"github.com/specialistvlad/buildgrid/internal/node"
	"github.com/specialistvlad/buildgrid/internal/task"
	"go.opentelemetry.io/otel/trace"
)

// Executor is responsible for orchestrating the end-to-end execution of a
// task graph. It manages concurrency, interacts with the scheduler, and
// dispatches actions. Task failures are recorded, not returned; Execute only
// fails on internal errors.
type Executor interface {
	Execute(ctx context.Context) error
}

// Listener receives task lifecycle events. Calls are made from a single
// goroutine, never concurrently.
type Listener interface {
	TaskStarted(ctx context.Context, n *graph.Node)
	TaskFinished(ctx context.Context, n *graph.Node, status node.Status, result node.Result, cause error)
}

// StateTracker decides whether a task's declared inputs changed since its
// last successful run.
type StateTracker interface {
	Check(ctx context.Context, t *task.Task) (fingerprint string, upToDate bool, err error)
	Record(ctx context.Context, t *task.Task, fingerprint string) error
}

// Options configures an executor.
type Options struct {
	// RunID identifies the run in logs and traces.
	RunID string
	// Workers is the maximum number of concurrently running tasks. Values
	// below 1 mean 1.
	Workers int
	// TaskTimeout applies to tasks that declare no timeout of their own.
	// Zero means no limit.
	TaskTimeout time.Duration
	// Listeners are notified of task starts and completions.
	Listeners []Listener
	// Tracker enables up-to-date checks when set.
	Tracker StateTracker
	// Output, when set, receives a live copy of every action's output.
	Output io.Writer
	// TracerProvider overrides the global OpenTelemetry provider.
	TracerProvider trace.TracerProvider
}

// WorkerCount returns the effective pool size.
func (o Options) WorkerCount() int {
	if o.Workers < 1 {
		return 1
	}
	return o.Workers
}

// TimeoutFor returns the timeout that applies to t.
func (o Options) TimeoutFor(t *task.Task) time.Duration {
	if t.Timeout() > 0 {
		return t.Timeout()
	}
	return o.TaskTimeout
}
