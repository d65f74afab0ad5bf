// Package session defines the per-run unit of wiring: one task graph, the
// store holding its execution state, and the executor that drives it.
package session

import (
	"context"

	"github.com/specialistvlad/buildgrid/internal/executor"
	"github.com/specialistvlad/buildgrid/internal/graph"
	"github.com/specialistvlad/buildgrid/internal/nodestore"
)

// SessionFactory creates sessions for validated task graphs.
type SessionFactory interface {
	NewSession(ctx context.Context, g *graph.Graph, opts executor.Options) (Session, error)
}

// Session owns the mutable state of a single run.
type Session interface {
	GetExecutor() (executor.Executor, error)
	// Store exposes the execution state, read by the report once the
	// executor returns.
	Store() nodestore.Store
	Close(ctx context.Context) error
}
