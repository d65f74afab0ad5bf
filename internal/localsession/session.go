// Package localsession wires in-memory state, the default scheduler and the
// local worker-pool executor into a session.Session.
package localsession

import (
	"context"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/executor"
	"github.com/specialistvlad/buildgrid/internal/graph"
	"github.com/specialistvlad/buildgrid/internal/inmemorystore"
	"github.com/specialistvlad/buildgrid/internal/localexecutor"
	"github.com/specialistvlad/buildgrid/internal/nodestore"
	"github.com/specialistvlad/buildgrid/internal/scheduler"
	"github.com/specialistvlad/buildgrid/internal/session"
)

// SessionFactory creates local, in-process sessions.
type SessionFactory struct{}

// NewSession implements session.SessionFactory.
func (f *SessionFactory) NewSession(ctx context.Context, g *graph.Graph, opts executor.Options) (session.Session, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Creating local session.", "tasks", g.Len(), "workers", opts.WorkerCount())

	nodeStore := inmemorystore.New()
	sched := scheduler.New(g, nodeStore)
	exec := localexecutor.New(g, sched, nodeStore, opts)

	return &Session{
		executor: exec,
		store:    nodeStore,
	}, nil
}

// Session is a local, single-run session.
type Session struct {
	executor executor.Executor
	store    nodestore.Store
}

// GetExecutor implements session.Session.
func (s *Session) GetExecutor() (executor.Executor, error) {
	return s.executor, nil
}

// Store implements session.Session.
func (s *Session) Store() nodestore.Store {
	return s.store
}

// Close implements session.Session. Local sessions hold no external
// resources.
func (s *Session) Close(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Local session closed.")
	return nil
}
