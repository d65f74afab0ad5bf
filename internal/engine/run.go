package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/executor"
	"github.com/specialistvlad/buildgrid/internal/graph"
	"github.com/specialistvlad/buildgrid/internal/localsession"
	"github.com/specialistvlad/buildgrid/internal/project"
	"github.com/specialistvlad/buildgrid/internal/report"
	"github.com/specialistvlad/buildgrid/internal/session"
)

// ErrNoGoals is returned when no goal was requested and the build declares
// no default task.
var ErrNoGoals = errors.New("no goals requested and no default tasks declared")

// RunOptions configures one execution.
type RunOptions struct {
	Executor executor.Options
	// Sessions creates the per-run session. Nil means a local session.
	Sessions session.SessionFactory
}

// Run resolves goals against root, executes the resulting graph and
// returns the report. Task failures are reported, not returned; the error
// is non-nil only for graph errors and internal failures.
func Run(ctx context.Context, root *project.Project, goals []string, opts RunOptions) (*report.Report, error) {
	g, err := graph.Build(ctx, root, goals)
	if err != nil {
		return nil, err
	}
	return RunGraph(ctx, g, opts)
}

// RunGraph executes an already built graph and returns the report.
func RunGraph(ctx context.Context, g *graph.Graph, opts RunOptions) (*report.Report, error) {
	if opts.Executor.RunID == "" {
		opts.Executor.RunID = uuid.NewString()
	}
	ctx = ctxlog.With(ctx, "run_id", opts.Executor.RunID)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Executing task graph.", "tasks", g.Len(), "order", g.IDs())
	goals := make([]string, 0, len(g.Goals()))
	for _, n := range g.Goals() {
		goals = append(goals, n.ID())
	}

	factory := opts.Sessions
	if factory == nil {
		factory = &localsession.SessionFactory{}
	}
	sess, err := factory.NewSession(ctx, g, opts.Executor)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	defer func() {
		if err := sess.Close(ctx); err != nil {
			logger.Warn("Failed to close session.", "error", err)
		}
	}()

	exec, err := sess.GetExecutor()
	if err != nil {
		return nil, fmt.Errorf("creating executor: %w", err)
	}

	logger.Info("🚀 Starting execution.", "goals", goals, "tasks", g.Len(), "workers", opts.Executor.WorkerCount())
	started := time.Now()
	if err := exec.Execute(ctx); err != nil {
		return nil, fmt.Errorf("execution failed: %w", err)
	}
	finished := time.Now()

	rep, err := report.Build(ctx, opts.Executor.RunID, g, sess.Store(), started, finished)
	if err != nil {
		return nil, err
	}
	logger.Info("🏁 Execution finished.", "success", rep.Success, "duration", rep.Duration())
	return rep, nil
}

// Plan resolves goals against root without executing anything.
func Plan(ctx context.Context, root *project.Project, goals []string) (*graph.Graph, error) {
	return graph.Build(ctx, root, goals)
}

// DefaultGoals returns configured when non-empty; otherwise the addresses
// of every task in the tree that is marked default, in project preorder and
// registration order.
func DefaultGoals(root *project.Project, configured []string) ([]string, error) {
	if len(configured) > 0 {
		return configured, nil
	}
	var goals []string
	_ = root.Walk(func(p *project.Project) error {
		for _, t := range p.Tasks() {
			if t.Default() {
				goals = append(goals, t.ID())
			}
		}
		return nil
	})
	if len(goals) == 0 {
		return nil, ErrNoGoals
	}
	return goals, nil
}
