package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/graph"
	"github.com/specialistvlad/buildgrid/internal/inmemorystore"
	"github.com/specialistvlad/buildgrid/internal/node"
	"github.com/specialistvlad/buildgrid/internal/nodestore"
	"github.com/specialistvlad/buildgrid/internal/project"
	"github.com/specialistvlad/buildgrid/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ctx   context.Context
	g     *graph.Graph
	store nodestore.Store
	s     Scheduler
}

func newFixture(t *testing.T, goals []string, setup func(p *project.Project)) *fixture {
	t.Helper()
	ctx := ctxlog.Discard(context.Background())
	root := project.NewRoot("p", t.TempDir(), nil)
	setup(root)
	g, err := graph.Build(ctx, root, goals)
	require.NoError(t, err)
	store := inmemorystore.New()
	return &fixture{ctx: ctx, g: g, store: store, s: New(g, store)}
}

func register(p *project.Project, name string, opts ...task.Option) {
	if _, err := p.RegisterTask(name, nil, opts...); err != nil {
		panic(err)
	}
}

func ids(nodes []*graph.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID())
	}
	return out
}

func (f *fixture) status(t *testing.T, id string) node.Status {
	t.Helper()
	st, err := f.store.GetStatus(f.ctx, id)
	require.NoError(t, err)
	return st
}

func (f *fixture) runOne(t *testing.T, id string, outcome node.Status) {
	t.Helper()
	require.NoError(t, f.s.Started(f.ctx, id))
	require.NoError(t, f.s.Finished(f.ctx, id, outcome, nil))
}

func TestNext_DependencyOrdering(t *testing.T) {
	f := newFixture(t, []string{"run"}, func(p *project.Project) {
		register(p, "compile")
		register(p, "run", task.WithDependsOn("compile"))
	})

	ready, err := f.s.Next(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{":compile"}, ids(ready))
	assert.Equal(t, node.StatusPending, f.status(t, ":run"))

	f.runOne(t, ":compile", node.StatusSucceeded)

	ready, err = f.s.Next(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{":run"}, ids(ready))

	f.runOne(t, ":run", node.StatusSucceeded)
	done, err := f.s.Done(f.ctx)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestNext_FailurePropagatesTransitively(t *testing.T) {
	f := newFixture(t, []string{"deploy", "lint"}, func(p *project.Project) {
		register(p, "compile")
		register(p, "run", task.WithDependsOn("compile"))
		register(p, "deploy", task.WithDependsOn("run"))
		register(p, "lint")
	})

	ready, err := f.s.Next(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{":compile", ":lint"}, ids(ready))

	f.runOne(t, ":compile", node.StatusFailed)

	ready, err = f.s.Next(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{":lint"}, ids(ready))
	assert.Equal(t, node.StatusSkipped, f.status(t, ":run"))
	assert.Equal(t, node.StatusSkipped, f.status(t, ":deploy"))

	cause, err := f.store.GetError(f.ctx, ":deploy")
	require.NoError(t, err)
	var depErr *DependencyError
	require.ErrorAs(t, cause, &depErr)
	assert.Equal(t, ":run", depErr.Dependency)
	assert.Equal(t, node.StatusSkipped, depErr.Status)
}

func TestNext_FinalizerRunsAfterFailure(t *testing.T) {
	f := newFixture(t, []string{"run"}, func(p *project.Project) {
		register(p, "run", task.WithFinalizedBy("cleanup"))
		register(p, "cleanup")
	})

	ready, err := f.s.Next(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{":run"}, ids(ready), "finalizer waits for its task")

	f.runOne(t, ":run", node.StatusFailed)

	ready, err = f.s.Next(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{":cleanup"}, ids(ready))
}

func TestNext_FinalizerWithFailedDependencyIsSkipped(t *testing.T) {
	f := newFixture(t, []string{"run"}, func(p *project.Project) {
		register(p, "run", task.WithFinalizedBy("cleanup"))
		register(p, "cleanup", task.WithDependsOn("prepare"))
		register(p, "prepare")
	})

	ready, err := f.s.Next(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{":run", ":prepare"}, ids(ready))

	f.runOne(t, ":run", node.StatusSucceeded)
	f.runOne(t, ":prepare", node.StatusFailed)

	ready, err = f.s.Next(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, ready)
	assert.Equal(t, node.StatusSkipped, f.status(t, ":cleanup"))
}

func TestNext_FinalizerOfSkippedTaskIsNotExecuted(t *testing.T) {
	f := newFixture(t, []string{"run"}, func(p *project.Project) {
		register(p, "compile")
		register(p, "run", task.WithDependsOn("compile"), task.WithFinalizedBy("cleanup"))
		register(p, "cleanup")
	})

	_, err := f.s.Next(f.ctx)
	require.NoError(t, err)
	f.runOne(t, ":compile", node.StatusFailed)

	ready, err := f.s.Next(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, ready)
	assert.Equal(t, node.StatusSkipped, f.status(t, ":run"))
	assert.Equal(t, node.StatusNotExecuted, f.status(t, ":cleanup"))

	done, err := f.s.Done(f.ctx)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestNext_ResourceConflicts(t *testing.T) {
	f := newFixture(t, []string{"a", "b", "c"}, func(p *project.Project) {
		register(p, "a", task.WithResources("db"))
		register(p, "b", task.WithResources("db"))
		register(p, "c")
	})

	ready, err := f.s.Next(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{":a", ":c"}, ids(ready))

	require.NoError(t, f.s.Started(f.ctx, ":a"))
	ready, err = f.s.Next(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{":c"}, ids(ready))
	assert.Error(t, f.s.Started(f.ctx, ":b"))

	require.NoError(t, f.s.Finished(f.ctx, ":a", node.StatusSucceeded, nil))
	ready, err = f.s.Next(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{":b", ":c"}, ids(ready))
}

func TestAbort(t *testing.T) {
	f := newFixture(t, []string{"run", "other"}, func(p *project.Project) {
		register(p, "compile")
		register(p, "run", task.WithDependsOn("compile"))
		register(p, "other")
	})
	_, err := f.s.Next(f.ctx)
	require.NoError(t, err)
	require.NoError(t, f.s.Started(f.ctx, ":compile"))

	cancelled := errors.New("cancelled")
	require.NoError(t, f.s.Abort(f.ctx, cancelled))

	assert.Equal(t, node.StatusRunning, f.status(t, ":compile"))
	assert.Equal(t, node.StatusSkipped, f.status(t, ":run"))
	assert.Equal(t, node.StatusSkipped, f.status(t, ":other"))
	cause, err := f.store.GetError(f.ctx, ":other")
	require.NoError(t, err)
	assert.Equal(t, cancelled, cause)
	assert.Equal(t, 1, f.s.Running())

	require.NoError(t, f.s.Finished(f.ctx, ":compile", node.StatusFailed, cancelled))
	done, err := f.s.Done(f.ctx)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestStarted_RejectsDoubleStart(t *testing.T) {
	f := newFixture(t, []string{"a"}, func(p *project.Project) {
		register(p, "a")
	})
	_, err := f.s.Next(f.ctx)
	require.NoError(t, err)

	require.NoError(t, f.s.Started(f.ctx, ":a"))
	err = f.s.Started(f.ctx, ":a")

	var transErr *node.TransitionError
	assert.ErrorAs(t, err, &transErr)
}
