package report

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/graph"
	"github.com/specialistvlad/buildgrid/internal/inmemorystore"
	"github.com/specialistvlad/buildgrid/internal/node"
	"github.com/specialistvlad/buildgrid/internal/nodestore"
	"github.com/specialistvlad/buildgrid/internal/project"
	"github.com/specialistvlad/buildgrid/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// finished builds compile -> run and drives them to the given statuses.
func finished(t *testing.T, compile, run node.Status) *Report {
	t.Helper()
	ctx := ctxlog.Discard(context.Background())
	root := project.NewRoot("p", t.TempDir(), nil)
	_, err := root.RegisterTask("compile", nil)
	require.NoError(t, err)
	_, err = root.RegisterTask("run", nil, task.WithDependsOn("compile"))
	require.NoError(t, err)

	g, err := graph.Build(ctx, root, []string{"compile", "run"})
	require.NoError(t, err)

	store := inmemorystore.New()
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	drive := func(id string, st node.Status) {
		path := map[node.Status][]node.Status{
			node.StatusSucceeded: {node.StatusReady, node.StatusRunning, node.StatusSucceeded},
			node.StatusFailed:    {node.StatusReady, node.StatusRunning, node.StatusFailed},
			node.StatusSkipped:   {node.StatusSkipped},
		}[st]
		for _, s := range path {
			require.NoError(t, store.Transition(ctx, id, s))
		}
		require.NoError(t, store.SetResult(ctx, id, node.Result{Started: start, Finished: start.Add(time.Second)}))
		if st != node.StatusSucceeded {
			require.NoError(t, store.SetError(ctx, id, errors.New(id+" "+st.String())))
		}
	}
	drive(":compile", compile)
	drive(":run", run)

	r, err := Build(ctx, "run-1", g, store, start, start.Add(2*time.Second))
	require.NoError(t, err)
	return r
}

// onceStore fails any status read after the first one per task.
type onceStore struct {
	nodestore.Store
	reads map[string]int
}

func (s *onceStore) GetStatus(ctx context.Context, id string) (node.Status, error) {
	s.reads[id]++
	if s.reads[id] > 1 {
		return node.StatusPending, errors.New("status already read")
	}
	return s.Store.GetStatus(ctx, id)
}

func TestBuild_ReadsEachStatusOnce(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	root := project.NewRoot("p", t.TempDir(), nil)
	_, err := root.RegisterTask("compile", nil)
	require.NoError(t, err)
	g, err := graph.Build(ctx, root, []string{"compile"})
	require.NoError(t, err)

	inner := inmemorystore.New()
	for _, s := range []node.Status{node.StatusReady, node.StatusRunning, node.StatusFailed} {
		require.NoError(t, inner.Transition(ctx, ":compile", s))
	}
	store := &onceStore{Store: inner, reads: map[string]int{}}

	r, err := Build(ctx, "run-1", g, store, time.Now(), time.Now())

	require.NoError(t, err)
	assert.Equal(t, 1, store.reads[":compile"])
	assert.False(t, r.Success)
	assert.Equal(t, OutcomeFailed, r.Outcome(":compile"))
}

func TestBuild_AllSucceeded(t *testing.T) {
	r := finished(t, node.StatusSucceeded, node.StatusSucceeded)

	assert.True(t, r.Success)
	assert.Equal(t, 0, r.ExitCode())
	assert.Equal(t, []string{":compile", ":run"}, r.Goals)
	assert.Equal(t, OutcomeSucceeded, r.Outcome(":run"))
	assert.Empty(t, r.Failed())
	assert.Equal(t, 2*time.Second, r.Duration())
	assert.Contains(t, r.Summary(), "BUILD SUCCESSFUL")
}

func TestBuild_FailureSkipsRun(t *testing.T) {
	r := finished(t, node.StatusFailed, node.StatusSkipped)

	assert.False(t, r.Success)
	assert.Equal(t, 1, r.ExitCode())
	assert.Equal(t, OutcomeFailed, r.Outcome(":compile"))
	assert.Equal(t, OutcomeSkipped, r.Outcome(":run"))
	require.Len(t, r.Failed(), 1)
	assert.Equal(t, ":compile FAILED", r.Failed()[0].Cause)
	assert.Equal(t, 1, r.Count(OutcomeSkipped))
	assert.Equal(t, OutcomeNotExecuted, r.Outcome(":missing"))

	summary := r.Summary()
	assert.Contains(t, summary, "BUILD FAILED")
	assert.Contains(t, summary, ":compile: :compile FAILED")
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeSucceeded, OutcomeOf(node.StatusSucceeded))
	assert.Equal(t, OutcomeFailed, OutcomeOf(node.StatusFailed))
	assert.Equal(t, OutcomeSkipped, OutcomeOf(node.StatusSkipped))
	assert.Equal(t, OutcomeNotExecuted, OutcomeOf(node.StatusNotExecuted))
	assert.Equal(t, OutcomeNotExecuted, OutcomeOf(node.StatusPending))
}

func TestWriteFile(t *testing.T) {
	r := finished(t, node.StatusSucceeded, node.StatusFailed)
	path := filepath.Join(t.TempDir(), "reports", "run.yaml")

	require.NoError(t, r.WriteFile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded Report
	require.NoError(t, yaml.Unmarshal(raw, &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.False(t, decoded.Success)
	require.Len(t, decoded.Tasks, 2)
	assert.Equal(t, OutcomeFailed, decoded.Tasks[1].Outcome)
	assert.Equal(t, time.Second, decoded.Tasks[1].Duration)

	var buf bytes.Buffer
	require.NoError(t, r.WriteYAML(&buf))
	assert.Contains(t, buf.String(), "outcome: failed")
}
