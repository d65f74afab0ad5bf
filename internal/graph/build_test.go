package graph

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/project"
	"github.com/specialistvlad/buildgrid/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() context.Context {
	return ctxlog.Discard(context.Background())
}

func mustTask(t *testing.T, p *project.Project, name string, opts ...task.Option) {
	t.Helper()
	_, err := p.RegisterTask(name, nil, opts...)
	require.NoError(t, err)
}

func TestBuild_CompileThenRun(t *testing.T) {
	root := project.NewRoot("p", t.TempDir(), nil)
	mustTask(t, root, "compile")
	mustTask(t, root, "run", task.WithDependsOn("compile"))
	mustTask(t, root, "unrelated")

	g, err := Build(testContext(), root, []string{"run"})

	require.NoError(t, err)
	assert.Equal(t, []string{":compile", ":run"}, g.IDs())
	assert.Equal(t, 2, g.Len())
	require.Len(t, g.Goals(), 1)
	assert.Equal(t, ":run", g.Goals()[0].ID())
	deps := g.DependenciesOf(":run")
	require.Len(t, deps, 1)
	assert.Equal(t, ":compile", deps[0].ID())
}

func TestBuild_Cycles(t *testing.T) {
	t.Run("two task cycle reports full path", func(t *testing.T) {
		root := project.NewRoot("p", t.TempDir(), nil)
		mustTask(t, root, "a", task.WithDependsOn("b"))
		mustTask(t, root, "b", task.WithDependsOn("a"))

		_, err := Build(testContext(), root, []string{"a"})

		var cycleErr *CycleError
		require.ErrorAs(t, err, &cycleErr)
		assert.Equal(t, []string{":a", ":b", ":a"}, cycleErr.Path)
		assert.ErrorIs(t, err, ErrInvalidGraph)
		assert.Contains(t, err.Error(), ":a -> :b -> :a")
	})

	t.Run("self dependency", func(t *testing.T) {
		root := project.NewRoot("p", t.TempDir(), nil)
		mustTask(t, root, "a", task.WithDependsOn("a"))

		_, err := Build(testContext(), root, []string{"a"})

		var cycleErr *CycleError
		require.ErrorAs(t, err, &cycleErr)
		assert.Equal(t, []string{":a", ":a"}, cycleErr.Path)
	})

	t.Run("longer cycle reached through a prefix", func(t *testing.T) {
		root := project.NewRoot("p", t.TempDir(), nil)
		mustTask(t, root, "top", task.WithDependsOn("a"))
		mustTask(t, root, "a", task.WithDependsOn("b"))
		mustTask(t, root, "b", task.WithDependsOn("c"))
		mustTask(t, root, "c", task.WithDependsOn("a"))

		_, err := Build(testContext(), root, []string{"top"})

		var cycleErr *CycleError
		require.ErrorAs(t, err, &cycleErr)
		assert.Equal(t, []string{":a", ":b", ":c", ":a"}, cycleErr.Path)
	})

	t.Run("finalizer that is also a dependency", func(t *testing.T) {
		root := project.NewRoot("p", t.TempDir(), nil)
		mustTask(t, root, "a", task.WithDependsOn("c"), task.WithFinalizedBy("c"))
		mustTask(t, root, "c")

		_, err := Build(testContext(), root, []string{"a"})

		var cycleErr *CycleError
		require.ErrorAs(t, err, &cycleErr)
		assert.Len(t, cycleErr.Path, 3)
		assert.Equal(t, cycleErr.Path[0], cycleErr.Path[2])
	})
}

func TestBuild_UnknownTasks(t *testing.T) {
	root := project.NewRoot("p", t.TempDir(), nil)
	mustTask(t, root, "run", task.WithDependsOn("compile"))

	t.Run("unknown dependency", func(t *testing.T) {
		_, err := Build(testContext(), root, []string{"run"})

		var unknownErr *UnknownTaskError
		require.ErrorAs(t, err, &unknownErr)
		assert.Equal(t, ":compile", unknownErr.Address)
		assert.Equal(t, ":run", unknownErr.RequiredBy)
	})

	t.Run("unknown goal", func(t *testing.T) {
		_, err := Build(testContext(), root, []string{"deploy"})

		var unknownErr *UnknownTaskError
		require.ErrorAs(t, err, &unknownErr)
		assert.Equal(t, "deploy", unknownErr.Address)
	})

	t.Run("malformed goal", func(t *testing.T) {
		_, err := Build(testContext(), root, []string{"a::b"})

		assert.ErrorIs(t, err, ErrInvalidGraph)
	})
}

func TestBuild_GoalResolution(t *testing.T) {
	root := project.NewRoot("root", t.TempDir(), nil)
	app, _ := root.GetOrCreateProject("app")
	lib, _ := root.GetOrCreateProject("lib")
	mustTask(t, root, "build")
	mustTask(t, app, "build")
	mustTask(t, app, "compile")
	mustTask(t, lib, "compile")
	mustTask(t, lib, "test")

	testCases := []struct {
		name     string
		goal     string
		expected string
	}{
		{name: "short form prefers base project", goal: "build", expected: ":build"},
		{name: "short form unique in descendant", goal: "test", expected: ":lib:test"},
		{name: "relative qualified", goal: "lib:compile", expected: ":lib:compile"},
		{name: "absolute qualified", goal: ":app:compile", expected: ":app:compile"},
		{name: "root marker", goal: ":build", expected: ":build"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := Build(testContext(), root, []string{tc.goal})
			require.NoError(t, err)
			assert.Equal(t, []string{tc.expected}, g.IDs())
		})
	}

	t.Run("ambiguous short form lists matches", func(t *testing.T) {
		_, err := Build(testContext(), root, []string{"compile"})

		var ambErr *AmbiguousTaskError
		require.ErrorAs(t, err, &ambErr)
		assert.Equal(t, []string{":app:compile", ":lib:compile"}, ambErr.Matches)
		assert.ErrorIs(t, err, ErrInvalidGraph)
	})

	t.Run("dependencies resolve against the owning project", func(t *testing.T) {
		sub := project.NewRoot("root", t.TempDir(), nil)
		child, _ := sub.GetOrCreateProject("child")
		mustTask(t, sub, "compile")
		mustTask(t, child, "compile")
		mustTask(t, child, "run", task.WithDependsOn("compile", ":compile"))

		g, err := Build(testContext(), sub, []string{"child:run"})

		require.NoError(t, err)
		assert.ElementsMatch(t, []string{":child:compile", ":compile", ":child:run"}, g.IDs())
		assert.Equal(t, ":child:run", g.IDs()[2])
	})
}

func TestBuild_Finalizers(t *testing.T) {
	t.Run("finalizer and its dependencies are included and ordered after", func(t *testing.T) {
		root := project.NewRoot("p", t.TempDir(), nil)
		mustTask(t, root, "run", task.WithFinalizedBy("cleanup"))
		mustTask(t, root, "cleanup", task.WithDependsOn("prepareCleanup"))
		mustTask(t, root, "prepareCleanup")

		g, err := Build(testContext(), root, []string{"run"})

		require.NoError(t, err)
		ids := g.IDs()
		require.Len(t, ids, 3)
		assert.Less(t, indexOf(ids, ":run"), indexOf(ids, ":cleanup"))
		assert.Less(t, indexOf(ids, ":prepareCleanup"), indexOf(ids, ":cleanup"))

		cleanup, ok := g.Node(":cleanup")
		require.True(t, ok)
		assert.True(t, cleanup.Conditional())
		prep, _ := g.Node(":prepareCleanup")
		assert.False(t, prep.Conditional())
	})

	t.Run("finalizer depending on its task is not a cycle", func(t *testing.T) {
		root := project.NewRoot("p", t.TempDir(), nil)
		mustTask(t, root, "run", task.WithFinalizedBy("report"))
		mustTask(t, root, "report", task.WithDependsOn("run"))

		g, err := Build(testContext(), root, []string{"run"})

		require.NoError(t, err)
		assert.Equal(t, []string{":run", ":report"}, g.IDs())
		report, _ := g.Node(":report")
		assert.False(t, report.Conditional())
	})

	t.Run("finalizer depending on a dependent of its task", func(t *testing.T) {
		root := project.NewRoot("p", t.TempDir(), nil)
		mustTask(t, root, "compile", task.WithFinalizedBy("notify"))
		mustTask(t, root, "run", task.WithDependsOn("compile"))
		mustTask(t, root, "notify", task.WithDependsOn("run"))

		g, err := Build(testContext(), root, []string{"run"})

		require.NoError(t, err)
		assert.Equal(t, []string{":compile", ":run", ":notify"}, g.IDs())
		notify, ok := g.Node(":notify")
		require.True(t, ok)
		require.Len(t, g.DependenciesOf(":notify"), 1)
		assert.Equal(t, ":run", g.DependenciesOf(":notify")[0].ID())
		assert.True(t, notify.Conditional())
	})

	t.Run("cycle through a finalizer edge is still reported", func(t *testing.T) {
		root := project.NewRoot("p", t.TempDir(), nil)
		mustTask(t, root, "compile", task.WithFinalizedBy("notify"))
		mustTask(t, root, "notify", task.WithFinalizedBy("compile"))

		_, err := Build(testContext(), root, []string{"compile"})

		var cycleErr *CycleError
		require.ErrorAs(t, err, &cycleErr)
		assert.Equal(t, cycleErr.Path[0], cycleErr.Path[len(cycleErr.Path)-1])
	})

	t.Run("requested finalizer is not conditional", func(t *testing.T) {
		root := project.NewRoot("p", t.TempDir(), nil)
		mustTask(t, root, "run", task.WithFinalizedBy("cleanup"))
		mustTask(t, root, "cleanup")

		g, err := Build(testContext(), root, []string{"run", "cleanup"})

		require.NoError(t, err)
		cleanup, _ := g.Node(":cleanup")
		assert.False(t, cleanup.Conditional())
		assert.Len(t, g.Goals(), 2)
	})
}

func TestBuild_DeterministicOrder(t *testing.T) {
	build := func() []string {
		root := project.NewRoot("p", t.TempDir(), nil)
		mustTask(t, root, "base")
		mustTask(t, root, "left", task.WithDependsOn("base"))
		mustTask(t, root, "right", task.WithDependsOn("base"))
		mustTask(t, root, "top", task.WithDependsOn("left", "right"))
		g, err := Build(testContext(), root, []string{"top"})
		require.NoError(t, err)
		return g.IDs()
	}

	first := build()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, build())
	}
	assert.Equal(t, []string{":base", ":left", ":right", ":top"}, first)
}

func TestBuild_RandomDAGsAreTopologicallyOrdered(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 20; round++ {
		root := project.NewRoot("p", t.TempDir(), nil)
		const size = 25
		for i := 0; i < size; i++ {
			var deps []string
			for j := 0; j < i; j++ {
				if rng.Intn(4) == 0 {
					deps = append(deps, fmt.Sprintf("t%d", j))
				}
			}
			mustTask(t, root, fmt.Sprintf("t%d", i), task.WithDependsOn(deps...))
		}

		g, err := Build(testContext(), root, []string{fmt.Sprintf("t%d", size-1)})
		require.NoError(t, err)

		pos := make(map[string]int)
		for i, id := range g.IDs() {
			pos[id] = i
		}
		for _, n := range g.Nodes() {
			for _, dep := range g.DependenciesOf(n.ID()) {
				assert.Less(t, pos[dep.ID()], pos[n.ID()], "round %d: %s before %s", round, dep.ID(), n.ID())
			}
		}
	}
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
