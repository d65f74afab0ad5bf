package graph

import (
	"context"
	"slices"

	"github.com/specialistvlad/buildgrid/internal/address"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/project"
	"github.com/specialistvlad/buildgrid/internal/task"
)

type visitState int

const (
	unvisited visitState = iota
	inProgress
	done
)

// finalizerRef is a finalizer edge waiting for the dependency walk to
// unwind.
type finalizerRef struct {
	owner *task.Task
	raw   string
}

type builder struct {
	root    *project.Project
	g       *Graph
	state   map[string]visitState
	stack   []string
	pending []finalizerRef
}

// Build constructs the task graph for the requested goals. Short and relative
// goal addresses resolve against base; dependency addresses resolve against
// the project that owns the declaring task.
func Build(ctx context.Context, base *project.Project, requested []string) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.", "goals", requested)

	b := &builder{
		root:  base.Root(),
		g:     &Graph{index: make(map[string]int)},
		state: make(map[string]visitState),
	}

	for _, raw := range requested {
		t, err := resolveGoal(base, raw)
		if err != nil {
			return nil, err
		}
		if err := b.visit(t); err != nil {
			return nil, err
		}
		if err := b.visitFinalizers(); err != nil {
			return nil, err
		}
		n := b.g.nodes[b.g.index[t.ID()]]
		if !n.Goal {
			n.Goal = true
			b.g.goals = append(b.g.goals, n.Index)
		}
	}
	logger.Debug("Build: Reachability traversal complete.", "node_count", len(b.g.nodes))

	order, err := b.g.topologicalOrder()
	if err != nil {
		return nil, err
	}
	b.g.order = order

	logger.Debug("Build: Graph construction successful.", "order", b.g.IDs())
	return b.g, nil
}

func (b *builder) add(t *task.Task) *Node {
	if i, ok := b.g.index[t.ID()]; ok {
		return b.g.nodes[i]
	}
	n := &Node{Index: len(b.g.nodes), Task: t}
	b.g.nodes = append(b.g.nodes, n)
	b.g.index[t.ID()] = n.Index
	return n
}

// visit walks dependencies depth-first. Finalizer edges are only queued;
// visitFinalizers follows them once the walk is back at an empty stack.
func (b *builder) visit(t *task.Task) error {
	id := t.ID()
	switch b.state[id] {
	case done:
		return nil
	case inProgress:
		start := slices.Index(b.stack, id)
		path := append(slices.Clone(b.stack[start:]), id)
		return &CycleError{Path: path}
	}

	b.state[id] = inProgress
	b.stack = append(b.stack, id)
	n := b.add(t)

	for _, raw := range t.DependsOn() {
		dep, err := b.resolveRef(t, raw)
		if err != nil {
			return err
		}
		if err := b.visit(dep); err != nil {
			return err
		}
		depNode := b.g.nodes[b.g.index[dep.ID()]]
		link(&n.Deps, &depNode.Dependents, n.Index, depNode.Index)
	}

	b.stack = b.stack[:len(b.stack)-1]
	b.state[id] = done

	for _, raw := range t.FinalizedBy() {
		b.pending = append(b.pending, finalizerRef{owner: t, raw: raw})
	}
	return nil
}

// visitFinalizers drains the queued finalizer edges, including those queued
// by the finalizers themselves. A finalizer may depend on any task of the
// walk that reached its owner; cycles through finalizer edges are left to
// the topological sort.
func (b *builder) visitFinalizers() error {
	for len(b.pending) > 0 {
		ref := b.pending[0]
		b.pending = b.pending[1:]

		fin, err := b.resolveRef(ref.owner, ref.raw)
		if err != nil {
			return err
		}
		if err := b.visit(fin); err != nil {
			return err
		}
		n := b.g.nodes[b.g.index[ref.owner.ID()]]
		finNode := b.g.nodes[b.g.index[fin.ID()]]
		link(&n.Finalizers, &finNode.Finalizes, n.Index, finNode.Index)
	}
	return nil
}

// link adds other to list and self to other's back list, once.
func link(list, back *[]int, self, other int) {
	if slices.Contains(*list, other) {
		return
	}
	*list = append(*list, other)
	*back = append(*back, self)
}

func (b *builder) resolveRef(owner *task.Task, raw string) (*task.Task, error) {
	addr, err := address.Parse(raw)
	if err != nil {
		return nil, &UnknownTaskError{Address: raw, RequiredBy: owner.ID(), Err: err}
	}
	abs := addr.Resolve(owner.Address().Project)
	t, ok := lookup(b.root, abs)
	if !ok {
		return nil, &UnknownTaskError{Address: abs.String(), RequiredBy: owner.ID()}
	}
	return t, nil
}

func lookup(root *project.Project, abs address.Address) (*task.Task, bool) {
	p := root.Lookup(abs.Project)
	if p == nil {
		return nil, false
	}
	return p.Task(abs.Task)
}

// resolveGoal resolves a requested address. A short name is looked up in
// base first, then in base's descendants, where it must match exactly one
// task.
func resolveGoal(base *project.Project, raw string) (*task.Task, error) {
	addr, err := address.Parse(raw)
	if err != nil {
		return nil, &UnknownTaskError{Address: raw, Err: err}
	}

	if !addr.IsShort() {
		abs := addr.Resolve(base.Path())
		t, ok := lookup(base.Root(), abs)
		if !ok {
			return nil, &UnknownTaskError{Address: abs.String()}
		}
		return t, nil
	}

	if t, ok := base.Task(addr.Task); ok {
		return t, nil
	}

	var matches []*task.Task
	_ = base.Walk(func(p *project.Project) error {
		if p == base {
			return nil
		}
		if t, ok := p.Task(addr.Task); ok {
			matches = append(matches, t)
		}
		return nil
	})

	switch len(matches) {
	case 0:
		return nil, &UnknownTaskError{Address: raw}
	case 1:
		return matches[0], nil
	}
	ids := make([]string, 0, len(matches))
	for _, t := range matches {
		ids = append(ids, t.ID())
	}
	return nil, &AmbiguousTaskError{Name: addr.Task, Matches: ids}
}
