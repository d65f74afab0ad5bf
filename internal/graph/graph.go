package graph

import (
	"slices"

	"github.com/specialistvlad/buildgrid/internal/task"
)

// Node is one task in the graph. Edges are indices into the owning Graph.
type Node struct {
	Index int
	Task  *task.Task
	// Deps are the tasks that must SUCCEED before this one runs.
	Deps []int
	// Dependents are the tasks listing this one in Deps.
	Dependents []int
	// Finalizers run after this task reaches a terminal state.
	Finalizers []int
	// Finalizes are the tasks listing this one in Finalizers.
	Finalizes []int
	// Goal is set for tasks that were requested directly.
	Goal bool
}

// ID returns the canonical address of the node's task.
func (n *Node) ID() string { return n.Task.ID() }

// Conditional reports whether the node is only in the graph as a finalizer.
// Such a node runs only if at least one task it finalizes actually ran.
func (n *Node) Conditional() bool {
	return len(n.Finalizes) > 0 && !n.Goal && len(n.Dependents) == 0
}

// Graph is a validated, immutable DAG of tasks.
type Graph struct {
	nodes []*Node
	index map[string]int
	goals []int
	order []int
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// Nodes returns all nodes in discovery order.
func (g *Graph) Nodes() []*Node { return slices.Clone(g.nodes) }

// NodeAt returns the node with index i.
func (g *Graph) NodeAt(i int) *Node { return g.nodes[i] }

// Node looks up a node by canonical address.
func (g *Graph) Node(id string) (*Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.nodes[i], true
}

// Goals returns the requested goal nodes in request order.
func (g *Graph) Goals() []*Node {
	out := make([]*Node, 0, len(g.goals))
	for _, i := range g.goals {
		out = append(out, g.nodes[i])
	}
	return out
}

// Order returns the nodes in deterministic topological order.
func (g *Graph) Order() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, i := range g.order {
		out = append(out, g.nodes[i])
	}
	return out
}

// Position returns the node's position in the topological order.
func (g *Graph) Position(i int) int {
	return slices.Index(g.order, i)
}

// DependenciesOf returns the direct dependencies of the node at id.
func (g *Graph) DependenciesOf(id string) []*Node {
	n, ok := g.Node(id)
	if !ok {
		return nil
	}
	out := make([]*Node, 0, len(n.Deps))
	for _, i := range n.Deps {
		out = append(out, g.nodes[i])
	}
	return out
}

// IDs returns the canonical addresses of all nodes in topological order.
func (g *Graph) IDs() []string {
	out := make([]string, 0, len(g.order))
	for _, n := range g.Order() {
		out = append(out, n.ID())
	}
	return out
}
