package graph

import (
	"container/heap"
	"slices"
)

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// predecessors returns every node that must be terminal before i may start:
// its dependencies and the tasks it finalizes.
func (g *Graph) predecessors(i int) []int {
	n := g.nodes[i]
	out := make([]int, 0, len(n.Deps)+len(n.Finalizes))
	out = append(out, n.Deps...)
	for _, f := range n.Finalizes {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// topologicalOrder orders nodes with Kahn's algorithm over dependency and
// finalizer edges. Ties go to the lowest discovery index.
func (g *Graph) topologicalOrder() ([]int, error) {
	indeg := make([]int, len(g.nodes))
	successors := make([][]int, len(g.nodes))
	for i := range g.nodes {
		for _, p := range g.predecessors(i) {
			indeg[i]++
			successors[p] = append(successors[p], i)
		}
	}

	ready := &intMinHeap{}
	for i, d := range indeg {
		if d == 0 {
			heap.Push(ready, i)
		}
	}

	out := make([]int, 0, len(g.nodes))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		out = append(out, n)
		for _, m := range successors[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}

	if len(out) != len(g.nodes) {
		return nil, &CycleError{Path: g.findCycle()}
	}
	return out, nil
}

// findCycle extracts one cycle deterministically by walking predecessor
// edges from the lowest index. The path reads "waits on".
func (g *Graph) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make([]int, len(g.nodes))
	var stack []int
	var cycle []int

	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		stack = append(stack, u)
		for _, v := range g.predecessors(u) {
			switch color[v] {
			case white:
				if dfs(v) {
					return true
				}
			case gray:
				start := slices.Index(stack, v)
				cycle = append(slices.Clone(stack[start:]), v)
				return true
			}
		}
		stack = stack[:len(stack)-1]
		color[u] = black
		return false
	}

	for i := range g.nodes {
		if color[i] == white && dfs(i) {
			break
		}
	}

	out := make([]string, 0, len(cycle))
	for _, i := range cycle {
		out = append(out, g.nodes[i].ID())
	}
	return out
}
