// Package graph builds the task graph for a run: the set of tasks reachable
// from the requested goals, with their dependency and finalizer edges.
//
// # Why Graph Package Exists
//
// Tasks reference each other by address strings that are only resolved here,
// after the configuration phase has frozen the project tree. Resolution,
// reachability, and acyclicity checks all happen once, before anything runs,
// so the executor only ever sees a valid DAG.
//
// # Storage
//
// The graph is arena-style: nodes live in one slice and refer to each other
// by index. Nodes are numbered in discovery order, which doubles as the
// deterministic tie-break for the topological order.
//
//	goals ──► resolve ──► DFS over dependsOn ──► finalizers ──► Kahn order
//	                      (unvisited /            (queued, walked once
//	                       in-progress / done)     the stack is empty)
//
// # Edges
//
// A dependency edge `dep → task` means dep must SUCCEED before task runs. A
// finalizer edge `task → finalizer` only orders the finalizer after the task
// has reached a terminal state. The dependency walk detects cycles over
// dependency edges only; cycles through finalizer edges are found by the
// topological sort. Both report the full path.
//
// # Errors
//
// All build failures unwrap to ErrInvalidGraph. CycleError carries the full
// cycle path; UnknownTaskError and AmbiguousTaskError name the offending
// address.
package graph
