// Package scheduler provides the decision-making engine for a run. It looks
// at the task graph and the node store and decides, deterministically, which
// tasks are READY, which must be SKIPPED because an upstream task failed, and
// which finalizers are NOT_EXECUTED because nothing they finalize ran.
//
// The scheduler never runs anything itself. The executor's coordinator loop
// asks it for ready work, reports starts and completions back, and stops
// when Done returns true:
//
//	for !s.Done() {
//	    ready, _ := s.Next(ctx)
//	    for _, n := range ready[:free] {
//	        s.Started(ctx, n.ID())
//	        go run(n)
//	    }
//	    res := <-completions
//	    s.Finished(ctx, res.ID, res.Status, res.Err)
//	}
//
// # Ordering
//
// Tasks are evaluated in the graph's topological order, so a single pass
// settles every PENDING task whose fate is already decided, and ties between
// simultaneously READY tasks go to the earlier task in that order.
//
// # Thread-Safety
//
// A Scheduler is owned by one coordinator goroutine and is not safe for
// concurrent use. The underlying node store is.
package scheduler
