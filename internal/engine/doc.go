// Package engine drives a build through its two phases. Configure evaluates
// a build description against a fresh project tree and freezes it; Run
// resolves the requested goals into a task graph, executes it in a session
// and returns the Execution Report.
package engine
