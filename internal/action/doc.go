// Package action provides the stock task actions: external commands,
// directory management, plain Go functions and ordered sequences of those.
//
// Every action resolves relative paths against the owning project's
// directory, taken from the task.ExecContext at execution time, so the same
// action value can be shared by tasks of different projects.
package action
