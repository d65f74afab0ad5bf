// Package project implements the Project tree that a build description is
// evaluated into.
//
// A Project owns its Tasks and Extensions and may own child projects. All
// registration happens during the configuration phase; Freeze ends it for the
// whole tree, after which the tree is read-only and registration calls fail
// with ErrFrozen. Plugins are resolved through a PluginResolver injected at
// root creation, so independent builds never share state.
package project
