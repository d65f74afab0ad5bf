// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package buildfile reads HCL build descriptions and turns them into an
// ordered, format-agnostic Description the engine evaluates against a
// project tree.
//
// A build description is one or more `project` blocks. Every top-level
// block must name the same root project; blocks are merged in file order,
// and nested projects with the same name are merged the same way. Within a
// project the declaration order of `apply`, `extension` and `task` entries
// is preserved, because plugins are applied, extensions configured and
// tasks registered in exactly that order.
//
// Attribute expressions are evaluated once, at load time, with a single
// variable in scope: `env`, a map of the process environment.
package buildfile
