// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package buildfile

import (
	"time"

	"github.com/zclconf/go-cty/cty"
)

// Description is the evaluated content of all build files of one build.
type Description struct {
	// Files lists the build files in load order.
	Files []string
	// Root is the root project declaration.
	Root *ProjectDecl
}

// ProjectDecl is one `project` block, after merging.
type ProjectDecl struct {
	Name string
	// Dir is the project directory as an absolute path. Empty for child
	// projects that did not set `dir`; they live in <parent dir>/<name>.
	Dir string
	// Apply lists plugin ids in application order.
	Apply []string
	// DefaultTasks overrides default-task selection. Root project only.
	DefaultTasks []string
	Extensions   []*ExtensionDecl
	Tasks        []*TaskDecl
	Children     []*ProjectDecl
}

// ExtensionDecl configures a named Extension.
type ExtensionDecl struct {
	Name string
	// Keys lists the attribute names in sorted order.
	Keys   []string
	Values map[string]cty.Value
}

// TaskDecl declares an ad-hoc task. A task without a command is a pure
// lifecycle task that only aggregates its dependencies.
type TaskDecl struct {
	Name        string
	Command     []string
	DependsOn   []string
	FinalizedBy []string
	Description string
	Group       string
	// Default and Public are nil when not set in the file.
	Default    *bool
	Public     *bool
	Timeout    time.Duration
	Inputs     []string
	Outputs    []string
	Resources  []string
	Env        map[string]string
	WorkingDir string
}
