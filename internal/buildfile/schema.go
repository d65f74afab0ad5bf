// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package buildfile

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes the top level of a build file.
type fileRoot struct {
	Projects []*projectBlock `hcl:"project,block"`
}

type projectBlock struct {
	Name         string            `hcl:"name,label"`
	Dir          *string           `hcl:"dir,optional"`
	Apply        []string          `hcl:"apply,optional"`
	DefaultTasks []string          `hcl:"default_tasks,optional"`
	Extensions   []*extensionBlock `hcl:"extension,block"`
	Tasks        []*taskBlock      `hcl:"task,block"`
	Projects     []*projectBlock   `hcl:"project,block"`
}

// extensionBlock keeps its body raw: the keys an extension accepts are only
// known to the plugin that registered it.
type extensionBlock struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

type taskBlock struct {
	Name        string            `hcl:"name,label"`
	Command     []string          `hcl:"command,optional"`
	DependsOn   []string          `hcl:"depends_on,optional"`
	FinalizedBy []string          `hcl:"finalized_by,optional"`
	Description *string           `hcl:"description,optional"`
	Group       *string           `hcl:"group,optional"`
	Default     *bool             `hcl:"default,optional"`
	Public      *bool             `hcl:"public,optional"`
	Timeout     *string           `hcl:"timeout,optional"`
	Inputs      []string          `hcl:"inputs,optional"`
	Outputs     []string          `hcl:"outputs,optional"`
	Resources   []string          `hcl:"resources,optional"`
	Env         map[string]string `hcl:"env,optional"`
	WorkingDir  *string           `hcl:"working_dir,optional"`
}
