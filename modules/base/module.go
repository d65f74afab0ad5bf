// Package base provides the `base` plugin: the lifecycle tasks every
// project gets once any language plugin is applied.
package base

import (
	"github.com/specialistvlad/buildgrid/internal/action"
	"github.com/specialistvlad/buildgrid/internal/project"
	"github.com/specialistvlad/buildgrid/internal/registry"
	"github.com/specialistvlad/buildgrid/internal/task"
)

// PluginID is the identifier of this plugin.
const PluginID = "base"

// Group is the task group of build lifecycle tasks.
const Group = "build"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Apply registers the `clean` task, which deletes the project's build
// directory.
func Apply(p *project.Project) error {
	_, err := p.RegisterTask("clean", &action.RemoveAll{Path: p.BuildDir()},
		task.WithGroup(Group),
		task.WithDefault(false),
		task.WithDescription("Deletes the build directory."),
	)
	return err
}

// Register registers the plugin with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterPlugin(PluginID, &registry.RegisteredPlugin{
		Description: "Lifecycle tasks shared by all projects.",
		Fn:          Apply,
	})
}
