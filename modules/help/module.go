// Package help provides the `help` plugin, whose `properties` task prints
// the extensions of a project.
package help

import (
	"context"
	"fmt"
	"io"

	"github.com/specialistvlad/buildgrid/internal/project"
	"github.com/specialistvlad/buildgrid/internal/registry"
	"github.com/specialistvlad/buildgrid/internal/task"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// PluginID is the identifier of this plugin.
const PluginID = "help"

// Group is the task group of informational tasks.
const Group = "help"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Apply registers the `properties` task.
func Apply(p *project.Project) error {
	_, err := p.RegisterTask("properties", task.ActionFunc(func(_ context.Context, ec *task.ExecContext) (task.Result, error) {
		if err := WriteProperties(ec.Stdout, p); err != nil {
			return task.Result{}, err
		}
		return task.Succeeded(""), nil
	}),
		task.WithGroup(Group),
		task.WithDefault(false),
		task.WithDescription("Displays the extensions of the project."),
	)
	return err
}

// WriteProperties prints every extension of p with its values, keys in
// sorted order.
func WriteProperties(w io.Writer, p *project.Project) error {
	if w == nil {
		w = io.Discard
	}
	exts := p.Extensions()
	if len(exts) == 0 {
		_, err := fmt.Fprintf(w, "project %s has no extensions\n", p.PathString())
		return err
	}
	for _, ext := range exts {
		fmt.Fprintf(w, "%s (%s)\n", ext.Name(), ext.Kind())
		for _, key := range ext.Keys() {
			val, _ := ext.Value(key)
			rendered, err := render(val)
			if err != nil {
				return fmt.Errorf("extension %q key %q: %w", ext.Name(), key, err)
			}
			if _, err := fmt.Fprintf(w, "    %s = %s\n", key, rendered); err != nil {
				return err
			}
		}
	}
	return nil
}

func render(val cty.Value) (string, error) {
	if val.IsNull() {
		return "null", nil
	}
	if !val.IsWhollyKnown() {
		return "(unknown)", nil
	}
	raw, err := ctyjson.Marshal(val, val.Type())
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Register registers the plugin with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterPlugin(PluginID, &registry.RegisteredPlugin{
		Description: "Informational tasks.",
		Fn:          Apply,
	})
}
