package testutil

import (
	"github.com/specialistvlad/buildgrid/internal/project"
	"github.com/specialistvlad/buildgrid/internal/registry"
)

// SimpleModule is a test helper for easily creating a mock module that
// registers a single plugin.
type SimpleModule struct {
	ID string
	Fn project.PluginFunc
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	r.RegisterPlugin(m.ID, &registry.RegisteredPlugin{
		Description: "test plugin " + m.ID,
		Fn:          m.Fn,
	})
}
