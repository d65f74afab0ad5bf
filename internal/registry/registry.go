package registry

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/specialistvlad/buildgrid/internal/project"
)

// Module is the interface that all built-in plugin packages implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// RegisteredPlugin holds the compiled configuration logic of one plugin.
type RegisteredPlugin struct {
	Description string
	Fn          project.PluginFunc
}

// Registry holds all registered plugins for a single application instance.
type Registry struct {
	plugins map[string]*RegisteredPlugin
}

// New creates and initializes a new Registry instance.
func New(modules ...Module) *Registry {
	r := &Registry{plugins: make(map[string]*RegisteredPlugin)}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// RegisterPlugin registers the configuration logic for pluginID.
func (r *Registry) RegisterPlugin(pluginID string, plugin *RegisteredPlugin) {
	if _, exists := r.plugins[pluginID]; exists {
		panic(fmt.Sprintf("plugin with id '%s' already registered", pluginID))
	}
	slog.Debug("Registering plugin.", "id", pluginID)
	r.plugins[pluginID] = plugin
}

// Resolve implements project.PluginResolver.
func (r *Registry) Resolve(pluginID string) (project.PluginFunc, error) {
	plugin, ok := r.plugins[pluginID]
	if !ok {
		return nil, fmt.Errorf("plugin '%s' is not registered (known: %v)", pluginID, r.IDs())
	}
	return plugin.Fn, nil
}

// Lookup returns the registration for pluginID.
func (r *Registry) Lookup(pluginID string) (*RegisteredPlugin, bool) {
	plugin, ok := r.plugins[pluginID]
	return plugin, ok
}

// IDs returns the registered plugin identifiers in sorted order.
func (r *Registry) IDs() []string {
	return slices.Sorted(maps.Keys(r.plugins))
}
