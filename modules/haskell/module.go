// Package haskell provides the `lang.haskell` plugin, building a Haskell
// application with ghc.
package haskell

import (
	"github.com/specialistvlad/buildgrid/internal/registry"
	"github.com/specialistvlad/buildgrid/modules/lang"
)

// PluginID is the identifier of this plugin.
const PluginID = "lang.haskell"

// ExtensionName is the name of the application extension and its compile
// task.
const ExtensionName = "haskellApplication"

// KeyCompiler selects the compiler executable.
const KeyCompiler = "compiler"

// Toolchain builds `ghc -o <product> <srcs> <flags>` command lines.
var Toolchain = &lang.Toolchain{
	PluginID:      PluginID,
	Extension:     ExtensionName,
	OutputSubdir:  "haskell",
	Defaults:      map[string]any{KeyCompiler: "ghc"},
	ProductSuffix: func(*lang.Application) (string, error) { return lang.ExecutableSuffix(), nil },
	Compile: func(app *lang.Application) ([]string, error) {
		compiler, err := app.Ext.String(KeyCompiler)
		if err != nil {
			return nil, err
		}
		cmd := []string{compiler, "-outputdir", app.OutputDir, "-o", app.Product}
		cmd = append(cmd, app.Srcs...)
		return append(cmd, app.Flags...), nil
	},
}

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the plugin with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterPlugin(PluginID, &registry.RegisteredPlugin{
		Description: "Builds and runs Haskell applications with ghc.",
		Fn:          Toolchain.Apply,
	})
}
