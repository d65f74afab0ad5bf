// Package ocaml provides the `lang.ocaml` plugin. Standalone applications
// are compiled to native executables with ocamlopt; otherwise a bytecode
// library archive is built with ocamlc and no run task is registered.
package ocaml

import (
	"github.com/specialistvlad/buildgrid/internal/registry"
	"github.com/specialistvlad/buildgrid/modules/lang"
)

// PluginID is the identifier of this plugin.
const PluginID = "lang.ocaml"

// ExtensionName is the name of the application extension and its compile
// task.
const ExtensionName = "ocamlApplication"

// KeyStandalone selects a native executable over a library archive.
const KeyStandalone = "standalone"

func standalone(app *lang.Application) (bool, error) {
	return app.Ext.Bool(KeyStandalone)
}

// Toolchain builds ocamlopt / ocamlc command lines.
var Toolchain = &lang.Toolchain{
	PluginID:     PluginID,
	Extension:    ExtensionName,
	OutputSubdir: "ocaml",
	Defaults:     map[string]any{KeyStandalone: true},
	ProductSuffix: func(app *lang.Application) (string, error) {
		native, err := standalone(app)
		if err != nil || native {
			return lang.ExecutableSuffix(), err
		}
		return ".cma", nil
	},
	Compile: func(app *lang.Application) ([]string, error) {
		native, err := standalone(app)
		if err != nil {
			return nil, err
		}
		cmd := []string{"ocamlc", "-a"}
		if native {
			cmd = []string{"ocamlopt"}
		}
		cmd = append(cmd, app.Flags...)
		cmd = append(cmd, "-o", app.Product)
		return append(cmd, app.Srcs...), nil
	},
	Runnable: standalone,
}

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the plugin with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterPlugin(PluginID, &registry.RegisteredPlugin{
		Description: "Builds and runs OCaml applications.",
		Fn:          Toolchain.Apply,
	})
}
