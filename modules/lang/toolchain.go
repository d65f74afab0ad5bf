// Package lang holds the logic shared by the language application plugins:
// an application extension that, once configured with sources, yields a
// compile task and a task running the compiled product.
package lang

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/specialistvlad/buildgrid/internal/action"
	"github.com/specialistvlad/buildgrid/internal/project"
	"github.com/specialistvlad/buildgrid/internal/task"
	"github.com/specialistvlad/buildgrid/modules/base"
)

// RunGroup is the task group of tasks that run a built product.
const RunGroup = "run"

// Extension keys common to every application extension.
const (
	KeySrcs            = "srcs"
	KeyProductName     = "product_name"
	KeyCompilerFlags   = "compiler_flags"
	KeyOutputDirectory = "output_directory"
)

// Application is the resolved configuration of one application extension.
type Application struct {
	Srcs      []string
	Flags     []string
	OutputDir string
	Product   string
	Ext       *project.Extension
}

// Toolchain describes how one language builds an application.
type Toolchain struct {
	// PluginID is the identifier the plugin is registered under.
	PluginID string
	// Extension is the name of the application extension, e.g.
	// "haskellApplication". The compile task shares the name.
	Extension string
	// OutputSubdir is the default output directory below the build
	// directory.
	OutputSubdir string
	// Defaults holds language-specific extension keys.
	Defaults map[string]any
	// ProductSuffix returns the file suffix of the product.
	ProductSuffix func(app *Application) (string, error)
	// Compile returns the compiler command line.
	Compile func(app *Application) ([]string, error)
	// Runnable reports whether the product can be executed. Nil means yes.
	Runnable func(app *Application) (bool, error)
}

// Apply is the plugin function of the toolchain.
func (tc *Toolchain) Apply(p *project.Project) error {
	if err := p.Apply(base.PluginID); err != nil {
		return err
	}

	defaults := map[string]any{
		KeySrcs:            []string{},
		KeyProductName:     "",
		KeyCompilerFlags:   []string{},
		KeyOutputDirectory: "",
	}
	for k, v := range tc.Defaults {
		defaults[k] = v
	}
	ext, err := p.RegisterExtension(tc.Extension, project.ExtensionType{Kind: tc.PluginID, Defaults: defaults})
	if err != nil {
		return err
	}

	return p.AfterEvaluate(func(p *project.Project) error {
		app, err := tc.Resolve(p, ext)
		if err != nil || app == nil {
			return err
		}
		return tc.register(p, app)
	})
}

// Resolve reads the extension into an Application. It returns nil when no
// sources are configured.
func (tc *Toolchain) Resolve(p *project.Project, ext *project.Extension) (*Application, error) {
	srcs, err := ext.Strings(KeySrcs)
	if err != nil || len(srcs) == 0 {
		return nil, err
	}
	flags, err := ext.Strings(KeyCompilerFlags)
	if err != nil {
		return nil, err
	}
	outDir, err := ext.String(KeyOutputDirectory)
	if err != nil {
		return nil, err
	}
	name, err := ext.String(KeyProductName)
	if err != nil {
		return nil, err
	}

	app := &Application{Flags: flags, Ext: ext}
	for _, src := range srcs {
		app.Srcs = append(app.Srcs, abs(p.Dir(), src))
	}
	switch outDir {
	case "":
		app.OutputDir = filepath.Join(p.BuildDir(), tc.OutputSubdir)
	default:
		app.OutputDir = abs(p.Dir(), outDir)
	}
	if name == "" {
		name = p.Name()
	}
	suffix := ""
	if tc.ProductSuffix != nil {
		if suffix, err = tc.ProductSuffix(app); err != nil {
			return nil, err
		}
	}
	app.Product = filepath.Join(app.OutputDir, name+suffix)
	return app, nil
}

func (tc *Toolchain) register(p *project.Project, app *Application) error {
	cmd, err := tc.Compile(app)
	if err != nil {
		return err
	}
	_, err = p.RegisterTask(tc.Extension,
		action.Sequence(&action.MakeDir{Path: app.OutputDir}, action.NewCommand(cmd...)),
		task.WithGroup(base.Group),
		task.WithDescription(fmt.Sprintf("Compiles %s.", filepath.Base(app.Product))),
		task.WithInputs(app.Srcs...),
		task.WithOutputs(app.Product),
	)
	if err != nil {
		return err
	}

	runnable := true
	if tc.Runnable != nil {
		if runnable, err = tc.Runnable(app); err != nil {
			return err
		}
	}
	if !runnable {
		return nil
	}
	_, err = p.RegisterTask(tc.Extension+"Run", action.NewCommand(app.Product),
		task.WithGroup(RunGroup),
		task.WithDefault(false),
		task.WithDescription(fmt.Sprintf("Runs %s.", filepath.Base(app.Product))),
		task.WithDependsOn(tc.Extension),
	)
	return err
}

// ExecutableSuffix is the platform's suffix for executables.
func ExecutableSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}

func abs(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
