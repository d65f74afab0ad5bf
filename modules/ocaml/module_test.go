package ocaml

import (
	"path/filepath"
	"testing"

	"github.com/specialistvlad/buildgrid/internal/project"
	"github.com/specialistvlad/buildgrid/internal/registry"
	"github.com/specialistvlad/buildgrid/modules/base"
	"github.com/specialistvlad/buildgrid/modules/lang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configure(t *testing.T, standalone bool) *project.Project {
	t.Helper()
	root := project.NewRoot("calc", t.TempDir(), registry.New(&base.Module{}, &Module{}))
	require.NoError(t, root.Apply(PluginID))
	ext, ok := root.Extension(ExtensionName)
	require.True(t, ok)
	require.NoError(t, ext.Set(lang.KeySrcs, []string{"calc.ml"}))
	require.NoError(t, ext.Set(lang.KeyCompilerFlags, []string{"-g"}))
	require.NoError(t, ext.Set(KeyStandalone, standalone))
	return root
}

func TestStandalone(t *testing.T) {
	root := configure(t, true)
	ext, _ := root.Extension(ExtensionName)

	app, err := Toolchain.Resolve(root, ext)
	require.NoError(t, err)
	cmd, err := Toolchain.Compile(app)
	require.NoError(t, err)

	product := filepath.Join(root.BuildDir(), "ocaml", "calc"+lang.ExecutableSuffix())
	assert.Equal(t, []string{"ocamlopt", "-g", "-o", product, filepath.Join(root.Dir(), "calc.ml")}, cmd)

	require.NoError(t, root.Evaluated())
	_, ok := root.Task(ExtensionName + "Run")
	assert.True(t, ok)
}

func TestLibraryArchive(t *testing.T) {
	root := configure(t, false)
	ext, _ := root.Extension(ExtensionName)

	app, err := Toolchain.Resolve(root, ext)
	require.NoError(t, err)
	cmd, err := Toolchain.Compile(app)
	require.NoError(t, err)

	product := filepath.Join(root.BuildDir(), "ocaml", "calc.cma")
	assert.Equal(t, []string{"ocamlc", "-a", "-g", "-o", product, filepath.Join(root.Dir(), "calc.ml")}, cmd)

	require.NoError(t, root.Evaluated())
	compile, ok := root.Task(ExtensionName)
	require.True(t, ok)
	assert.Equal(t, []string{product}, compile.Outputs())
	_, ok = root.Task(ExtensionName + "Run")
	assert.False(t, ok, "archives are not runnable")
}
