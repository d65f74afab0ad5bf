package module_contract

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/buildgrid/internal/registry"
	"github.com/specialistvlad/buildgrid/internal/report"
	"github.com/specialistvlad/buildgrid/internal/testutil/apptest"
	"github.com/specialistvlad/buildgrid/modules/base"
	"github.com/specialistvlad/buildgrid/modules/haskell"
	"github.com/specialistvlad/buildgrid/modules/help"
	"github.com/specialistvlad/buildgrid/modules/notify"
	"github.com/specialistvlad/buildgrid/modules/ocaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGHC accepts the ghc command line and produces a shell script made of
// the concatenated sources.
const fakeGHC = `#!/bin/sh
out=""
srcs=""
while [ $# -gt 0 ]; do
  case "$1" in
    -outputdir) shift 2 ;;
    -o) out="$2"; shift 2 ;;
    *) srcs="$srcs $1"; shift ;;
  esac
done
{ echo '#!/bin/sh'; cat $srcs; } > "$out"
chmod +x "$out"
`

type recordingEmitter struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (e *recordingEmitter) Emit(_ context.Context, _ notify.Config, msg notify.Message) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, msg)
	return "ack", nil
}

func (e *recordingEmitter) messages() []notify.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]notify.Message(nil), e.sent...)
}

func modules(em notify.Emitter) []registry.Module {
	return []registry.Module{
		&base.Module{},
		&help.Module{},
		&haskell.Module{},
		&ocaml.Module{},
		&notify.Module{Emitter: em},
	}
}

// TestModuleContract_HaskellCompileAndRun validates that a haskellApplication
// extension yields a compile task and a run task executing its product.
func TestModuleContract_HaskellCompileAndRun(t *testing.T) {
	// --- Arrange ---
	toolDir := t.TempDir()
	compiler := filepath.Join(toolDir, "ghc")
	require.NoError(t, os.WriteFile(compiler, []byte(fakeGHC), 0o755))
	t.Setenv("BUILDGRID_FAKE_GHC", compiler)

	files := map[string]string{
		"build.hcl": `
project "hsapp" {
  apply = ["lang.haskell"]

  extension "haskellApplication" {
    srcs     = ["src/Main.hs"]
    compiler = env.BUILDGRID_FAKE_GHC
  }
}
`,
		"src/Main.hs": "echo hello from haskell\n",
	}

	// --- Act ---
	result := apptest.RunIntegrationTest(t, files, []string{"haskellApplicationRun"}, modules(nil)...)

	// --- Assert ---
	require.NoError(t, result.Err)
	require.True(t, result.Report.Success, result.Report.Summary())
	assert.Equal(t, report.OutcomeSucceeded, result.Report.Outcome(":haskellApplication"))
	assert.Equal(t, report.OutcomeSucceeded, result.Report.Outcome(":haskellApplicationRun"))
	assert.Contains(t, result.Output, "hello from haskell")
	assert.FileExists(t, filepath.Join(result.Dir, ".build", "haskell", "hsapp"))
}

// TestModuleContract_OCamlLibraryHasNoRunTask validates that a non-standalone
// OCaml application registers a compile task only, and that the help plugin
// reports the extension.
func TestModuleContract_OCamlLibraryHasNoRunTask(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	files := map[string]string{
		"build.hcl": `
project "mllib" {
  apply = ["lang.ocaml", "help"]

  extension "ocamlApplication" {
    srcs       = ["lib.ml"]
    standalone = false
  }
}
`,
		"lib.ml": "let answer = 42\n",
	}

	// --- Act ---
	result := apptest.RunIntegrationTest(t, files, []string{"properties"}, modules(nil)...)

	// --- Assert ---
	require.NoError(t, result.Err)
	require.True(t, result.Report.Success)

	root, err := result.App.Load(context.Background())
	require.NoError(t, err)
	_, ok := root.Task(ocaml.ExtensionName)
	assert.True(t, ok)
	_, ok = root.Task(ocaml.ExtensionName + "Run")
	assert.False(t, ok, "libraries are not runnable")
	_, ok = root.Task("clean")
	assert.True(t, ok, "the base plugin is applied by the language plugin")

	props, ok := result.Report.Task(":properties")
	require.True(t, ok)
	assert.Contains(t, props.Output, "ocamlApplication (")
	assert.Contains(t, props.Output, "standalone = false")
	assert.Contains(t, props.Output, `srcs = ["lib.ml"]`)
}

// TestModuleContract_NotifyFinalizesFailedTask validates that the notify
// task runs after the tasks it finalizes, even when they fail.
func TestModuleContract_NotifyFinalizesFailedTask(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	files := map[string]string{
		"build.hcl": `
project "svc" {
  apply = ["notify"]

  extension "notify" {
    url      = "http://notifications.invalid"
    finalize = ["compile"]
    data = {
      channel = "builds"
    }
  }

  task "compile" {
    command = ["false"]
  }
}
`,
	}
	em := &recordingEmitter{}

	// --- Act ---
	result := apptest.RunIntegrationTest(t, files, []string{"compile"}, modules(em)...)

	// --- Assert ---
	require.NoError(t, result.Err)
	require.False(t, result.Report.Success)
	assert.Equal(t, report.OutcomeFailed, result.Report.Outcome(":compile"))
	assert.Equal(t, report.OutcomeSucceeded, result.Report.Outcome(":notify"))

	sent := em.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, ":", sent[0].Project)
	assert.Equal(t, ":notify", sent[0].Task)
	assert.Equal(t, []string{"compile"}, sent[0].Tasks)
	assert.Equal(t, map[string]string{"channel": "builds"}, sent[0].Data)
	notified, ok := result.Report.Task(":notify")
	require.True(t, ok)
	assert.Contains(t, notified.Output, `sent "build" to http://notifications.invalid`)
	assert.Contains(t, notified.Output, "reply: ack")
}

// TestModuleContract_NotifyUnknownFinalizeTask validates that naming a task
// the project does not define fails the configuration.
func TestModuleContract_NotifyUnknownFinalizeTask(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	files := map[string]string{
		"build.hcl": `
project "svc" {
  apply = ["notify"]

  extension "notify" {
    url      = "http://notifications.invalid"
    finalize = ["deploy"]
  }
}
`,
	}

	// --- Act ---
	result := apptest.RunIntegrationTest(t, files, []string{"notify"}, modules(&recordingEmitter{})...)

	// --- Assert ---
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), `task "deploy" to finalize is not defined`)
}
