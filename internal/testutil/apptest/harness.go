// Package apptest runs whole builds through the application for
// integration tests.
package apptest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/buildgrid/internal/app"
	"github.com/specialistvlad/buildgrid/internal/registry"
	"github.com/specialistvlad/buildgrid/internal/report"
	"github.com/specialistvlad/buildgrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	// Dir is the temporary directory holding the build files.
	Dir       string
	Output    string
	LogOutput string
	Report    *report.Report
	Err       error
	App       *app.App
}

// WriteFiles writes files, keyed by slash-separated relative path, below dir.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// RunIntegrationTest writes files into a temporary directory, builds goals
// with the given plugins and returns everything the run produced.
func RunIntegrationTest(t *testing.T, files map[string]string, goals []string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithConfig(context.Background(), t, files, func(cfg *app.Config) {
		cfg.Goals = goals
	}, modules...)
}

// RunIntegrationTestWithConfig is RunIntegrationTest with a caller-provided
// context and a hook adjusting the configuration before the app is created.
func RunIntegrationTestWithConfig(ctx context.Context, t *testing.T, files map[string]string, configure func(*app.Config), modules ...registry.Module) *HarnessResult {
	t.Helper()

	dir := t.TempDir()
	WriteFiles(t, dir, files)

	cfg := app.DefaultConfig()
	cfg.BuildPath = dir
	cfg.LogLevel = "debug"
	cfg.Jobs = 4
	if configure != nil {
		configure(&cfg)
	}
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	out := &testutil.SafeBuffer{}
	logs := &testutil.SafeBuffer{}
	res := &HarnessResult{Dir: dir}

	res.App, res.Err = app.NewApp(out, logs, appConfig, modules...)
	if res.Err == nil {
		res.Report, res.Err = res.App.Run(ctx)
	}

	if os.Getenv("BUILDGRID_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
	}
	res.Output = out.String()
	res.LogOutput = logs.String()
	return res
}
