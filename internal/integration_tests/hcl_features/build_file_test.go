package hcl_features

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/buildgrid/internal/report"
	"github.com/specialistvlad/buildgrid/internal/testutil/apptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHCLFeatures_EnvInterpolation validates that env.NAME resolves to the
// process environment while the build file is loaded.
func TestHCLFeatures_EnvInterpolation(t *testing.T) {
	// --- Arrange ---
	t.Setenv("BUILDGRID_GREETING", "hello-from-env")
	buildHCL := `
project "app" {
  task "greet" {
    command = ["sh", "-c", "echo ${env.BUILDGRID_GREETING}"]
  }
}
`

	// --- Act ---
	result := apptest.RunIntegrationTest(t, map[string]string{"build.hcl": buildHCL}, []string{"greet"})

	// --- Assert ---
	require.NoError(t, result.Err)
	require.True(t, result.Report.Success)
	greet, ok := result.Report.Task(":greet")
	require.True(t, ok)
	assert.Equal(t, "hello-from-env\n", greet.Output)
}

// TestHCLFeatures_MultipleFilesMerge validates that every build file of a
// directory contributes to the same root project.
func TestHCLFeatures_MultipleFilesMerge(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	files := map[string]string{
		"a_compile.hcl": `
project "app" {
  task "compile" {
    command = ["sh", "-c", "echo compiled > compiled.txt"]
  }
}
`,
		"b_test.hcl": `
project "app" {
  task "test" {
    depends_on = ["compile"]
    command    = ["test", "-f", "compiled.txt"]
  }
}
`,
	}

	// --- Act ---
	result := apptest.RunIntegrationTest(t, files, []string{"test"})

	// --- Assert ---
	require.NoError(t, result.Err)
	require.True(t, result.Report.Success)
	assert.Equal(t, report.OutcomeSucceeded, result.Report.Outcome(":compile"))
	assert.Equal(t, report.OutcomeSucceeded, result.Report.Outcome(":test"))
}

// TestHCLFeatures_ConflictingRootProjects validates that two files naming
// different root projects are rejected.
func TestHCLFeatures_ConflictingRootProjects(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	files := map[string]string{
		"a.hcl": `project "one" {}`,
		"b.hcl": `project "two" {}`,
	}

	// --- Act ---
	result := apptest.RunIntegrationTest(t, files, []string{"anything"})

	// --- Assert ---
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), `root project "two" conflicts with "one"`)
	assert.Nil(t, result.Report)
}

// TestHCLFeatures_SubprojectDirectories validates that child projects run
// their commands in their own directories, defaulting to the subdirectory
// named after the project.
func TestHCLFeatures_SubprojectDirectories(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	files := map[string]string{
		"build.hcl": `
project "root" {
  project "lib" {
    task "mark" {
      command = ["sh", "-c", "echo lib > marker.txt"]
    }
  }

  project "core" {
    dir = "modules/core"

    task "mark" {
      depends_on = [":lib:mark"]
      command    = ["sh", "-c", "echo core > marker.txt"]
    }
  }
}
`,
		"lib/README":          "lib",
		"modules/core/README": "core",
	}

	// --- Act ---
	result := apptest.RunIntegrationTest(t, files, []string{":core:mark"})

	// --- Assert ---
	require.NoError(t, result.Err)
	require.True(t, result.Report.Success)
	assert.Equal(t, []string{":core:mark"}, result.Report.Goals)

	lib, err := os.ReadFile(filepath.Join(result.Dir, "lib", "marker.txt"))
	require.NoError(t, err)
	assert.Equal(t, "lib\n", string(lib))
	core, err := os.ReadFile(filepath.Join(result.Dir, "modules", "core", "marker.txt"))
	require.NoError(t, err)
	assert.Equal(t, "core\n", string(core))
	assert.NoFileExists(t, filepath.Join(result.Dir, "marker.txt"))
}

// TestHCLFeatures_TaskEnvAndWorkingDir validates the env and working_dir
// task attributes.
func TestHCLFeatures_TaskEnvAndWorkingDir(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	files := map[string]string{
		"build.hcl": `
project "app" {
  task "write" {
    working_dir = "out"
    env = {
      TARGET = "release"
    }
    command = ["sh", "-c", "echo $TARGET > target.txt"]
  }
}
`,
		"out/README": "out",
	}

	// --- Act ---
	result := apptest.RunIntegrationTest(t, files, []string{"write"})

	// --- Assert ---
	require.NoError(t, result.Err)
	require.True(t, result.Report.Success)
	got, err := os.ReadFile(filepath.Join(result.Dir, "out", "target.txt"))
	require.NoError(t, err)
	assert.Equal(t, "release\n", string(got))
}

// TestHCLFeatures_DefaultTasks validates that default_tasks on the root
// project are used when no goal is requested.
func TestHCLFeatures_DefaultTasks(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	buildHCL := `
project "app" {
  default_tasks = ["second"]

  task "first" {
    command = ["true"]
  }
  task "second" {
    command = ["true"]
  }
}
`

	// --- Act ---
	result := apptest.RunIntegrationTest(t, map[string]string{"build.hcl": buildHCL}, nil)

	// --- Assert ---
	require.NoError(t, result.Err)
	require.True(t, result.Report.Success)
	assert.Equal(t, []string{":second"}, result.Report.Goals)
	_, ran := result.Report.Task(":first")
	assert.False(t, ran, "tasks outside the default set are not scheduled")
}

// TestHCLFeatures_InvalidTimeout validates that a malformed task timeout is
// reported as a load error.
func TestHCLFeatures_InvalidTimeout(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	buildHCL := `
project "app" {
  task "slow" {
    timeout = "soon"
  }
}
`

	// --- Act ---
	result := apptest.RunIntegrationTest(t, map[string]string{"build.hcl": buildHCL}, []string{"slow"})

	// --- Assert ---
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), `task "slow": invalid timeout`)
}
