package action

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/task"
)

// waitDelay bounds how long a cancelled command may keep its pipes open.
const waitDelay = 2 * time.Second

// Command runs an external program. A non-zero exit is reported as an
// unsuccessful result; failing to start the program is an error.
type Command struct {
	Args []string
	// Env is added on top of the current process environment.
	Env map[string]string
	// Dir is the working directory, relative to the project directory.
	// Empty means the project directory itself.
	Dir string
}

// NewCommand creates a Command running args in the project directory.
func NewCommand(args ...string) *Command {
	return &Command{Args: args}
}

// Execute implements task.Action.
func (c *Command) Execute(ctx context.Context, ec *task.ExecContext) (task.Result, error) {
	if len(c.Args) == 0 {
		return task.Result{}, errors.New("command has no arguments")
	}

	// #nosec G204 - the argv comes from the build description
	cmd := exec.CommandContext(ctx, c.Args[0], c.Args[1:]...)
	cmd.Dir = resolve(ec.Dir, c.Dir)
	cmd.Env = c.environ()
	cmd.Stdout = ec.Stdout
	cmd.Stderr = ec.Stderr
	cmd.WaitDelay = waitDelay

	ctxlog.FromContext(ctx).Debug("Running command.", "args", c.Args, "dir", cmd.Dir)

	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return task.Succeeded(""), nil
	case ctx.Err() != nil:
		return task.Result{}, ctx.Err()
	case errors.As(err, &exitErr):
		return task.Failed(fmt.Sprintf("%s exited with code %d", c.String(), exitErr.ExitCode())), nil
	}
	return task.Result{}, fmt.Errorf("starting %s: %w", c.Args[0], err)
}

// String renders the command line.
func (c *Command) String() string {
	return strings.Join(c.Args, " ")
}

func (c *Command) environ() []string {
	env := os.Environ()
	for _, k := range slices.Sorted(maps.Keys(c.Env)) {
		env = append(env, k+"="+c.Env[k])
	}
	return env
}

// resolve joins path onto base unless it is already absolute.
func resolve(base, path string) string {
	if path == "" {
		return base
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
