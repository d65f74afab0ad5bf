package action

import (
	"context"
	"fmt"
	"os"

	"github.com/specialistvlad/buildgrid/internal/task"
)

// MakeDir creates a directory and any missing parents.
type MakeDir struct {
	Path string
}

// Execute implements task.Action.
func (m *MakeDir) Execute(_ context.Context, ec *task.ExecContext) (task.Result, error) {
	path := resolve(ec.Dir, m.Path)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return task.Result{}, fmt.Errorf("creating %s: %w", path, err)
	}
	return task.Succeeded("created " + path), nil
}

// RemoveAll deletes a file or directory tree. A missing path is not an error.
type RemoveAll struct {
	Path string
}

// Execute implements task.Action.
func (r *RemoveAll) Execute(_ context.Context, ec *task.ExecContext) (task.Result, error) {
	path := resolve(ec.Dir, r.Path)
	if err := os.RemoveAll(path); err != nil {
		return task.Result{}, fmt.Errorf("removing %s: %w", path, err)
	}
	return task.Succeeded("removed " + path), nil
}
