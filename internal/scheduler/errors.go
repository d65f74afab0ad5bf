package scheduler

import (
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/node"
)

// DependencyError is the cause recorded for a task skipped because one of
// its dependencies did not succeed.
type DependencyError struct {
	Dependency string
	Status     node.Status
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %s %s", e.Dependency, e.Status)
}
