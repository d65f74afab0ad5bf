package address

import (
	"slices"
	"strings"
)

// Separator delimits project path segments and the task name.
const Separator = ":"

// Address identifies a task, optionally qualified by a project path.
type Address struct {
	// Absolute is set when the address started with a leading separator.
	Absolute bool
	// Project holds the project path segments, outermost first.
	Project []string
	// Task is the task name within the addressed project.
	Task string
}

// New returns an absolute address for task inside the project at projectPath.
func New(projectPath []string, task string) Address {
	return Address{Absolute: true, Project: slices.Clone(projectPath), Task: task}
}

// IsShort reports whether the address is a bare task name.
func (a Address) IsShort() bool {
	return !a.Absolute && len(a.Project) == 0
}

// Resolve anchors a relative address at base. Absolute addresses are
// returned unchanged.
func (a Address) Resolve(base []string) Address {
	if a.Absolute {
		return a
	}
	path := make([]string, 0, len(base)+len(a.Project))
	path = append(path, base...)
	path = append(path, a.Project...)
	return Address{Absolute: true, Project: path, Task: a.Task}
}

// String serializes the Address into its canonical representation.
func (a Address) String() string {
	var sb strings.Builder
	if a.Absolute {
		sb.WriteString(Separator)
	}
	for _, segment := range a.Project {
		sb.WriteString(segment)
		sb.WriteString(Separator)
	}
	sb.WriteString(a.Task)
	return sb.String()
}

// Equal checks whether two addresses are identical.
func (a Address) Equal(other Address) bool {
	return a.Absolute == other.Absolute && a.Task == other.Task && slices.Equal(a.Project, other.Project)
}

// ProjectPath formats a project path, using a lone separator for the root.
func ProjectPath(segments []string) string {
	return Separator + strings.Join(segments, Separator)
}
