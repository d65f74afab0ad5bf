package project

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/task"
)

var (
	// ErrConfiguration is the class of all configuration-phase errors.
	ErrConfiguration = errors.New("configuration error")
	// ErrFrozen is returned for registration attempts after Freeze.
	ErrFrozen = task.ErrFrozen
)

// DuplicateExtensionError is returned when an extension name is registered
// twice with different kinds.
type DuplicateExtensionError struct {
	Project      string
	Name         string
	ExistingKind string
	Kind         string
}

func (e *DuplicateExtensionError) Error() string {
	return fmt.Sprintf("project %s: extension %q already registered as %q, cannot register as %q",
		e.Project, e.Name, e.ExistingKind, e.Kind)
}

func (e *DuplicateExtensionError) Unwrap() error { return ErrConfiguration }

// DuplicateTaskError is returned when a task name already exists in a project.
type DuplicateTaskError struct {
	Project string
	Name    string
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("project %s: task %q already registered", e.Project, e.Name)
}

func (e *DuplicateTaskError) Unwrap() error { return ErrConfiguration }

// ConfigurationError wraps a failure raised while applying a plugin or
// evaluating a project's declarations.
type ConfigurationError struct {
	Project  string
	PluginID string
	Err      error
}

func (e *ConfigurationError) Error() string {
	if e.PluginID == "" {
		return fmt.Sprintf("configuring project %s: %v", e.Project, e.Err)
	}
	return fmt.Sprintf("applying plugin %q to project %s: %v", e.PluginID, e.Project, e.Err)
}

// Unwrap exposes both the class sentinel and the underlying cause.
func (e *ConfigurationError) Unwrap() []error { return []error{ErrConfiguration, e.Err} }
