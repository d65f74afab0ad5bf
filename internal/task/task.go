// Package task defines the schedulable unit of work and the contract its
// action implements.
package task

import (
	"context"
	"errors"
	"io"
	"slices"
	"time"

	"github.com/specialistvlad/buildgrid/internal/address"
)

// ErrFrozen is returned when a task is modified after the configuration
// phase has ended.
var ErrFrozen = errors.New("configuration phase has ended")

// Result is what an action reports back when it completes.
type Result struct {
	Success bool
	Message string
}

// Succeeded returns a successful Result carrying msg.
func Succeeded(msg string) Result {
	return Result{Success: true, Message: msg}
}

// Failed returns an unsuccessful Result carrying msg.
func Failed(msg string) Result {
	return Result{Success: false, Message: msg}
}

// ExecContext describes the environment an action runs in.
type ExecContext struct {
	// Address is the canonical address of the running task.
	Address string
	// Dir is the owning project's directory.
	Dir string
	// BuildDir is the owning project's build output directory.
	BuildDir string
	// Stdout and Stderr receive the action's output.
	Stdout io.Writer
	Stderr io.Writer
}

// Action is the opaque executable unit attached to a Task. The core only
// invokes it and inspects the Result.
type Action interface {
	Execute(ctx context.Context, ec *ExecContext) (Result, error)
}

// ActionFunc adapts a plain function to the Action interface.
type ActionFunc func(ctx context.Context, ec *ExecContext) (Result, error)

// Execute calls f(ctx, ec).
func (f ActionFunc) Execute(ctx context.Context, ec *ExecContext) (Result, error) {
	return f(ctx, ec)
}

// Task is a named unit of work. Dependencies and finalizers are stored as
// address strings relative to the owning project and resolved when the task
// graph is built.
type Task struct {
	addr        address.Address
	action      Action
	dependsOn   []string
	finalizedBy []string
	description string
	group       string
	isDefault   bool
	public      bool
	timeout     time.Duration
	resources   []string
	inputs      []string
	outputs     []string
	dir         string
	buildDir    string
	frozen      bool
}

// Option configures a Task at registration time.
type Option func(*Task)

// New creates a task at addr. Tasks are default and public unless an option
// says otherwise.
func New(addr address.Address, action Action, opts ...Option) *Task {
	t := &Task{
		addr:      addr,
		action:    action,
		isDefault: true,
		public:    true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithDependsOn appends dependency addresses.
func WithDependsOn(addrs ...string) Option {
	return func(t *Task) { t.dependsOn = appendUnique(t.dependsOn, addrs...) }
}

// WithFinalizedBy appends finalizer addresses.
func WithFinalizedBy(addrs ...string) Option {
	return func(t *Task) { t.finalizedBy = appendUnique(t.finalizedBy, addrs...) }
}

// WithDescription sets the human readable description.
func WithDescription(desc string) Option {
	return func(t *Task) { t.description = desc }
}

// WithGroup sets the task group, e.g. "build" or "run".
func WithGroup(group string) Option {
	return func(t *Task) { t.group = group }
}

// WithDefault controls whether the task is selected when no goal is given.
func WithDefault(isDefault bool) Option {
	return func(t *Task) { t.isDefault = isDefault }
}

// WithPublic controls whether the task is listed to users.
func WithPublic(public bool) Option {
	return func(t *Task) { t.public = public }
}

// WithTimeout sets a per-task execution timeout. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(t *Task) { t.timeout = d }
}

// WithResources names exclusive resources the task holds while running.
func WithResources(names ...string) Option {
	return func(t *Task) { t.resources = appendUnique(t.resources, names...) }
}

// WithInputs declares input file globs used for up-to-date detection.
func WithInputs(globs ...string) Option {
	return func(t *Task) { t.inputs = append(t.inputs, globs...) }
}

// WithOutputs declares output paths that must exist for the task to be
// considered up to date.
func WithOutputs(paths ...string) Option {
	return func(t *Task) { t.outputs = append(t.outputs, paths...) }
}

// WithDirs sets the project and build directories the action runs against.
func WithDirs(dir, buildDir string) Option {
	return func(t *Task) {
		t.dir = dir
		t.buildDir = buildDir
	}
}

func (t *Task) Address() address.Address { return t.addr }
func (t *Task) ID() string               { return t.addr.String() }
func (t *Task) Name() string             { return t.addr.Task }
func (t *Task) Action() Action           { return t.action }
func (t *Task) DependsOn() []string      { return slices.Clone(t.dependsOn) }
func (t *Task) FinalizedBy() []string    { return slices.Clone(t.finalizedBy) }
func (t *Task) Description() string      { return t.description }
func (t *Task) Group() string            { return t.group }
func (t *Task) Default() bool            { return t.isDefault }
func (t *Task) Public() bool             { return t.public }
func (t *Task) Timeout() time.Duration   { return t.timeout }
func (t *Task) Resources() []string      { return slices.Clone(t.resources) }
func (t *Task) Inputs() []string         { return slices.Clone(t.inputs) }
func (t *Task) Outputs() []string        { return slices.Clone(t.outputs) }
func (t *Task) Dir() string              { return t.dir }
func (t *Task) BuildDir() string         { return t.buildDir }

// DependOn adds dependency addresses during the configuration phase.
func (t *Task) DependOn(addrs ...string) error {
	if t.frozen {
		return ErrFrozen
	}
	t.dependsOn = appendUnique(t.dependsOn, addrs...)
	return nil
}

// FinalizeWith adds finalizer addresses during the configuration phase.
func (t *Task) FinalizeWith(addrs ...string) error {
	if t.frozen {
		return ErrFrozen
	}
	t.finalizedBy = appendUnique(t.finalizedBy, addrs...)
	return nil
}

// Freeze makes the dependency sets immutable.
func (t *Task) Freeze() {
	t.frozen = true
}

// Frozen reports whether Freeze has been called.
func (t *Task) Frozen() bool {
	return t.frozen
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}
