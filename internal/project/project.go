package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/specialistvlad/buildgrid/internal/address"
	"github.com/specialistvlad/buildgrid/internal/task"
)

// BuildDirName is the name of a project's build output directory.
const BuildDirName = ".build"

// PluginFunc is the configuration logic of a plugin. It may register
// extensions and tasks on the project and apply further plugins.
type PluginFunc func(p *Project) error

// PluginResolver maps plugin identifiers to their configuration logic.
type PluginResolver interface {
	Resolve(pluginID string) (PluginFunc, error)
}

// state is shared by every project of one tree.
type state struct {
	resolver PluginResolver
	frozen   bool
}

// Project is one node of the build's project tree.
type Project struct {
	name       string
	path       []string
	parent     *Project
	children   []*Project
	dir        string
	extensions map[string]*Extension
	tasks      map[string]*task.Task
	taskOrder  []string
	applied    map[string]bool
	plugins    []string
	hooks      []PluginFunc
	state      *state
}

// NewRoot creates the root project of a new build. The resolver is used by
// Apply for every project of the tree.
func NewRoot(name, dir string, resolver PluginResolver) *Project {
	return newProject(name, nil, nil, dir, &state{resolver: resolver})
}

func newProject(name string, path []string, parent *Project, dir string, st *state) *Project {
	return &Project{
		name:       name,
		path:       path,
		parent:     parent,
		dir:        dir,
		extensions: make(map[string]*Extension),
		tasks:      make(map[string]*task.Task),
		applied:    make(map[string]bool),
		state:      st,
	}
}

func (p *Project) Name() string         { return p.name }
func (p *Project) Parent() *Project     { return p.parent }
func (p *Project) Dir() string          { return p.dir }
func (p *Project) BuildDir() string     { return filepath.Join(p.dir, BuildDirName) }
func (p *Project) Path() []string       { return slices.Clone(p.path) }
func (p *Project) PathString() string   { return address.ProjectPath(p.path) }
func (p *Project) Children() []*Project { return slices.Clone(p.children) }
func (p *Project) Frozen() bool         { return p.state.frozen }

// Plugins returns the identifiers of plugins applied to this project, in
// application order.
func (p *Project) Plugins() []string { return slices.Clone(p.plugins) }

// Root returns the root of the tree p belongs to.
func (p *Project) Root() *Project {
	for p.parent != nil {
		p = p.parent
	}
	return p
}

// SetDir overrides the project's directory.
func (p *Project) SetDir(dir string) error {
	if p.state.frozen {
		return ErrFrozen
	}
	p.dir = dir
	return nil
}

// GetOrCreateProject returns the child named name, creating an empty one in
// the subdirectory of the same name when absent.
func (p *Project) GetOrCreateProject(name string) (*Project, error) {
	if child := p.Child(name); child != nil {
		return child, nil
	}
	if p.state.frozen {
		return nil, ErrFrozen
	}
	if err := address.ValidName(name); err != nil {
		return nil, fmt.Errorf("project %s: %w", p.PathString(), err)
	}
	path := append(slices.Clone(p.path), name)
	child := newProject(name, path, p, filepath.Join(p.dir, name), p.state)
	p.children = append(p.children, child)
	return child, nil
}

// Child returns the direct child named name, or nil.
func (p *Project) Child(name string) *Project {
	for _, child := range p.children {
		if child.name == name {
			return child
		}
	}
	return nil
}

// Lookup returns the descendant at the relative path, or nil.
func (p *Project) Lookup(path []string) *Project {
	cur := p
	for _, name := range path {
		if cur = cur.Child(name); cur == nil {
			return nil
		}
	}
	return cur
}

// Walk visits p and its descendants depth-first, parents before children.
func (p *Project) Walk(fn func(*Project) error) error {
	if err := fn(p); err != nil {
		return err
	}
	for _, child := range p.children {
		if err := child.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// RegisterExtension attaches a new extension named name. Registering the same
// name again with the same kind returns the existing instance.
func (p *Project) RegisterExtension(name string, typ ExtensionType) (*Extension, error) {
	if existing, ok := p.extensions[name]; ok {
		if existing.kind != typ.Kind {
			return nil, &DuplicateExtensionError{
				Project:      p.PathString(),
				Name:         name,
				ExistingKind: existing.kind,
				Kind:         typ.Kind,
			}
		}
		return existing, nil
	}
	if p.state.frozen {
		return nil, ErrFrozen
	}
	ext, err := newExtension(p.PathString(), name, typ)
	if err != nil {
		return nil, err
	}
	p.extensions[name] = ext
	return ext, nil
}

// Extension returns the extension named name.
func (p *Project) Extension(name string) (*Extension, bool) {
	ext, ok := p.extensions[name]
	return ext, ok
}

// Extensions returns all extensions sorted by name.
func (p *Project) Extensions() []*Extension {
	out := make([]*Extension, 0, len(p.extensions))
	for _, ext := range p.extensions {
		out = append(out, ext)
	}
	slices.SortFunc(out, func(a, b *Extension) int {
		switch {
		case a.name < b.name:
			return -1
		case a.name > b.name:
			return 1
		}
		return 0
	})
	return out
}

// RegisterTask creates a task named name in this project. Dependency and
// finalizer addresses passed through opts are stored unresolved.
func (p *Project) RegisterTask(name string, action task.Action, opts ...task.Option) (*task.Task, error) {
	if p.state.frozen {
		return nil, ErrFrozen
	}
	if err := address.ValidName(name); err != nil {
		return nil, fmt.Errorf("project %s: %w", p.PathString(), err)
	}
	if _, ok := p.tasks[name]; ok {
		return nil, &DuplicateTaskError{Project: p.PathString(), Name: name}
	}
	opts = append([]task.Option{task.WithDirs(p.dir, p.BuildDir())}, opts...)
	t := task.New(address.New(p.path, name), action, opts...)
	p.tasks[name] = t
	p.taskOrder = append(p.taskOrder, name)
	return t, nil
}

// Task returns the task named name.
func (p *Project) Task(name string) (*task.Task, bool) {
	t, ok := p.tasks[name]
	return t, ok
}

// Tasks returns the project's tasks in registration order.
func (p *Project) Tasks() []*task.Task {
	out := make([]*task.Task, 0, len(p.taskOrder))
	for _, name := range p.taskOrder {
		out = append(out, p.tasks[name])
	}
	return out
}

// AfterEvaluate queues fn to run once the project's declarations have been
// evaluated. Plugins use it to register tasks conditioned on extension
// contents.
func (p *Project) AfterEvaluate(fn PluginFunc) error {
	if p.state.frozen {
		return ErrFrozen
	}
	p.hooks = append(p.hooks, fn)
	return nil
}

// Evaluated runs and clears the queued after-evaluate hooks. Hooks queued by
// a running hook are run in the same call.
func (p *Project) Evaluated() error {
	for len(p.hooks) > 0 {
		fn := p.hooks[0]
		p.hooks = p.hooks[1:]
		if err := fn(p); err != nil {
			var cfgErr *ConfigurationError
			if errors.As(err, &cfgErr) {
				return err
			}
			return p.wrap("", err)
		}
	}
	return nil
}

// Freeze ends the configuration phase for the whole tree.
func (p *Project) Freeze() {
	root := p.Root()
	_ = root.Walk(func(cur *Project) error {
		for _, t := range cur.tasks {
			t.Freeze()
		}
		for _, ext := range cur.extensions {
			ext.frozen = true
		}
		return nil
	})
	root.state.frozen = true
}

func (p *Project) wrap(pluginID string, err error) error {
	return &ConfigurationError{Project: p.PathString(), PluginID: pluginID, Err: err}
}
