package testutil

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/specialistvlad/buildgrid/internal/project"
	"github.com/specialistvlad/buildgrid/internal/registry"
	"github.com/specialistvlad/buildgrid/internal/task"
)

// SleeperPluginID is the plugin registered by SleeperModule.
const SleeperPluginID = "test.sleeper"

// SleeperModule registers a plugin whose `sleepers` extension declares
// recorded tasks from the build file:
//
//	sleepers {
//	  tasks = { a = [], b = ["a"] }   # task name => dependencies
//	  fail  = ["b"]                   # tasks reporting failure
//	}
type SleeperModule struct {
	Recorder *Recorder
	Sleep    time.Duration
}

// NewSleeperModule creates a module recording into a fresh Recorder.
func NewSleeperModule(d time.Duration) *SleeperModule {
	return &SleeperModule{Recorder: NewRecorder(), Sleep: d}
}

// Register implements the registry.Module interface.
func (m *SleeperModule) Register(r *registry.Registry) {
	r.RegisterPlugin(SleeperPluginID, &registry.RegisteredPlugin{
		Description: "recorded sleeping tasks for tests",
		Fn:          m.apply,
	})
}

func (m *SleeperModule) apply(p *project.Project) error {
	ext, err := p.RegisterExtension("sleepers", project.ExtensionType{
		Kind:     SleeperPluginID,
		Defaults: map[string]any{"fail": []string{}},
	})
	if err != nil {
		return err
	}
	return p.AfterEvaluate(func(p *project.Project) error {
		raw, err := ext.Get("tasks")
		if err != nil {
			return err
		}
		decl, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("sleepers: tasks must be an object, got %T", raw)
		}
		failing, err := ext.Strings("fail")
		if err != nil {
			return err
		}
		for _, name := range slices.Sorted(maps.Keys(decl)) {
			var deps []string
			list, _ := decl[name].([]any)
			for _, d := range list {
				deps = append(deps, fmt.Sprint(d))
			}
			act := m.Recorder.Sleep(m.Sleep)
			if slices.Contains(failing, name) {
				act = m.Recorder.Fail(name + " failed")
			}
			if _, err := p.RegisterTask(name, act, task.WithDependsOn(deps...)); err != nil {
				return err
			}
		}
		return nil
	})
}
