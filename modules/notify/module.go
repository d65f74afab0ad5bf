// Package notify provides the `notify` plugin. Once a `url` is configured it
// registers a `notify` task that reports the end of selected tasks to a
// socket.io server, wired in as their finalizer so it runs on failure too.
package notify

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/project"
	"github.com/specialistvlad/buildgrid/internal/registry"
	"github.com/specialistvlad/buildgrid/internal/task"
)

// PluginID is the identifier of this plugin.
const PluginID = "notify"

// TaskName is the name of the registered task and of the extension.
const TaskName = "notify"

// Extension keys.
const (
	KeyURL                = "url"
	KeyNamespace          = "namespace"
	KeyEvent              = "event"
	KeyReplyEvent         = "reply_event"
	KeyTimeout            = "timeout"
	KeyInsecureSkipVerify = "insecure_skip_verify"
	KeyFinalize           = "finalize"
	KeyData               = "data"
)

const defaultTimeout = 10 * time.Second

// Config is the resolved `notify` extension.
type Config struct {
	URL                string
	Namespace          string
	Event              string
	ReplyEvent         string
	Timeout            time.Duration
	InsecureSkipVerify bool
	Finalize           []string
	Data               map[string]string
}

// Message is the payload sent to the server.
type Message struct {
	Project string            `json:"project"`
	Task    string            `json:"task"`
	Tasks   []string          `json:"tasks"`
	Data    map[string]string `json:"data,omitempty"`
	SentAt  time.Time         `json:"sent_at"`
}

// Emitter delivers a message. Implementations block until delivery is
// confirmed or ctx ends.
type Emitter interface {
	Emit(ctx context.Context, cfg Config, msg Message) (reply any, err error)
}

// Module implements the registry.Module interface for this package.
type Module struct {
	// Emitter overrides the socket.io client. Nil uses SocketEmitter.
	Emitter Emitter
}

// Register registers the plugin with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterPlugin(PluginID, &registry.RegisteredPlugin{
		Description: "Sends a socket.io event when selected tasks finish.",
		Fn:          m.Apply,
	})
}

// Apply registers the `notify` extension and, once it is configured with a
// url, the `notify` task.
func (m *Module) Apply(p *project.Project) error {
	ext, err := p.RegisterExtension(TaskName, project.ExtensionType{
		Kind: PluginID,
		Defaults: map[string]any{
			KeyURL:                "",
			KeyNamespace:          "/",
			KeyEvent:              "build",
			KeyReplyEvent:         "",
			KeyTimeout:            defaultTimeout.String(),
			KeyInsecureSkipVerify: false,
			KeyFinalize:           []string{},
		},
	})
	if err != nil {
		return err
	}

	return p.AfterEvaluate(func(p *project.Project) error {
		cfg, err := ReadConfig(ext)
		if err != nil || cfg.URL == "" {
			return err
		}
		if _, err := p.RegisterTask(TaskName, m.action(p, cfg),
			task.WithGroup("help"),
			task.WithDefault(false),
			task.WithDescription("Notifies "+cfg.URL+" about finished tasks."),
		); err != nil {
			return err
		}
		// Queued behind hooks of plugins applied later, which may still
		// register the tasks to finalize.
		return p.AfterEvaluate(func(p *project.Project) error {
			for _, name := range cfg.Finalize {
				t, ok := p.Task(name)
				if !ok {
					return fmt.Errorf("notify: task %q to finalize is not defined in project %s", name, p.PathString())
				}
				if err := t.FinalizeWith(TaskName); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// ReadConfig resolves the extension into a Config.
func ReadConfig(ext *project.Extension) (Config, error) {
	var (
		cfg Config
		err error
	)
	if cfg.URL, err = ext.String(KeyURL); err != nil {
		return cfg, err
	}
	if cfg.Namespace, err = ext.String(KeyNamespace); err != nil {
		return cfg, err
	}
	if cfg.Event, err = ext.String(KeyEvent); err != nil {
		return cfg, err
	}
	if cfg.ReplyEvent, err = ext.String(KeyReplyEvent); err != nil {
		return cfg, err
	}
	if cfg.InsecureSkipVerify, err = ext.Bool(KeyInsecureSkipVerify); err != nil {
		return cfg, err
	}
	if cfg.Finalize, err = ext.Strings(KeyFinalize); err != nil {
		return cfg, err
	}
	if cfg.Data, err = ext.StringMap(KeyData); err != nil {
		return cfg, err
	}
	timeout, err := ext.String(KeyTimeout)
	if err != nil {
		return cfg, err
	}
	if cfg.Timeout, err = time.ParseDuration(timeout); err != nil {
		return cfg, fmt.Errorf("notify: invalid timeout %q: %w", timeout, err)
	}
	if cfg.Timeout <= 0 {
		return cfg, fmt.Errorf("notify: timeout must be positive, got %s", cfg.Timeout)
	}
	if cfg.Event == "" {
		return cfg, fmt.Errorf("notify: event must not be empty")
	}
	return cfg, nil
}

func (m *Module) action(p *project.Project, cfg Config) task.Action {
	emitter := m.Emitter
	if emitter == nil {
		emitter = &SocketEmitter{}
	}
	projectPath := p.PathString()
	return task.ActionFunc(func(ctx context.Context, ec *task.ExecContext) (task.Result, error) {
		msg := Message{
			Project: projectPath,
			Task:    ec.Address,
			Tasks:   cfg.Finalize,
			Data:    cfg.Data,
			SentAt:  time.Now().UTC(),
		}
		ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()

		reply, err := emitter.Emit(ctx, cfg, msg)
		if err != nil {
			ctxlog.FromContext(ctx).Warn("Notification failed.", "url", cfg.URL, "error", err)
			return task.Result{}, err
		}
		out := ec.Stdout
		if out == nil {
			out = io.Discard
		}
		fmt.Fprintf(out, "sent %q to %s\n", cfg.Event, cfg.URL)
		if reply != nil {
			fmt.Fprintf(out, "reply: %v\n", reply)
		}
		return task.Succeeded("notified " + cfg.URL), nil
	})
}
