package engine

import (
	"context"
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/action"
	"github.com/specialistvlad/buildgrid/internal/buildfile"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/project"
	"github.com/specialistvlad/buildgrid/internal/task"
)

// Configure builds and freezes the project tree described by desc. Per
// project, plugins are applied first, then extension blocks are merged, then
// declared tasks registered, then child projects configured and finally the
// project's after-evaluate hooks run.
func Configure(ctx context.Context, desc *buildfile.Description, resolver project.PluginResolver) (*project.Project, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Configuration phase started.", "root", desc.Root.Name, "dir", desc.Root.Dir)

	root := project.NewRoot(desc.Root.Name, desc.Root.Dir, resolver)
	if err := configureProject(ctx, root, desc.Root); err != nil {
		return nil, err
	}
	root.Freeze()

	count := 0
	_ = root.Walk(func(p *project.Project) error {
		count += len(p.Tasks())
		return nil
	})
	logger.Debug("Configuration phase finished.", "tasks", count)
	return root, nil
}

func configureProject(ctx context.Context, p *project.Project, decl *buildfile.ProjectDecl) error {
	logger := ctxlog.FromContext(ctx).With("project", p.PathString())

	for _, id := range decl.Apply {
		logger.Debug("Applying plugin.", "plugin", id)
		if err := p.Apply(id); err != nil {
			return err
		}
	}

	for _, ed := range decl.Extensions {
		ext, ok := p.Extension(ed.Name)
		if !ok {
			return &project.ConfigurationError{
				Project: p.PathString(),
				Err:     fmt.Errorf("extension %q is not registered; apply the plugin that provides it", ed.Name),
			}
		}
		if err := ext.Merge(ed.Values); err != nil {
			return &project.ConfigurationError{Project: p.PathString(), Err: err}
		}
	}

	for _, td := range decl.Tasks {
		if _, err := p.RegisterTask(td.Name, taskAction(td), taskOptions(td)...); err != nil {
			return err
		}
	}

	for _, cd := range decl.Children {
		child, err := p.GetOrCreateProject(cd.Name)
		if err != nil {
			return &project.ConfigurationError{Project: p.PathString(), Err: err}
		}
		if cd.Dir != "" {
			if err := child.SetDir(cd.Dir); err != nil {
				return &project.ConfigurationError{Project: child.PathString(), Err: err}
			}
		}
		if err := configureProject(ctx, child, cd); err != nil {
			return err
		}
	}

	return p.Evaluated()
}

func taskAction(td *buildfile.TaskDecl) task.Action {
	if len(td.Command) == 0 {
		return nil
	}
	return &action.Command{Args: td.Command, Env: td.Env, Dir: td.WorkingDir}
}

func taskOptions(td *buildfile.TaskDecl) []task.Option {
	opts := []task.Option{
		task.WithDependsOn(td.DependsOn...),
		task.WithFinalizedBy(td.FinalizedBy...),
		task.WithDescription(td.Description),
		task.WithGroup(td.Group),
		task.WithTimeout(td.Timeout),
		task.WithInputs(td.Inputs...),
		task.WithOutputs(td.Outputs...),
		task.WithResources(td.Resources...),
	}
	if td.Default != nil {
		opts = append(opts, task.WithDefault(*td.Default))
	}
	if td.Public != nil {
		opts = append(opts, task.WithPublic(*td.Public))
	}
	return opts
}
