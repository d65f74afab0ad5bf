package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/specialistvlad/buildgrid/internal/buildfile"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/engine"
	"github.com/specialistvlad/buildgrid/internal/executor"
	"github.com/specialistvlad/buildgrid/internal/graph"
	"github.com/specialistvlad/buildgrid/internal/progress"
	"github.com/specialistvlad/buildgrid/internal/project"
	"github.com/specialistvlad/buildgrid/internal/registry"
	"github.com/specialistvlad/buildgrid/internal/report"
	"github.com/specialistvlad/buildgrid/internal/statetracker"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	config   *Config
	loader   *buildfile.Loader

	root *project.Project
	desc *buildfile.Description
}

// NewApp is the constructor for the main application. Progress and results
// go to outW, logs to logW. Without modules the core plugins are registered.
func NewApp(outW, logW io.Writer, cfg *Config, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules
	}
	reg := registry.New(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules))

	if err := reg.ValidateRegistry(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Registry validation passed.")

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		config:   cfg,
		loader:   buildfile.NewLoader(),
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Load evaluates the build files and configures the project tree. It is
// called at most once; later calls return the cached tree.
func (a *App) Load(ctx context.Context) (*project.Project, error) {
	if a.root != nil {
		return a.root, nil
	}
	ctx = ctxlog.WithLogger(ctx, a.logger)

	desc, err := a.loader.Load(ctx, a.config.BuildPath)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Build files loaded.", "files", desc.Files)

	root, err := engine.Configure(ctx, desc, a.registry)
	if err != nil {
		return nil, err
	}
	a.root, a.desc = root, desc
	return root, nil
}

// Goals returns the requested goals, falling back to the configured default
// tasks, then to the root project's `default_tasks`, then to every default
// task of the tree.
func (a *App) Goals(ctx context.Context) ([]string, error) {
	root, err := a.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(a.config.Goals) > 0 {
		return a.config.Goals, nil
	}
	configured := a.config.DefaultTasks
	if len(configured) == 0 {
		configured = a.desc.Root.DefaultTasks
	}
	return engine.DefaultGoals(root, configured)
}

// Plan builds the task graph of the selected goals without running it.
func (a *App) Plan(ctx context.Context) (*graph.Graph, error) {
	goals, err := a.Goals(ctx)
	if err != nil {
		return nil, err
	}
	return engine.Plan(ctxlog.WithLogger(ctx, a.logger), a.root, goals)
}

// Run executes the selected goals and returns the report. Task failures are
// reported, not returned.
func (a *App) Run(ctx context.Context) (rep *report.Report, err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	g, err := a.Plan(ctx)
	if err != nil {
		return nil, err
	}

	printer := progress.New(a.outW, a.config.Verbose)
	opts := engine.RunOptions{Executor: executor.Options{
		RunID:       uuid.NewString(),
		Workers:     a.config.Jobs,
		TaskTimeout: a.config.TaskTimeout,
		Listeners:   []executor.Listener{printer},
	}}

	if a.config.StatusAddr != "" {
		board := newStatusBoard(opts.Executor.RunID, g)
		srv, err := startStatusServer(a.config.StatusAddr, board, a.logger)
		if err != nil {
			return nil, err
		}
		defer func() {
			if cerr := srv.Close(context.WithoutCancel(ctx)); cerr != nil {
				a.logger.Warn("Status server shutdown failed.", "error", cerr)
			}
		}()
		opts.Executor.Listeners = append(opts.Executor.Listeners, board)
	}

	var tracker *statetracker.Tracker
	if !a.config.NoState {
		if tracker, err = statetracker.Open(a.statePath()); err != nil {
			return nil, err
		}
		opts.Executor.Tracker = tracker
	}

	rep, err = engine.RunGraph(ctx, g, opts)
	if err != nil {
		return nil, err
	}

	if tracker != nil {
		if ferr := tracker.Flush(); ferr != nil {
			err = errors.Join(err, fmt.Errorf("saving state: %w", ferr))
		}
	}
	if a.config.ReportFile != "" {
		if werr := rep.WriteFile(a.config.ReportFile); werr != nil {
			err = errors.Join(err, fmt.Errorf("writing report: %w", werr))
		}
	}
	printer.PrintSummary(rep)

	a.logger.Debug("App.Run method finished.")
	return rep, err
}

func (a *App) statePath() string {
	path := a.config.StateFile
	if path == "" {
		path = statetracker.DefaultFile
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(a.root.Dir(), path)
}
