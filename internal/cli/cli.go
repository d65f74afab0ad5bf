package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/specialistvlad/buildgrid/internal/app"
	"github.com/specialistvlad/buildgrid/internal/registry"
	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitBuildFailed = 1
	ExitUsage       = 2
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

func usageError(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return &ExitError{Code: ExitUsage, Message: err.Error(), Err: err}
}

// options holds the raw flag values.
type options struct {
	file       string
	config     string
	jobs       int
	timeout    time.Duration
	report     string
	logLevel   string
	logFormat  string
	verbose    bool
	noState    bool
	dryRun     bool
	statusAddr string
}

// Execute runs the command line args and returns nil or an *ExitError.
func Execute(ctx context.Context, args []string, outW, errW io.Writer, modules ...registry.Module) error {
	root := NewRootCommand(outW, errW, modules...)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		return usageError(err)
	}
	return nil
}

// NewRootCommand creates the `buildgrid` command. Without modules the core
// plugins are used.
func NewRootCommand(outW, errW io.Writer, modules ...registry.Module) *cobra.Command {
	opts := &options{}
	defaults := app.DefaultConfig()

	root := &cobra.Command{
		Use:   "buildgrid [goals...]",
		Short: "Declarative, plugin-driven build orchestrator",
		Long: `buildgrid evaluates build.hcl files into a tree of projects, lets plugins
register tasks, and runs the requested goals with their dependencies on a
pool of workers.

Without goals every default task of the build is run.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts, args, modules)
			if err != nil {
				return err
			}
			if opts.dryRun {
				return printPlan(cmd, a)
			}
			return runBuild(cmd, a)
		},
	}
	root.SetOut(outW)
	root.SetErr(errW)

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.file, "file", "f", defaults.BuildPath, "Build file or directory of build files.")
	pf.StringVar(&opts.config, "config", "", "Settings file (default: "+app.SettingsFileName+" next to the build file).")
	pf.StringVar(&opts.logLevel, "log-level", defaults.LogLevel, "Logging level: 'debug', 'info', 'warn' or 'error'.")
	pf.StringVar(&opts.logFormat, "log-format", defaults.LogFormat, "Log output format: 'text' or 'json'.")

	f := root.Flags()
	f.IntVarP(&opts.jobs, "jobs", "j", defaults.Jobs, "Number of tasks run concurrently.")
	f.DurationVar(&opts.timeout, "timeout", 0, "Timeout for tasks that declare none (0 disables).")
	f.StringVar(&opts.report, "report", "", "Write the YAML execution report to this file.")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Show the output of every task.")
	f.BoolVar(&opts.noState, "no-state", false, "Disable up-to-date checks.")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Print the execution order without running anything.")
	f.StringVar(&opts.statusAddr, "status-addr", "", "Serve live task status over HTTP on this address.")

	root.AddCommand(newTasksCommand(opts, modules), newPlanCommand(opts, modules))
	return root
}

// buildConfig layers defaults, the settings file and explicitly set flags.
func buildConfig(cmd *cobra.Command, opts *options, goals []string) (*app.Config, error) {
	cfg := app.DefaultConfig()
	cfg.BuildPath = opts.file

	settingsPath, required := app.SettingsPathFor(cfg.BuildPath), false
	if opts.config != "" {
		settingsPath, required = opts.config, true
	}
	settings, err := app.LoadSettings(settingsPath, required)
	if err != nil {
		return nil, err
	}
	if err := settings.ApplyTo(&cfg); err != nil {
		return nil, err
	}

	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("jobs") {
		cfg.Jobs = opts.jobs
	}
	if changed("timeout") {
		cfg.TaskTimeout = opts.timeout
	}
	if changed("report") {
		cfg.ReportFile = opts.report
	}
	if changed("log-level") {
		cfg.LogLevel = strings.ToLower(opts.logLevel)
	}
	if changed("log-format") {
		cfg.LogFormat = strings.ToLower(opts.logFormat)
	}
	if changed("no-state") {
		cfg.NoState = opts.noState
	}
	if changed("status-addr") {
		cfg.StatusAddr = opts.statusAddr
	}
	cfg.Verbose = opts.verbose
	cfg.DryRun = opts.dryRun
	cfg.Goals = goals

	return app.NewConfig(cfg)
}

func newApp(cmd *cobra.Command, opts *options, goals []string, modules []registry.Module) (*app.App, error) {
	cfg, err := buildConfig(cmd, opts, goals)
	if err != nil {
		return nil, usageError(err)
	}
	a, err := app.NewApp(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, modules...)
	if err != nil {
		return nil, usageError(err)
	}
	return a, nil
}

func runBuild(cmd *cobra.Command, a *app.App) error {
	rep, err := a.Run(cmd.Context())
	if rep == nil {
		return usageError(err)
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}
	if code := rep.ExitCode(); code != ExitOK {
		return &ExitError{Code: code}
	}
	return nil
}

func printPlan(cmd *cobra.Command, a *app.App) error {
	g, err := a.Plan(cmd.Context())
	if err != nil {
		return usageError(err)
	}
	out := cmd.OutOrStdout()
	for i, n := range g.Order() {
		var marks []string
		if n.Goal {
			marks = append(marks, "goal")
		}
		if len(n.Finalizes) > 0 {
			marks = append(marks, "finalizer")
		}
		line := fmt.Sprintf("%3d. %s", i+1, n.ID())
		if len(marks) > 0 {
			line += " (" + strings.Join(marks, ", ") + ")"
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
