package cli

import (
	"fmt"
	"maps"
	"slices"

	"github.com/specialistvlad/buildgrid/internal/project"
	"github.com/specialistvlad/buildgrid/internal/registry"
	"github.com/specialistvlad/buildgrid/internal/task"
	"github.com/spf13/cobra"
)

const ungrouped = "other"

func newTasksCommand(opts *options, modules []registry.Module) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List the tasks of every project, by group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts, nil, modules)
			if err != nil {
				return err
			}
			root, err := a.Load(cmd.Context())
			if err != nil {
				return usageError(err)
			}
			out := cmd.OutOrStdout()
			return root.Walk(func(p *project.Project) error {
				groups := groupTasks(p.Tasks(), all)
				if len(groups) == 0 {
					return nil
				}
				fmt.Fprintf(out, "Project %s\n", p.PathString())
				for _, name := range slices.Sorted(maps.Keys(groups)) {
					fmt.Fprintf(out, "  %s\n", name)
					for _, t := range groups[name] {
						line := "    " + t.ID()
						if t.Description() != "" {
							line += " - " + t.Description()
						}
						if t.Default() {
							line += " [default]"
						}
						fmt.Fprintln(out, line)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include tasks that are not public.")
	return cmd
}

func groupTasks(tasks []*task.Task, all bool) map[string][]*task.Task {
	groups := make(map[string][]*task.Task)
	for _, t := range tasks {
		if !t.Public() && !all {
			continue
		}
		g := t.Group()
		if g == "" {
			g = ungrouped
		}
		groups[g] = append(groups[g], t)
	}
	return groups
}

func newPlanCommand(opts *options, modules []registry.Module) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [goals...]",
		Short: "Print the execution order of the goals without running them",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts, args, modules)
			if err != nil {
				return err
			}
			return printPlan(cmd, a)
		},
	}
}
