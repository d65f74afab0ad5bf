// Package report aggregates the per-task outcomes of a run into the
// Execution Report handed back to the caller.
package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/specialistvlad/buildgrid/internal/graph"
	"github.com/specialistvlad/buildgrid/internal/node"
	"github.com/specialistvlad/buildgrid/internal/nodestore"
	"gopkg.in/yaml.v3"
)

// Outcome is the final, caller-facing result of one task.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	// OutcomeSkipped means the task never ran because of an upstream
	// failure or cancellation.
	OutcomeSkipped     Outcome = "skipped"
	OutcomeNotExecuted Outcome = "not-executed"
)

// OutcomeOf maps a terminal status to its Outcome.
func OutcomeOf(status node.Status) Outcome {
	switch status {
	case node.StatusSucceeded:
		return OutcomeSucceeded
	case node.StatusFailed:
		return OutcomeFailed
	case node.StatusSkipped:
		return OutcomeSkipped
	}
	return OutcomeNotExecuted
}

// TaskReport is the report line of one task.
type TaskReport struct {
	Address  string        `yaml:"address"`
	Outcome  Outcome       `yaml:"outcome"`
	Goal     bool          `yaml:"goal,omitempty"`
	Cause    string        `yaml:"cause,omitempty"`
	Message  string        `yaml:"message,omitempty"`
	UpToDate bool          `yaml:"up_to_date,omitempty"`
	Duration time.Duration `yaml:"duration"`
	Output   string        `yaml:"-"`
	Err      error         `yaml:"-"`
}

// Report is the Execution Report of one run. It is read-only once built.
type Report struct {
	RunID      string       `yaml:"run_id"`
	Goals      []string     `yaml:"goals"`
	Success    bool         `yaml:"success"`
	StartedAt  time.Time    `yaml:"started_at"`
	FinishedAt time.Time    `yaml:"finished_at"`
	Tasks      []TaskReport `yaml:"tasks"`
}

// Build assembles the report from the final state of a run. Tasks are listed
// in the graph's topological order.
func Build(ctx context.Context, runID string, g *graph.Graph, store nodestore.Store, started, finished time.Time) (*Report, error) {
	r := &Report{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: finished,
		Success:    true,
	}

	statuses := make(map[string]node.Status, g.Len())
	for _, n := range g.Order() {
		status, err := store.GetStatus(ctx, n.ID())
		if err != nil {
			return nil, fmt.Errorf("reading status of %s: %w", n.ID(), err)
		}
		statuses[n.ID()] = status
		result, err := store.GetResult(ctx, n.ID())
		if err != nil {
			return nil, fmt.Errorf("reading result of %s: %w", n.ID(), err)
		}
		cause, err := store.GetError(ctx, n.ID())
		if err != nil {
			return nil, fmt.Errorf("reading error of %s: %w", n.ID(), err)
		}

		tr := TaskReport{
			Address:  n.ID(),
			Outcome:  OutcomeOf(status),
			Goal:     n.Goal,
			Message:  result.Message,
			UpToDate: result.UpToDate,
			Duration: result.Duration(),
			Output:   result.Output,
			Err:      cause,
		}
		if cause != nil {
			tr.Cause = cause.Error()
		}
		r.Tasks = append(r.Tasks, tr)
	}

	for _, n := range g.Goals() {
		r.Goals = append(r.Goals, n.ID())
		if statuses[n.ID()] != node.StatusSucceeded {
			r.Success = false
		}
	}
	return r, nil
}

// Task returns the report line for id.
func (r *Report) Task(id string) (TaskReport, bool) {
	for _, tr := range r.Tasks {
		if tr.Address == id {
			return tr, true
		}
	}
	return TaskReport{}, false
}

// Outcome returns the outcome of id, OutcomeNotExecuted if absent.
func (r *Report) Outcome(id string) Outcome {
	if tr, ok := r.Task(id); ok {
		return tr.Outcome
	}
	return OutcomeNotExecuted
}

// Failed returns the report lines of tasks that failed.
func (r *Report) Failed() []TaskReport {
	var out []TaskReport
	for _, tr := range r.Tasks {
		if tr.Outcome == OutcomeFailed {
			out = append(out, tr)
		}
	}
	return out
}

// Count returns how many tasks ended with outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, tr := range r.Tasks {
		if tr.Outcome == o {
			n++
		}
	}
	return n
}

// Duration returns the wall-clock time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ExitCode returns 0 when every requested goal succeeded and 1 otherwise.
func (r *Report) ExitCode() int {
	if r.Success {
		return 0
	}
	return 1
}

// Summary renders a short plain-text account of the run.
func (r *Report) Summary() string {
	var sb strings.Builder
	verdict := "BUILD SUCCESSFUL"
	if !r.Success {
		verdict = "BUILD FAILED"
	}
	fmt.Fprintf(&sb, "%s in %s: %d succeeded, %d failed, %d skipped, %d not executed\n",
		verdict, r.Duration().Round(time.Millisecond),
		r.Count(OutcomeSucceeded), r.Count(OutcomeFailed), r.Count(OutcomeSkipped), r.Count(OutcomeNotExecuted))
	for _, tr := range r.Failed() {
		fmt.Fprintf(&sb, "  %s: %s\n", tr.Address, tr.Cause)
	}
	return sb.String()
}

// WriteYAML encodes the report as YAML.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return enc.Close()
}

// WriteFile writes the YAML report to path, creating parent directories.
func (r *Report) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	if err := r.WriteYAML(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
