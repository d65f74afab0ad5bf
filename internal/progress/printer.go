// Package progress prints task begin/end lines and the final summary of a
// run to the console.
package progress

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/specialistvlad/buildgrid/internal/executor"
	"github.com/specialistvlad/buildgrid/internal/graph"
	"github.com/specialistvlad/buildgrid/internal/node"
	"github.com/specialistvlad/buildgrid/internal/report"
)

// RunGroup is the task group whose output is always shown.
const RunGroup = "run"

type styles struct {
	task    lipgloss.Style
	ok      lipgloss.Style
	failed  lipgloss.Style
	skipped lipgloss.Style
	muted   lipgloss.Style
	output  lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		task:    r.NewStyle().Bold(true),
		ok:      r.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		failed:  r.NewStyle().Foreground(lipgloss.Color("#F38BA8")).Bold(true),
		skipped: r.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		output:  r.NewStyle().PaddingLeft(4),
	}
}

// Printer is an executor.Listener writing human-readable progress. Captured
// task output is echoed for failed tasks, tasks of the run group, or every
// task when verbose.
type Printer struct {
	w       io.Writer
	verbose bool
	st      styles
}

var _ executor.Listener = (*Printer)(nil)

// New creates a printer writing to w. Colors are used only when w is a
// terminal.
func New(w io.Writer, verbose bool) *Printer {
	return &Printer{w: w, verbose: verbose, st: newStyles(lipgloss.NewRenderer(w))}
}

// TaskStarted implements executor.Listener.
func (p *Printer) TaskStarted(_ context.Context, n *graph.Node) {
	fmt.Fprintf(p.w, "%s %s\n", p.st.muted.Render(">"), p.st.task.Render(n.ID()))
}

// TaskFinished implements executor.Listener.
func (p *Printer) TaskFinished(_ context.Context, n *graph.Node, status node.Status, result node.Result, cause error) {
	var verdict string
	switch {
	case status == node.StatusSucceeded && result.UpToDate:
		verdict = p.st.muted.Render("UP-TO-DATE")
	case status == node.StatusSucceeded:
		verdict = p.st.ok.Render("OK")
	case status == node.StatusFailed:
		verdict = p.st.failed.Render("FAILED")
	default:
		verdict = p.st.skipped.Render(status.String())
	}

	line := fmt.Sprintf("%s %s %s %s", p.st.muted.Render("<"), p.st.task.Render(n.ID()), verdict,
		p.st.muted.Render(result.Duration().Round(time.Millisecond).String()))
	if cause != nil {
		line += " " + cause.Error()
	}
	fmt.Fprintln(p.w, line)

	if p.showOutput(n, status) && strings.TrimSpace(result.Output) != "" {
		fmt.Fprintln(p.w, p.st.output.Render(strings.TrimRight(result.Output, "\n")))
	}
}

func (p *Printer) showOutput(n *graph.Node, status node.Status) bool {
	return p.verbose || status == node.StatusFailed || n.Task.Group() == RunGroup
}

// PrintSummary writes the closing verdict and the cause of every task that
// did not succeed.
func (p *Printer) PrintSummary(r *report.Report) {
	verdict := p.st.ok.Render("BUILD SUCCESSFUL")
	if !r.Success {
		verdict = p.st.failed.Render("BUILD FAILED")
	}
	fmt.Fprintf(p.w, "\n%s in %s\n", verdict, r.Duration().Round(time.Millisecond))
	fmt.Fprintf(p.w, "%d succeeded, %d failed, %d skipped, %d not executed\n",
		r.Count(report.OutcomeSucceeded), r.Count(report.OutcomeFailed),
		r.Count(report.OutcomeSkipped), r.Count(report.OutcomeNotExecuted))

	for _, tr := range r.Tasks {
		switch tr.Outcome {
		case report.OutcomeFailed:
			fmt.Fprintf(p.w, "  %s %s: %s\n", p.st.failed.Render("x"), tr.Address, tr.Cause)
		case report.OutcomeSkipped:
			fmt.Fprintf(p.w, "  %s %s: %s\n", p.st.skipped.Render("-"), tr.Address, tr.Cause)
		}
	}
}
