package progress

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/specialistvlad/buildgrid/internal/address"
	"github.com/specialistvlad/buildgrid/internal/graph"
	"github.com/specialistvlad/buildgrid/internal/node"
	"github.com/specialistvlad/buildgrid/internal/report"
	"github.com/specialistvlad/buildgrid/internal/task"
	"github.com/stretchr/testify/assert"
)

func testNode(name string, opts ...task.Option) *graph.Node {
	return &graph.Node{Task: task.New(address.New(nil, name), nil, opts...)}
}

func TestPrinter_TaskLines(t *testing.T) {
	start := time.Now()
	result := node.Result{Started: start, Finished: start.Add(1500 * time.Millisecond), Output: "compiling Main\n"}

	tests := []struct {
		name       string
		n          *graph.Node
		status     node.Status
		result     node.Result
		cause      error
		verbose    bool
		want       []string
		wantOutput bool
	}{
		{name: "success hides output", n: testNode("compile"), status: node.StatusSucceeded, result: result, want: []string{"< :compile OK 1.5s"}},
		{name: "verbose shows output", n: testNode("compile"), status: node.StatusSucceeded, result: result, verbose: true, wantOutput: true},
		{name: "run group shows output", n: testNode("appRun", task.WithGroup(RunGroup)), status: node.StatusSucceeded, result: result, wantOutput: true},
		{name: "failure shows output and cause", n: testNode("compile"), status: node.StatusFailed, result: result, cause: errors.New("exit 1"), want: []string{"FAILED", "exit 1"}, wantOutput: true},
		{name: "up to date", n: testNode("compile"), status: node.StatusSucceeded, result: node.Result{UpToDate: true}, want: []string{"UP-TO-DATE"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			p := New(&buf, tt.verbose)

			p.TaskStarted(context.Background(), tt.n)
			p.TaskFinished(context.Background(), tt.n, tt.status, tt.result, tt.cause)

			out := buf.String()
			assert.Contains(t, out, "> "+tt.n.ID())
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			if tt.wantOutput {
				assert.Contains(t, out, "compiling Main")
			} else {
				assert.NotContains(t, out, "compiling Main")
			}
		})
	}
}

func TestPrinter_Summary(t *testing.T) {
	start := time.Now()
	r := &report.Report{
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
		Tasks: []report.TaskReport{
			{Address: ":compile", Outcome: report.OutcomeFailed, Cause: "exit 1"},
			{Address: ":run", Outcome: report.OutcomeSkipped, Cause: "dependency :compile FAILED"},
		},
	}
	var buf bytes.Buffer

	New(&buf, false).PrintSummary(r)

	out := buf.String()
	assert.Contains(t, out, "BUILD FAILED in 1s")
	assert.Contains(t, out, "0 succeeded, 1 failed, 1 skipped, 0 not executed")
	assert.Contains(t, out, ":compile: exit 1")
	assert.Contains(t, out, ":run: dependency :compile FAILED")
}
