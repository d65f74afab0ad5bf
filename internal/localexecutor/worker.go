package localexecutor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/executor"
	"github.com/specialistvlad/buildgrid/internal/graph"
	"github.com/specialistvlad/buildgrid/internal/node"
	"github.com/specialistvlad/buildgrid/internal/task"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// lockedBuffer collects action output written from several goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type actionOutcome struct {
	res task.Result
	err error
}

// runTask executes one task and never returns an error: every failure mode
// is turned into a terminal status with a cause.
func (e *Executor) runTask(ctx context.Context, n *graph.Node) (c completion) {
	t := n.Task
	ctx, span := e.tracer.Start(ctx, "buildgrid.task", trace.WithAttributes(
		attribute.String("buildgrid.task.address", t.ID()),
		attribute.String("buildgrid.task.group", t.Group()),
	))
	defer span.End()
	ctx = ctxlog.With(ctx, "task", t.ID())
	logger := ctxlog.FromContext(ctx)

	c = completion{n: n, result: node.Result{Started: time.Now()}}
	defer func() {
		c.result.Finished = time.Now()
		if c.cause != nil {
			span.RecordError(c.cause)
			span.SetStatus(codes.Error, c.cause.Error())
		}
		span.SetAttributes(attribute.String("buildgrid.task.status", c.status.String()))
	}()

	fingerprint, upToDate := e.checkUpToDate(ctx, t)
	if upToDate {
		logger.Debug("Task is up to date, skipping action.")
		c.status = node.StatusSucceeded
		c.result.UpToDate = true
		c.result.Message = "up to date"
		return c
	}

	out := &lockedBuffer{}
	var w io.Writer = out
	if e.opts.Output != nil {
		w = io.MultiWriter(out, e.opts.Output)
	}
	ec := &task.ExecContext{
		Address:  t.ID(),
		Dir:      t.Dir(),
		BuildDir: t.BuildDir(),
		Stdout:   w,
		Stderr:   w,
	}

	res, err := e.invoke(ctx, t, ec)
	c.result.Output = out.String()
	c.result.Message = res.Message

	switch {
	case err != nil:
		c.status = node.StatusFailed
		c.cause = err
	case !res.Success:
		c.status = node.StatusFailed
		c.cause = &executor.ActionError{Task: t.ID(), Message: res.Message}
	default:
		c.status = node.StatusSucceeded
		if fingerprint != "" {
			if err := e.opts.Tracker.Record(ctx, t, fingerprint); err != nil {
				logger.Warn("Failed to record task state.", "error", err)
			}
		}
	}
	return c
}

// invoke runs the action under the task's timeout. An action that outlives
// its deadline or the run's cancellation is abandoned and reported failed.
func (e *Executor) invoke(ctx context.Context, t *task.Task, ec *task.ExecContext) (task.Result, error) {
	action := t.Action()
	if action == nil {
		return task.Succeeded(""), nil
	}

	timeout := e.opts.TimeoutFor(t)
	var (
		actx   context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		actx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		actx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	done := make(chan actionOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- actionOutcome{err: &executor.ActionError{Task: t.ID(), Err: fmt.Errorf("panic: %v", r)}}
			}
		}()
		res, err := action.Execute(actx, ec)
		done <- actionOutcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		if o.err == nil && o.res.Success {
			return o.res, nil
		}
		if cerr := e.interruption(ctx, actx, t, timeout); cerr != nil {
			return o.res, cerr
		}
		var actionErr *executor.ActionError
		if o.err != nil && !errors.As(o.err, &actionErr) {
			o.err = &executor.ActionError{Task: t.ID(), Message: o.res.Message, Err: o.err}
		}
		return o.res, o.err
	case <-actx.Done():
		return task.Result{}, e.interruption(ctx, actx, t, timeout)
	}
}

// interruption explains why actx ended early, or returns nil if it did not.
func (e *Executor) interruption(ctx, actx context.Context, t *task.Task, timeout time.Duration) error {
	if ctx.Err() != nil {
		return &executor.CancellationError{Task: t.ID(), Cause: context.Cause(ctx)}
	}
	if errors.Is(actx.Err(), context.DeadlineExceeded) {
		return &executor.TimeoutError{Task: t.ID(), Timeout: timeout}
	}
	return nil
}

func (e *Executor) checkUpToDate(ctx context.Context, t *task.Task) (string, bool) {
	if e.opts.Tracker == nil || len(t.Inputs()) == 0 {
		return "", false
	}
	fingerprint, upToDate, err := e.opts.Tracker.Check(ctx, t)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Up-to-date check failed, running task.", "error", err)
		return "", false
	}
	return fingerprint, upToDate
}
