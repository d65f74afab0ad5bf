// Package localexecutor runs a task graph on a pool of in-process workers.
package localexecutor

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/executor"
	"github.com/specialistvlad/buildgrid/internal/graph"
	"github.com/specialistvlad/buildgrid/internal/node"
	"github.com/specialistvlad/buildgrid/internal/nodestore"
	"github.com/specialistvlad/buildgrid/internal/scheduler"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const tracerName = "github.com/specialistvlad/buildgrid/internal/localexecutor"

// Executor dispatches READY tasks to at most Options.Workers goroutines. A
// single coordinator goroutine owns the scheduler; workers only run actions
// and report back over a channel.
type Executor struct {
	g      *graph.Graph
	sched  scheduler.Scheduler
	store  nodestore.Store
	opts   executor.Options
	slots  *semaphore.Weighted
	tracer trace.Tracer
}

// completion is what a worker sends back to the coordinator.
type completion struct {
	n      *graph.Node
	status node.Status
	result node.Result
	cause  error
}

// New creates an executor for g.
func New(g *graph.Graph, sched scheduler.Scheduler, store nodestore.Store, opts executor.Options) executor.Executor {
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Executor{
		g:      g,
		sched:  sched,
		store:  store,
		opts:   opts,
		slots:  semaphore.NewWeighted(int64(opts.WorkerCount())),
		tracer: tp.Tracer(tracerName),
	}
}

// Execute implements the executor.Executor interface.
func (e *Executor) Execute(ctx context.Context) error {
	ctx, span := e.tracer.Start(ctx, "buildgrid.run", trace.WithAttributes(
		attribute.String("buildgrid.run_id", e.opts.RunID),
		attribute.Int("buildgrid.tasks", e.g.Len()),
		attribute.Int("buildgrid.workers", e.opts.WorkerCount()),
	))
	defer span.End()

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Executor started.", "tasks", e.g.Len(), "workers", e.opts.WorkerCount())

	// Workers must not observe the caller's cancellation directly; the
	// coordinator decides how in-flight tasks end.
	runCtx, stop := context.WithCancelCause(context.WithoutCancel(ctx))
	defer stop(nil)

	results := make(chan completion, e.g.Len())
	var workers errgroup.Group
	interrupted := ctx.Done()
	cancelled := false

	for {
		if !cancelled && ctx.Err() != nil {
			cancelled = true
			interrupted = nil
			cause := context.Cause(ctx)
			logger.Warn("Run cancelled, aborting remaining tasks.", "cause", cause)
			stop(cause)
			if err := e.sched.Abort(ctx, &executor.CancellationError{Cause: cause}); err != nil {
				return e.fail(span, &workers, err)
			}
		}

		if !cancelled {
			if err := e.dispatch(ctx, runCtx, &workers, results); err != nil {
				return e.fail(span, &workers, err)
			}
		}

		if e.sched.Running() == 0 {
			done, err := e.sched.Done(ctx)
			if err != nil {
				return e.fail(span, &workers, err)
			}
			if done {
				break
			}
			return e.fail(span, &workers, fmt.Errorf("scheduler stalled with no running tasks"))
		}

		select {
		case res := <-results:
			e.slots.Release(1)
			if err := e.finish(ctx, res); err != nil {
				return e.fail(span, &workers, err)
			}
		case <-interrupted:
		}
	}

	_ = workers.Wait()
	logger.Debug("Executor finished.")
	return nil
}

// dispatch starts as many READY tasks as there are free worker slots. A slot
// is returned by the coordinator when it receives the task's completion, so
// a finished task always frees its slot before the next dispatch.
func (e *Executor) dispatch(ctx, runCtx context.Context, workers *errgroup.Group, results chan<- completion) error {
	ready, err := e.sched.Next(ctx)
	if err != nil {
		return err
	}
	for _, n := range ready {
		if !e.slots.TryAcquire(1) {
			return nil
		}
		if err := e.sched.Started(ctx, n.ID()); err != nil {
			e.slots.Release(1)
			return err
		}
		for _, l := range e.opts.Listeners {
			l.TaskStarted(ctx, n)
		}
		workers.Go(func() error {
			results <- e.runTask(runCtx, n)
			return nil
		})
	}
	return nil
}

func (e *Executor) finish(ctx context.Context, res completion) error {
	id := res.n.ID()
	if err := e.store.SetResult(ctx, id, res.result); err != nil {
		return err
	}
	if err := e.sched.Finished(ctx, id, res.status, res.cause); err != nil {
		return err
	}

	logger := ctxlog.FromContext(ctx).With("task", id, "status", res.status.String())
	if res.cause != nil {
		logger.Warn("Task failed.", "error", res.cause)
	} else {
		logger.Debug("Task finished.", "duration", res.result.Duration(), "up_to_date", res.result.UpToDate)
	}

	for _, l := range e.opts.Listeners {
		l.TaskFinished(ctx, res.n, res.status, res.result, res.cause)
	}
	return nil
}

// fail waits for in-flight workers and reports an internal error.
func (e *Executor) fail(span trace.Span, workers *errgroup.Group, err error) error {
	span.RecordError(err)
	_ = workers.Wait()
	return errors.Join(errors.New("executor failed"), err)
}
