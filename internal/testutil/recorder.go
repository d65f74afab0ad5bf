package testutil

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/specialistvlad/buildgrid/internal/task"
)

// ExecutionRecord holds the start and end times for a single task's execution.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// Recorder hands out actions that record when, and in what order, tasks ran.
// It also tracks the peak number of actions running at once.
type Recorder struct {
	mu      sync.Mutex
	order   []string
	records map[string]*ExecutionRecord
	active  int
	peak    int
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{records: make(map[string]*ExecutionRecord)}
}

// Sleep returns an action that sleeps for d and succeeds.
func (r *Recorder) Sleep(d time.Duration) task.Action {
	return r.Func(func(ctx context.Context) error {
		select {
		case <-time.After(d):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// Succeed returns an action that succeeds immediately.
func (r *Recorder) Succeed() task.Action {
	return r.Func(func(context.Context) error { return nil })
}

// Fail returns an action that reports an unsuccessful result.
func (r *Recorder) Fail(msg string) task.Action {
	return task.ActionFunc(func(_ context.Context, ec *task.ExecContext) (task.Result, error) {
		r.begin(ec.Address)
		defer r.end(ec.Address)
		return task.Failed(msg), nil
	})
}

// Func wraps fn into a recording action.
func (r *Recorder) Func(fn func(ctx context.Context) error) task.Action {
	return task.ActionFunc(func(ctx context.Context, ec *task.ExecContext) (task.Result, error) {
		r.begin(ec.Address)
		defer r.end(ec.Address)
		if err := fn(ctx); err != nil {
			return task.Result{}, err
		}
		return task.Succeeded(""), nil
	})
}

func (r *Recorder) begin(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, id)
	r.records[id] = &ExecutionRecord{Start: time.Now()}
	r.active++
	r.peak = max(r.peak, r.active)
}

func (r *Recorder) end(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[id].End = time.Now()
	r.active--
}

// Order returns the task addresses in the order their actions started.
func (r *Recorder) Order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

// Ran reports whether the action of id was invoked.
func (r *Recorder) Ran(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.records[id]
	return ok
}

// Count returns how many times the action of id started.
func (r *Recorder) Count(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, o := range r.order {
		if o == id {
			n++
		}
	}
	return n
}

// Record returns the timing of id, nil if it never ran.
func (r *Recorder) Record(id string) *ExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}

// Peak returns the highest number of actions observed running at once.
func (r *Recorder) Peak() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peak
}
