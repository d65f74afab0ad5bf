package action

import (
	"context"
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/task"
)

// Func adapts a function that only reports an error into an action.
func Func(fn func(ctx context.Context, ec *task.ExecContext) error) task.Action {
	return task.ActionFunc(func(ctx context.Context, ec *task.ExecContext) (task.Result, error) {
		if err := fn(ctx, ec); err != nil {
			return task.Result{}, err
		}
		return task.Succeeded(""), nil
	})
}

// Sequence runs actions in order and stops at the first one that fails.
func Sequence(actions ...task.Action) task.Action {
	return task.ActionFunc(func(ctx context.Context, ec *task.ExecContext) (task.Result, error) {
		var last task.Result
		for i, a := range actions {
			if err := ctx.Err(); err != nil {
				return task.Result{}, err
			}
			res, err := a.Execute(ctx, ec)
			if err != nil {
				return res, fmt.Errorf("step %d: %w", i+1, err)
			}
			if !res.Success {
				return res, nil
			}
			last = res
		}
		if len(actions) == 0 {
			return task.Succeeded(""), nil
		}
		return last, nil
	})
}
