package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestActionError_Messages(t *testing.T) {
	boom := errors.New("boom")

	assert.Equal(t, "task :c failed: exit 1: boom", (&ActionError{Task: ":c", Message: "exit 1", Err: boom}).Error())
	assert.Equal(t, "task :c failed: boom", (&ActionError{Task: ":c", Err: boom}).Error())
	assert.Equal(t, "task :c failed: no sources", (&ActionError{Task: ":c", Message: "no sources"}).Error())
	assert.Equal(t, "task :c failed", (&ActionError{Task: ":c"}).Error())
	assert.ErrorIs(t, &ActionError{Task: ":c", Err: boom}, boom)
}

func TestTimeoutAndCancellation(t *testing.T) {
	assert.ErrorIs(t, &TimeoutError{Task: ":c", Timeout: time.Second}, context.DeadlineExceeded)
	assert.ErrorIs(t, &CancellationError{Cause: context.Canceled}, context.Canceled)
	assert.Equal(t, "run cancelled: context canceled", (&CancellationError{Cause: context.Canceled}).Error())
}

func TestOptions(t *testing.T) {
	assert.Equal(t, 1, Options{}.WorkerCount())
	assert.Equal(t, 4, Options{Workers: 4}.WorkerCount())
}
