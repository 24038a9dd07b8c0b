package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolProcessesTasks(t *testing.T) {
	var sum atomic.Int64
	done := make(chan struct{}, 3)
	pool := NewPool("sum", func(ctx context.Context, task Task[int]) error {
		sum.Add(int64(task.Payload))
		done <- struct{}{}
		return nil
	}, Config{Workers: 2})
	pool.Start(context.Background())
	defer pool.Stop()

	for i := 1; i <= 3; i++ {
		require.NoError(t, pool.Submit(Task[int]{ID: "t", Payload: i}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("task not processed")
		}
	}
	assert.Equal(t, int64(6), sum.Load())
}

func TestPoolRetriesFailedTasks(t *testing.T) {
	var attempts atomic.Int32
	done := make(chan int, 1)
	pool := NewPool("retry", func(ctx context.Context, task Task[string]) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		done <- task.Attempt
		return nil
	}, Config{MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	pool.Start(context.Background())
	defer pool.Stop()

	require.NoError(t, pool.Submit(Task[string]{ID: "export-1", Payload: "pdf"}))
	select {
	case attempt := <-done:
		assert.Equal(t, 2, attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("task never succeeded")
	}
}

func TestPoolSubmitRequiresRunning(t *testing.T) {
	pool := NewPool("idle", func(ctx context.Context, task Task[int]) error { return nil }, Config{})
	assert.ErrorIs(t, pool.Submit(Task[int]{ID: "x"}), ErrNotRunning)

	pool.Start(context.Background())
	pool.Stop()
	assert.ErrorIs(t, pool.Submit(Task[int]{ID: "x"}), ErrNotRunning)
}
