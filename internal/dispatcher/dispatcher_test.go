// Package dispatcher contains tests for worker coordination.
package dispatcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/queue/memory"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/scanner"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/worker"
)

type countingRunner struct {
	runs atomic.Int32
}

func (r *countingRunner) Run(context.Context, scanner.ScanRequest) error {
	r.runs.Add(1)
	return nil
}

// TestDispatcherDrainsQueue ensures every buffered scan runs before Run returns.
func TestDispatcherDrainsQueue(t *testing.T) {
	t.Parallel()

	q := memory.NewQueue(10)
	runner := &countingRunner{}
	workers := []*worker.Worker{
		worker.New(1, q, runner, nil, worker.Config{}, zap.NewNop()),
		worker.New(2, q, runner, nil, worker.Config{}, zap.NewNop()),
	}
	dispatch := New(q, workers)

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, dispatch.Enqueue(context.Background(), scanner.ScanRequest{SessionID: id}))
	}
	dispatch.Close()

	done := make(chan struct{})
	go func() {
		dispatch.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not drain queue")
	}
	require.Equal(t, int32(4), runner.runs.Load())
}

// TestDispatcherRunStopsOnCancel verifies workers exit when the context ends.
func TestDispatcherRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	q := memory.NewQueue(1)
	dispatch := New(q, []*worker.Worker{worker.New(1, q, &countingRunner{}, nil, worker.Config{}, nil)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		dispatch.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after context cancel")
	}
}

// TestDispatcherEnqueueForwardsErrors verifies queue errors are wrapped for callers.
func TestDispatcherEnqueueForwardsErrors(t *testing.T) {
	t.Parallel()

	q := memory.NewQueue(1)
	dispatch := New(q, nil)
	dispatch.Close()

	err := dispatch.Enqueue(context.Background(), scanner.ScanRequest{SessionID: "late"})
	require.True(t, errors.Is(err, scanner.ErrQueueClosed))
	require.Contains(t, err.Error(), "queue enqueue: ")
}
