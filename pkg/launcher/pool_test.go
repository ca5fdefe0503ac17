package launcher

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func successRunner(_ context.Context) (*ExecutionResult, error) {
	return &ExecutionResult{ExitStatus: ExitSuccess}, nil
}

func blockingRunner(ctx context.Context) (*ExecutionResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestPoolSubmitRunsAndReportsResult(t *testing.T) {
	p := NewPool(1, 1)
	p.Start()
	defer p.Stop()

	done := make(chan *Handle, 1)
	handle, err := p.Submit(successRunner, nil, func(h *Handle) { done <- h })
	assert.NoError(t, err)

	select {
	case h := <-done:
		assert.Equal(t, handle, h)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for completion callback")
	}

	result, err := handle.Result()
	assert.NoError(t, err)
	assert.Equal(t, ExitSuccess, result.ExitStatus)
}

func TestPoolSubmitRejectsWhenSaturated(t *testing.T) {
	p := NewPool(1, 1)
	p.Start()
	defer p.Stop()

	// Occupy the single worker so the queue fills behind it: wait until the
	// worker has taken the first task off the queue before submitting the
	// second.
	started := make(chan struct{})
	first, err := p.Submit(func(ctx context.Context) (*ExecutionResult, error) {
		close(started)
		return blockingRunner(ctx)
	}, nil, nil)
	assert.NoError(t, err)
	<-started
	second, err := p.Submit(blockingRunner, nil, nil)
	assert.NoError(t, err)

	third, err := p.Submit(blockingRunner, nil, nil)
	assert.ErrorIs(t, err, ErrPoolSaturated)

	// Release the blocked runners so the deferred Stop can join the worker.
	for _, h := range []*Handle{first, second, third} {
		if h != nil {
			h.Cancel()
		}
	}
}

func TestPoolCancelPropagatesToRunnerAndSetsCanceled(t *testing.T) {
	p := NewPool(1, 1)
	p.Start()
	defer p.Stop()

	handle, err := p.Submit(blockingRunner, nil, nil)
	assert.NoError(t, err)

	handle.Cancel()

	select {
	case <-handle.Done():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for cancelled runner to finish")
	}

	assert.True(t, handle.Canceled())
	_, err = handle.Result()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoolSubmitAfterStopFails(t *testing.T) {
	p := NewPool(1, 1)
	p.Start()
	p.Stop()

	_, err := p.Submit(successRunner, nil, nil)
	assert.ErrorIs(t, err, ErrPoolStopped)
}

// P6: every submitted task eventually produces exactly one completion
// callback, even with several workers completing tasks concurrently. The
// queue is sized to hold every submission, so no Submit depends on how
// quickly the workers drain it.
func TestPoolEveryTaskProducesExactlyOneCallback(t *testing.T) {
	const n = 20
	p := NewPool(4, n)
	p.Start()
	defer p.Stop()

	callbacks := make(chan *Handle, n)
	for i := 0; i < n; i++ {
		runner := func(_ context.Context) (*ExecutionResult, error) {
			return &ExecutionResult{ExitStatus: ExitSuccess}, nil
		}
		_, err := p.Submit(runner, nil, func(h *Handle) { callbacks <- h })
		assert.NoError(t, err)
	}

	seen := make(map[*Handle]bool)
	for i := 0; i < n; i++ {
		select {
		case h := <-callbacks:
			assert.False(t, seen[h], "duplicate callback for handle")
			seen[h] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d callbacks", i, n)
		}
	}
}

func TestPoolRunnerErrorIsReported(t *testing.T) {
	p := NewPool(1, 1)
	p.Start()
	defer p.Stop()

	wantErr := fmt.Errorf("boom")
	handle, err := p.Submit(func(_ context.Context) (*ExecutionResult, error) {
		return nil, wantErr
	}, nil, nil)
	assert.NoError(t, err)

	<-handle.Done()
	_, err = handle.Result()
	assert.ErrorIs(t, err, wantErr)
}
