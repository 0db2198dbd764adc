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

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 5 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "booking.notify"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not succeed")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueReportsExhaustedJobs(t *testing.T) {
	failed := make(chan Job, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		return errors.New("permanent")
	}, QueueConfig{
		Workers:    1,
		MaxRetries: 1,
		RetryDelay: 5 * time.Millisecond,
		OnFailure:  func(j Job, err error) { failed <- j },
	})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.TryEnqueue(Job{Type: "booking.calendar"}))

	select {
	case job := <-failed:
		assert.Equal(t, "booking.calendar", job.Type)
		assert.Equal(t, 2, job.Attempt)
		assert.NotEmpty(t, job.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("failure hook not called")
	}
}

func TestTryEnqueueDoesNotBlockWhenFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})

	q.Start(context.Background())
	defer func() {
		close(block)
		q.Stop()
	}()

	require.NoError(t, q.TryEnqueue(Job{Type: "a"}))
	require.Eventually(t, func() bool { return q.Pending() == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.TryEnqueue(Job{Type: "b"}))

	err := q.TryEnqueue(Job{Type: "c"})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestEnqueueBeforeStartFails(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.TryEnqueue(Job{}))
	assert.Error(t, q.Enqueue(Job{}))
}

func TestStopDeliversBufferedJobsAndRetries(t *testing.T) {
	release := make(chan struct{})
	var handled, failedOnce int32
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		switch job.Type {
		case "first":
			<-release
		case "late":
			return nil
		}
		if job.Type == "flaky" && atomic.CompareAndSwapInt32(&failedOnce, 0, 1) {
			return errors.New("transient")
		}
		atomic.AddInt32(&handled, 1)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 4, MaxRetries: 1, RetryDelay: 5 * time.Millisecond})

	q.Start(context.Background())
	require.NoError(t, q.TryEnqueue(Job{Type: "first"}))
	require.NoError(t, q.TryEnqueue(Job{Type: "flaky"}))
	require.NoError(t, q.TryEnqueue(Job{Type: "last"}))

	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()
	require.Eventually(t, func() bool {
		return errors.Is(q.TryEnqueue(Job{Type: "late"}), ErrQueueStopping)
	}, time.Second, time.Millisecond)
	close(release)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&handled))
	assert.Equal(t, 0, q.Pending())
}

func TestStopCancelsHandlersAfterDrainTimeout(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		<-ctx.Done()
		return nil
	}, QueueConfig{Workers: 1, DrainTimeout: 20 * time.Millisecond})

	q.Start(context.Background())
	require.NoError(t, q.TryEnqueue(Job{Type: "stuck"}))
	require.Eventually(t, func() bool { return q.Pending() == 0 }, time.Second, time.Millisecond)

	start := time.Now()
	q.Stop()
	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, q.Enqueue(Job{}), ErrQueueStopping)
}
