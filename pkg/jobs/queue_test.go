package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan string, 2)
	q := NewQueue[string]("test", func(_ context.Context, job Job[string]) error {
		done <- job.Payload
		return nil
	}, QueueConfig{})

	require.ErrorIs(t, q.Enqueue(Job[string]{ID: "early"}), ErrQueueStopped)

	q.Start(context.Background())
	defer q.Stop()
	require.NoError(t, q.Enqueue(Job[string]{ID: "1", Payload: "a"}))

	select {
	case got := <-done:
		assert.Equal(t, "a", got)
	case <-time.After(2 * time.Second):
		t.Fatal("job not processed")
	}
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32
	finished := make(chan struct{})
	q := NewQueue[int]("retry", func(_ context.Context, job Job[int]) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("boom")
		}
		close(finished)
		return nil
	}, QueueConfig{MaxRetries: 2, RetryDelay: 5 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()
	require.NoError(t, q.Enqueue(Job[int]{ID: "r"}))

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestQueueWithoutRetries(t *testing.T) {
	var attempts int32
	q := NewQueue[int]("once", func(context.Context, Job[int]) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("boom")
	}, QueueConfig{RetryDelay: time.Millisecond})

	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job[int]{ID: "x"}))
	time.Sleep(50 * time.Millisecond)
	q.Stop()
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestQueueFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue[int]("full", func(ctx context.Context, _ Job[int]) error {
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

	require.NoError(t, q.Enqueue(Job[int]{ID: "1"}))
	require.Eventually(t, func() bool { return q.Pending() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(Job[int]{ID: "2"}))
	assert.ErrorIs(t, q.Enqueue(Job[int]{ID: "3"}), ErrQueueFull)
}

type dropRecorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *dropRecorder) record(job Job[int], reason error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if errors.Is(reason, ErrQueueStopped) {
		r.ids = append(r.ids, job.ID)
	}
}

func (r *dropRecorder) dropped() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func TestQueueStopDropsBufferedJobs(t *testing.T) {
	var handled []string
	var mu sync.Mutex
	started := make(chan struct{}, 1)
	q := NewQueue[int]("drain", func(ctx context.Context, job Job[int]) error {
		mu.Lock()
		handled = append(handled, job.ID)
		mu.Unlock()
		started <- struct{}{}
		<-ctx.Done()
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 4})
	drops := &dropRecorder{}
	q.OnDrop(drops.record)

	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job[int]{ID: "1"}))
	<-started
	require.NoError(t, q.Enqueue(Job[int]{ID: "2"}))
	require.NoError(t, q.Enqueue(Job[int]{ID: "3"}))
	q.Stop()

	assert.Equal(t, []string{"1"}, handled)
	assert.ElementsMatch(t, []string{"2", "3"}, drops.dropped())
	assert.Zero(t, q.Pending())
}

func TestQueueStopDropsPendingRetry(t *testing.T) {
	var attempts int32
	q := NewQueue[int]("retry-stop", func(context.Context, Job[int]) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("boom")
	}, QueueConfig{MaxRetries: 3, RetryDelay: time.Hour})
	drops := &dropRecorder{}
	q.OnDrop(drops.record)

	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job[int]{ID: "slow"}))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&attempts) == 1 }, time.Second, 5*time.Millisecond)
	q.Stop()

	assert.Equal(t, []string{"slow"}, drops.dropped())
}
