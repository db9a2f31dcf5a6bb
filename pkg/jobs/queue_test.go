package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []Outcome
	done     chan struct{}
	want     Outcome
}

func (r *outcomeRecorder) observe(_ Job, o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
	if o == r.want {
		close(r.done)
	}
}

func TestQueueProcessesJob(t *testing.T) {
	rec := &outcomeRecorder{done: make(chan struct{}), want: OutcomeSucceeded}
	var got Job
	q := NewQueue("test", func(_ context.Context, j Job) error {
		got = j
		return nil
	}, QueueConfig{Observe: rec.observe})
	q.Start(context.Background())
	defer q.Stop(context.Background()) //nolint:errcheck

	require.NoError(t, q.TryEnqueue(Job{Type: "registry.updated"}))

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("job not processed")
	}
	assert.Equal(t, "registry.updated", got.Type)
	assert.NotEmpty(t, got.ID)
}

func TestQueueDropsAfterRetries(t *testing.T) {
	rec := &outcomeRecorder{done: make(chan struct{}), want: OutcomeDropped}
	q := NewQueue("test", func(context.Context, Job) error {
		return errors.New("smtp down")
	}, QueueConfig{MaxRetries: 1, RetryDelay: time.Millisecond, Observe: rec.observe})
	q.Start(context.Background())
	defer q.Stop(context.Background()) //nolint:errcheck

	require.NoError(t, q.TryEnqueue(Job{Type: "session.added"}))

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("job not dropped")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []Outcome{OutcomeRetried, OutcomeDropped}, rec.outcomes)
}

func TestTryEnqueueRequiresStart(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, QueueConfig{})

	assert.Error(t, q.TryEnqueue(Job{Type: "x"}))
}

func TestTryEnqueueReportsFullBuffer(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("full", func(ctx context.Context, _ Job) error {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer func() {
		close(block)
		_ = q.Stop(context.Background())
	}()

	var full error
	for i := 0; i < 5; i++ {
		if err := q.TryEnqueue(Job{Type: "x"}); err != nil {
			full = err
			break
		}
	}
	assert.ErrorIs(t, full, ErrQueueFull)
}
