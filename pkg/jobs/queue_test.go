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

func TestQueueRunsJobs(t *testing.T) {
	done := make(chan Job, 1)
	q := NewQueue("reminders", func(ctx context.Context, job Job) error {
		done <- job
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Enqueue(Job{Type: "cohort", Payload: "ects_below_minimum"})
	require.NoError(t, err)

	select {
	case job := <-done:
		assert.Equal(t, id, job.ID)
		assert.Equal(t, "ects_below_minimum", job.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("job not processed")
	}
}

func TestQueueRetriesThenGivesUp(t *testing.T) {
	var calls atomic.Int32
	q := NewQueue("reminders", func(ctx context.Context, job Job) error {
		calls.Add(1)
		return errors.New("store unavailable")
	}, QueueConfig{MaxRetries: 2, RetryDelay: 10 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue(Job{Type: "cohort"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return q.Stats().Failed == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())
}

func TestEnqueueBeforeStartFails(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, QueueConfig{})
	_, err := q.Enqueue(Job{Type: "cohort"})
	assert.Error(t, err)
}
