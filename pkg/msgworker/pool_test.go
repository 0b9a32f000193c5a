package msgworker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_DispatchNonBlocking(t *testing.T) {
	pool := NewPool(2, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)
	defer pool.Stop()

	start := time.Now()
	pool.Dispatch(Job{
		TenantID:       "t1",
		ConversationID: "c1",
		Name:           "slow",
		Handler: func(ctx context.Context) error {
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	})
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 10*time.Millisecond, "Dispatch must not block on the handler")
}

func TestPool_SameConversationSequential(t *testing.T) {
	pool := NewPool(4, 100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)

	var mu sync.Mutex
	var results []int

	for i := 1; i <= 5; i++ {
		val := i
		pool.Dispatch(Job{
			TenantID:       "t1",
			ConversationID: "conv1",
			Name:           "ordered",
			Handler: func(ctx context.Context) error {
				time.Sleep(5 * time.Millisecond)
				mu.Lock()
				results = append(results, val)
				mu.Unlock()
				return nil
			},
		})
	}

	pool.Stop()

	require.Len(t, results, 5)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, results, "jobs of one conversation must keep order")
}

func TestPool_DropsWhenQueueFull(t *testing.T) {
	pool := NewPool(1, 1)
	// Never started: the single queue fills and further jobs are dropped.

	blocker := func(ctx context.Context) error { return nil }
	for i := 0; i < 5; i++ {
		pool.Dispatch(Job{TenantID: "t", ConversationID: "c", Name: "j", Handler: blocker})
	}

	stats := pool.GetStats()
	assert.Equal(t, int64(1), stats.TotalDispatched)
	assert.Equal(t, int64(4), stats.TotalDropped)
}

func TestPool_CountsErrors(t *testing.T) {
	pool := NewPool(1, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)

	pool.Dispatch(Job{
		TenantID:       "t",
		ConversationID: "c",
		Name:           "failing",
		Handler: func(ctx context.Context) error {
			return assert.AnError
		},
	})

	pool.Stop()
	assert.Equal(t, int64(1), pool.GetStats().TotalErrors)
}
