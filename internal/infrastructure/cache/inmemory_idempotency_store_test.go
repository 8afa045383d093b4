package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClockedStore(t *testing.T) (*InMemoryIdempotencyStore, *time.Time) {
	t.Helper()
	store := NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })
	now := time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	return store, &now
}

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	ctx := context.Background()
	store, now := newClockedStore(t)

	isNew, err := store.MarkProcessed(ctx, "billing-sync:1", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = store.MarkProcessed(ctx, "billing-sync:1", time.Hour)
	require.NoError(t, err)
	assert.False(t, isNew)

	isNew, err = store.MarkProcessed(ctx, "billing-listener:1", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew, "keys are independent")

	*now = now.Add(time.Hour)
	isNew, err = store.MarkProcessed(ctx, "billing-sync:1", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew, "expired keys can be marked again")
}

func TestInMemoryIdempotencyStore_IsProcessedAndUnmark(t *testing.T) {
	ctx := context.Background()
	store, now := newClockedStore(t)

	processed, err := store.IsProcessed(ctx, "k")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(ctx, "k", time.Minute)
	require.NoError(t, err)
	processed, _ = store.IsProcessed(ctx, "k")
	assert.True(t, processed)

	require.NoError(t, store.Unmark(ctx, "k"))
	processed, _ = store.IsProcessed(ctx, "k")
	assert.False(t, processed)
	require.NoError(t, store.Unmark(ctx, "missing"))

	_, _ = store.MarkProcessed(ctx, "k", time.Minute)
	*now = now.Add(2 * time.Minute)
	processed, _ = store.IsProcessed(ctx, "k")
	assert.False(t, processed)
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	ctx := context.Background()
	store, now := newClockedStore(t)

	_, _ = store.MarkProcessed(ctx, "short-1", time.Minute)
	_, _ = store.MarkProcessed(ctx, "short-2", time.Minute)
	_, _ = store.MarkProcessed(ctx, "long", 24*time.Hour)
	assert.Equal(t, 3, store.Size())

	*now = now.Add(time.Minute)
	store.cleanup()
	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_ConcurrentMarkHasOneWinner(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			isNew, err := store.MarkProcessed(context.Background(), "same-event", time.Hour)
			if err == nil && isNew {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())
}

func TestInMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	for i := 0; i < 3; i++ {
		assert.NoError(t, store.Close(), fmt.Sprintf("close #%d", i+1))
	}
}
