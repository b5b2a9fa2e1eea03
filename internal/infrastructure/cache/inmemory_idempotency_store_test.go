package cache

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T) (*InMemoryIdempotencyStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := NewInMemoryIdempotencyStore()
	store.now = clock.Now
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func TestInMemoryIdempotencyStore_Lifecycle(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "pay-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(ctx, "pay-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "second reservation loses")

	resp, err := store.Lookup(ctx, "pay-1")
	require.NoError(t, err)
	assert.Nil(t, resp, "in flight has no response yet")

	stored := StoredResponse{Status: http.StatusCreated, ContentType: "application/json", Body: []byte(`{"id":"t-1"}`)}
	require.NoError(t, store.Complete(ctx, "pay-1", stored, time.Hour))

	resp, err = store.Lookup(ctx, "pay-1")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, stored, *resp)

	require.NoError(t, store.Release(ctx, "pay-1"))
	ok, err = store.Reserve(ctx, "pay-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "released keys can be reserved again")
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Complete(ctx, "pay-2", StoredResponse{Status: http.StatusCreated}, time.Minute))
	clock.Advance(59 * time.Second)
	resp, err := store.Lookup(ctx, "pay-2")
	require.NoError(t, err)
	assert.NotNil(t, resp)

	clock.Advance(time.Second)
	resp, err = store.Lookup(ctx, "pay-2")
	require.NoError(t, err)
	assert.Nil(t, resp)

	ok, err := store.Reserve(ctx, "pay-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired keys can be reserved again")
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	_, _ = store.Reserve(ctx, "short", time.Minute)
	_, _ = store.Reserve(ctx, "long", time.Hour)
	require.Equal(t, 2, store.Size())

	clock.Advance(2 * time.Minute)
	store.cleanup()
	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_ConcurrentReserve(t *testing.T) {
	store, _ := newTestStore(t)

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Reserve(context.Background(), "race", time.Hour)
			if err == nil && ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}

func TestNewIdempotencyStore_WithoutRedis(t *testing.T) {
	store := NewIdempotencyStore(nil, zap.NewNop())
	defer store.Close()
	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
}
