package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/buildingledger/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortedUnique(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	assert.Equal(t, []uuid.UUID{a, b}, sortedUnique([]uuid.UUID{b, a, b}))
	assert.Empty(t, sortedUnique(nil))
}

func TestMemoryLocker_Acquire(t *testing.T) {
	ctx := context.Background()

	t.Run("release lets the next holder in", func(t *testing.T) {
		locker := NewMemoryLocker()
		id := uuid.New()

		release, err := locker.Acquire(ctx, id)
		require.NoError(t, err)
		release()
		release() // second call is a no-op

		release, err = locker.Acquire(ctx, id)
		require.NoError(t, err)
		release()
	})

	t.Run("held building blocks until ctx is done", func(t *testing.T) {
		locker := NewMemoryLocker()
		id := uuid.New()

		release, err := locker.Acquire(ctx, id)
		require.NoError(t, err)
		defer release()

		timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err = locker.Acquire(timeoutCtx, id)
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrLockNotObtained)
	})

	t.Run("failed multi-key acquire releases what it took", func(t *testing.T) {
		locker := NewMemoryLocker()
		free, busy := uuid.New(), uuid.New()

		release, err := locker.Acquire(ctx, busy)
		require.NoError(t, err)

		timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err = locker.Acquire(timeoutCtx, free, busy)
		require.Error(t, err)
		release()

		// free must not be left held by the failed attempt
		r2, err := locker.Acquire(ctx, free)
		require.NoError(t, err)
		r2()
	})

	t.Run("different buildings do not contend", func(t *testing.T) {
		locker := NewMemoryLocker()

		r1, err := locker.Acquire(ctx, uuid.New())
		require.NoError(t, err)
		defer r1()

		timeoutCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		r2, err := locker.Acquire(timeoutCtx, uuid.New())
		require.NoError(t, err)
		r2()
	})

	t.Run("serializes concurrent writers of one building", func(t *testing.T) {
		locker := NewMemoryLocker()
		id := uuid.New()
		var inside, maxInside int32
		var wg sync.WaitGroup

		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				release, err := locker.Acquire(ctx, id)
				if err != nil {
					return
				}
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				release()
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), maxInside)
		assert.Zero(t, locker.Len())
	})

	t.Run("forgets buildings nobody holds or awaits", func(t *testing.T) {
		locker := NewMemoryLocker()
		a, b := uuid.New(), uuid.New()

		release, err := locker.Acquire(ctx, a, b)
		require.NoError(t, err)
		assert.Equal(t, 2, locker.Len())

		timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err = locker.Acquire(timeoutCtx, b)
		require.ErrorIs(t, err, shared.ErrLockNotObtained)
		assert.Equal(t, 2, locker.Len(), "a timed out waiter leaves the holder's slots")

		waiting := make(chan func())
		go func() {
			r, err := locker.Acquire(ctx, a)
			if assert.NoError(t, err) {
				waiting <- r
			}
		}()
		release()
		next := <-waiting
		assert.Equal(t, 1, locker.Len(), "the waiter keeps its building")
		next()
		assert.Zero(t, locker.Len())
	})
}

func TestNew(t *testing.T) {
	cfg := config.LockConfig{Provider: "memory", TTL: time.Second}

	locker, err := New(cfg, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryLocker{}, locker)

	cfg.Provider = "redis"
	_, err = New(cfg, nil, nil)
	require.Error(t, err)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	locker, err = New(cfg, client, nil)
	require.NoError(t, err)
	assert.IsType(t, &RedisLocker{}, locker)

	cfg.Provider = "zookeeper"
	_, err = New(cfg, nil, nil)
	require.Error(t, err)
}

func TestRedisLocker_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	defer client.Close()

	locker := NewRedisLocker(client, config.LockConfig{
		TTL:          time.Second,
		RetryCount:   1,
		RetryBackoff: time.Millisecond,
	}, nil)

	_, err := locker.Acquire(context.Background(), uuid.New())
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrLockNotObtained)
	assert.Contains(t, err.Error(), "obtain lock for building")
}

func TestLockKey(t *testing.T) {
	id := uuid.MustParse("0190c9a8-0000-7000-8000-000000000000")
	assert.Equal(t, "building-ledger:lock:building:0190c9a8-0000-7000-8000-000000000000", lockKey(id))
}
