package integration

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/buildingledger/backend/internal/infrastructure/cache"
	"github.com/buildingledger/backend/internal/infrastructure/config"
	"github.com/buildingledger/backend/internal/infrastructure/lock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
)

const redisImage = "redis:7-alpine"

// newTestRedis starts a throwaway Redis container and returns a connected client
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	skipShort(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        redisImage,
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start redis container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisLocker_Contention(t *testing.T) {
	client := newTestRedis(t)
	log := zaptest.NewLogger(t)

	patient := lock.NewRedisLocker(client, config.LockConfig{
		TTL: 10 * time.Second, RetryCount: 100, RetryBackoff: 20 * time.Millisecond,
	}, log)
	impatient := lock.NewRedisLocker(client, config.LockConfig{
		TTL: 10 * time.Second, RetryCount: 2, RetryBackoff: 10 * time.Millisecond,
	}, log)

	ctx := context.Background()
	building := uuid.New()
	other := uuid.New()

	release, err := patient.Acquire(ctx, building)
	require.NoError(t, err)

	_, err = impatient.Acquire(ctx, other, building)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrLockNotObtained))

	// the partially obtained lease on other was given back
	releaseOther, err := impatient.Acquire(ctx, other)
	require.NoError(t, err)
	releaseOther()

	release()
	release()

	releaseAgain, err := impatient.Acquire(ctx, building)
	require.NoError(t, err)
	releaseAgain()
}

func TestRedisLocker_SerializesWriters(t *testing.T) {
	client := newTestRedis(t)
	locker := lock.NewRedisLocker(client, config.LockConfig{
		TTL: 10 * time.Second, RetryCount: 500, RetryBackoff: 5 * time.Millisecond,
	}, zaptest.NewLogger(t))

	building := uuid.New()
	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), building)
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inside.Add(-1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside.Load())
}

func TestRedisIdempotencyStore_Lifecycle(t *testing.T) {
	client := newTestRedis(t)
	store := cache.NewRedisIdempotencyStore(client, "ledger-test:")
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "POST /transactions ref-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(ctx, "POST /transactions ref-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	resp, err := store.Lookup(ctx, "POST /transactions ref-1")
	require.NoError(t, err)
	assert.Nil(t, resp, "pending reservation has no response")

	stored := cache.StoredResponse{Status: http.StatusCreated, ContentType: "application/json", Body: []byte(`{"success":true}`)}
	require.NoError(t, store.Complete(ctx, "POST /transactions ref-1", stored, time.Minute))

	resp, err = store.Lookup(ctx, "POST /transactions ref-1")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, stored, *resp)

	ttl, err := client.TTL(ctx, "ledger-test:POST /transactions ref-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, store.Release(ctx, "POST /transactions ref-1"))
	resp, err = store.Lookup(ctx, "POST /transactions ref-1")
	require.NoError(t, err)
	assert.Nil(t, resp)

	ok, err = store.Reserve(ctx, "POST /transactions ref-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, store.Close())
}

func TestRedisIdempotencyStore_Expiry(t *testing.T) {
	client := newTestRedis(t)
	store := cache.NewRedisIdempotencyStore(client, "")
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "short", 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		ok, err := store.Reserve(ctx, "short", time.Minute)
		return err == nil && ok
	}, 5*time.Second, 50*time.Millisecond)
}
