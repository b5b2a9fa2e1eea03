package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	appbilling "github.com/buildingledger/backend/internal/application/billing"
	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/buildingledger/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "building-ledger:lock:building:"

// releaseTimeout bounds unlock calls made after the request context ended
const releaseTimeout = 5 * time.Second

// RedisLocker holds buildings with redislock leases shared by all replicas
type RedisLocker struct {
	client  *redislock.Client
	ttl     time.Duration
	retries int
	backoff time.Duration
	logger  *zap.Logger
}

// NewRedisLocker creates a new RedisLocker
func NewRedisLocker(client *redis.Client, cfg config.LockConfig, logger *zap.Logger) *RedisLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{
		client:  redislock.New(client),
		ttl:     cfg.TTL,
		retries: cfg.RetryCount,
		backoff: cfg.RetryBackoff,
		logger:  logger,
	}
}

func lockKey(id uuid.UUID) string {
	return redisKeyPrefix + id.String()
}

// Acquire obtains a lease per building, retrying with a linear backoff
func (l *RedisLocker) Acquire(ctx context.Context, buildingIDs ...uuid.UUID) (func(), error) {
	ids := sortedUnique(buildingIDs)
	held := make([]*redislock.Lock, 0, len(ids))
	releaseHeld := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				l.logger.Warn("Failed to release building lock",
					zap.String("key", held[i].Key()),
					zap.Error(err),
				)
			}
		}
	}

	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.backoff), l.retries),
	}
	for _, id := range ids {
		lk, err := l.client.Obtain(ctx, lockKey(id), l.ttl, opts)
		if err != nil {
			releaseHeld()
			if errors.Is(err, redislock.ErrNotObtained) {
				return nil, fmt.Errorf("%w: building %s", shared.ErrLockNotObtained, id)
			}
			return nil, fmt.Errorf("obtain lock for building %s: %w", id, err)
		}
		held = append(held, lk)
	}

	var once sync.Once
	return func() { once.Do(releaseHeld) }, nil
}

// Ensure RedisLocker implements BuildingLocker
var _ appbilling.BuildingLocker = (*RedisLocker)(nil)
