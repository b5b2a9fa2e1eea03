// Package lock provides BuildingLocker implementations: an in-process
// semaphore for single-instance deployments and a Redis lock for
// deployments that run several server replicas.
package lock

import (
	"bytes"
	"fmt"
	"slices"

	appbilling "github.com/buildingledger/backend/internal/application/billing"
	"github.com/buildingledger/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// New creates the locker selected by cfg.Provider.
// The redis provider requires a client.
func New(cfg config.LockConfig, client *redis.Client, logger *zap.Logger) (appbilling.BuildingLocker, error) {
	switch cfg.Provider {
	case "memory":
		return NewMemoryLocker(), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("redis lock provider requires a redis client")
		}
		return NewRedisLocker(client, cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown lock provider %q", cfg.Provider)
	}
}

// sortedUnique orders keys so every caller acquires them in the same order
func sortedUnique(ids []uuid.UUID) []uuid.UUID {
	out := slices.Clone(ids)
	slices.SortFunc(out, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return slices.Compact(out)
}
