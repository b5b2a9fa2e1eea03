// Package cache provides the idempotency stores that let payment callers
// retry a request without recording the payment twice.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StoredResponse is the recorded outcome of a completed request
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// IdempotencyStore tracks request keys through reserve, complete and release.
// A reserved key without a response belongs to a request that is still running.
type IdempotencyStore interface {
	// Reserve claims key for ttl. It returns false when the key is already claimed.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Lookup returns the stored response, or nil while the key is missing or in flight
	Lookup(ctx context.Context, key string) (*StoredResponse, error)

	// Complete attaches the response to a reserved key
	Complete(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error

	// Release drops a reservation so the request can be retried
	Release(ctx context.Context, key string) error

	// Close releases resources
	Close() error
}

// NewIdempotencyStore returns a Redis store when a client is given, otherwise an in-memory store.
// The in-memory store does not deduplicate across server instances.
func NewIdempotencyStore(client *redis.Client, logger *zap.Logger) IdempotencyStore {
	if client != nil {
		return NewRedisIdempotencyStore(client, "")
	}
	if logger != nil {
		logger.Warn("Using in-memory idempotency store; retries are only deduplicated within this instance")
	}
	return NewInMemoryIdempotencyStore()
}
