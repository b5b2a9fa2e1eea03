package middleware

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/buildingledger/backend/internal/infrastructure/cache"
	"github.com/buildingledger/backend/internal/infrastructure/logger"
	"github.com/buildingledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader carries the caller's retry key
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotentReplayHeader marks a response served from the store
	IdempotentReplayHeader = "Idempotent-Replayed"
	// MaxIdempotencyKeyLength bounds keys before they reach the store
	MaxIdempotencyKeyLength = 128
)

// bodyRecorder copies the response body while it is written
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the first response of a request carrying an Idempotency-Key.
// Requests without the header pass through. A retry that arrives while the first
// attempt is still running gets 409. Server errors, conflicts and handler panics
// release the key so the caller may retry. Store failures fail open.
func Idempotency(store cache.IdempotencyStore, ttl time.Duration) gin.HandlerFunc {
	if store == nil {
		return passthrough
	}
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > MaxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeValidationFormat,
				"Idempotency-Key must be at most 128 characters",
				getRequestIDFromContext(c),
			))
			return
		}

		ctx := c.Request.Context()
		log := logger.GetGinLogger(c)
		storeKey := c.Request.Method + " " + c.Request.URL.Path + " " + key

		reserved, err := store.Reserve(ctx, storeKey, ttl)
		if err != nil {
			log.Warn("Idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !reserved {
			replay(c, store, storeKey, log)
			return
		}

		// released on any exit that does not store a response, panics included
		stored := false
		defer func() {
			if stored {
				return
			}
			if err := store.Release(context.WithoutCancel(ctx), storeKey); err != nil {
				log.Warn("Failed to release idempotency key", zap.Error(err))
			}
		}()

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder
		c.Next()

		status := c.Writer.Status()
		if status >= http.StatusInternalServerError || status == http.StatusConflict || status == http.StatusTooManyRequests {
			return
		}
		err = store.Complete(ctx, storeKey, cache.StoredResponse{
			Status:      status,
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        recorder.body.Bytes(),
		}, ttl)
		if err != nil {
			log.Warn("Failed to store idempotent response", zap.Error(err))
			return
		}
		stored = true
	}
}

func replay(c *gin.Context, store cache.IdempotencyStore, storeKey string, log *zap.Logger) {
	stored, err := store.Lookup(c.Request.Context(), storeKey)
	if err != nil {
		log.Warn("Idempotency lookup failed", zap.Error(err))
	}
	if stored == nil {
		c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeConflict,
			"A request with this Idempotency-Key is still in progress",
			getRequestIDFromContext(c),
		))
		return
	}
	c.Header(IdempotentReplayHeader, "true")
	c.Data(stored.Status, stored.ContentType, stored.Body)
	c.Abort()
}
