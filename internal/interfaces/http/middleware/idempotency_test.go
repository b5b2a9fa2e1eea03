package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/buildingledger/backend/internal/infrastructure/cache"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	cache.IdempotencyStore
}

func (failingStore) Reserve(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

func idempotentRouter(t *testing.T, store cache.IdempotencyStore, status *int) (*gin.Engine, *int) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	calls := 0
	r := gin.New()
	r.POST("/transactions", Idempotency(store, time.Hour), func(c *gin.Context) {
		calls++
		c.JSON(*status, gin.H{"call": calls})
	})
	return r, &calls
}

func postWithKey(r http.Handler, key string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(`{}`))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysFirstResponse(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })
	status := http.StatusCreated
	r, calls := idempotentRouter(t, store, &status)

	first := postWithKey(r, "gateway-ref-1")
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(IdempotentReplayHeader))

	second := postWithKey(r, "gateway-ref-1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(IdempotentReplayHeader))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", second.Header().Get("Content-Type"))
	assert.Equal(t, 1, *calls)

	postWithKey(r, "gateway-ref-2")
	postWithKey(r, "")
	postWithKey(r, "")
	assert.Equal(t, 4, *calls, "new keys and keyless requests run the handler")
}

func TestIdempotency_ReleasesOnRetryableFailure(t *testing.T) {
	for _, failing := range []int{http.StatusInternalServerError, http.StatusConflict, http.StatusTooManyRequests} {
		t.Run(http.StatusText(failing), func(t *testing.T) {
			store := cache.NewInMemoryIdempotencyStore()
			t.Cleanup(func() { _ = store.Close() })
			status := failing
			r, calls := idempotentRouter(t, store, &status)

			assert.Equal(t, failing, postWithKey(r, "k").Code)
			status = http.StatusCreated
			w := postWithKey(r, "k")
			assert.Equal(t, http.StatusCreated, w.Code)
			assert.Empty(t, w.Header().Get(IdempotentReplayHeader))
			assert.Equal(t, 2, *calls)
		})
	}
}

func TestIdempotency_ClientErrorsAreReplayed(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })
	status := http.StatusUnprocessableEntity
	r, calls := idempotentRouter(t, store, &status)

	postWithKey(r, "k")
	status = http.StatusCreated
	w := postWithKey(r, "k")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, 1, *calls)
}

func TestIdempotency_InFlight(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })
	status := http.StatusCreated
	r, calls := idempotentRouter(t, store, &status)

	ok, err := store.Reserve(context.Background(), "POST /transactions k", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	w := postWithKey(r, "k")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_CONFLICT")
	assert.Zero(t, *calls)
}

func TestIdempotency_KeyTooLong(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })
	status := http.StatusCreated
	r, calls := idempotentRouter(t, store, &status)

	w := postWithKey(r, strings.Repeat("k", MaxIdempotencyKeyLength+1))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, *calls)
}

func TestIdempotency_StoreFailureFailsOpen(t *testing.T) {
	status := http.StatusCreated
	r, calls := idempotentRouter(t, failingStore{}, &status)

	assert.Equal(t, http.StatusCreated, postWithKey(r, "k").Code)
	assert.Equal(t, http.StatusCreated, postWithKey(r, "k").Code)
	assert.Equal(t, 2, *calls)
}

func TestIdempotency_ReleasesAfterPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	calls := 0
	r := gin.New()
	r.Use(gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, _ any) {
		c.AbortWithStatus(http.StatusInternalServerError)
	}))
	r.POST("/transactions", Idempotency(store, time.Hour), func(c *gin.Context) {
		calls++
		if calls == 1 {
			panic("ledger write blew up")
		}
		c.JSON(http.StatusCreated, gin.H{"call": calls})
	})

	assert.Equal(t, http.StatusInternalServerError, postWithKey(r, "k").Code)

	w := postWithKey(r, "k")
	assert.Equal(t, http.StatusCreated, w.Code, "retry runs the handler again")
	assert.Empty(t, w.Header().Get(IdempotentReplayHeader))
	assert.Equal(t, 2, calls)

	replayed := postWithKey(r, "k")
	assert.Equal(t, "true", replayed.Header().Get(IdempotentReplayHeader))
	assert.Equal(t, 2, calls)
}
