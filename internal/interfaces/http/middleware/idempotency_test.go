package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/infrastructure/cache"
	"github.com/erp/ledgerflow/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newIdempotentRouter(store cache.IdempotencyStore, status int, calls *int32) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Idempotency(IdempotencyConfig{Store: store, TTL: time.Hour}))
	router.POST("/receipts", func(c *gin.Context) {
		n := atomic.AddInt32(calls, 1)
		c.JSON(status, gin.H{"call": n})
	})
	router.GET("/receipts", func(c *gin.Context) {
		atomic.AddInt32(calls, 1)
		c.JSON(http.StatusOK, gin.H{})
	})
	return router
}

func postWithKey(router *gin.Engine, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/receipts", nil)
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	var calls int32
	router := newIdempotentRouter(store, http.StatusCreated, &calls)

	first := postWithKey(router, "abc")
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(IdempotentReplayHeader))

	second := postWithKey(router, "abc")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(IdempotentReplayHeader))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Contains(t, second.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	third := postWithKey(router, "other")
	assert.Equal(t, http.StatusCreated, third.Code)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotency_PassThrough(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	var calls int32
	router := newIdempotentRouter(store, http.StatusCreated, &calls)

	postWithKey(router, "")
	postWithKey(router, "")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "requests without a key always run")

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/receipts", nil)
		req.Header.Set(IdempotencyKeyHeader, "abc")
		router.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls), "only POST is deduplicated")
}

func TestIdempotency_NilStoreDisabled(t *testing.T) {
	var calls int32
	router := newIdempotentRouter(nil, http.StatusCreated, &calls)

	postWithKey(router, "abc")
	postWithKey(router, "abc")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotency_ClientErrorIsStored(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	var calls int32
	router := newIdempotentRouter(store, http.StatusUnprocessableEntity, &calls)

	postWithKey(router, "abc")
	w := postWithKey(router, "abc")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIdempotency_ServerErrorReleasesKey(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	var calls int32
	router := newIdempotentRouter(store, http.StatusServiceUnavailable, &calls)

	postWithKey(router, "abc")
	w := postWithKey(router, "abc")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Empty(t, w.Header().Get(IdempotentReplayHeader))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotency_PanicReleasesKey(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(logger.Recovery(zap.NewNop()))
	router.Use(Idempotency(IdempotencyConfig{Store: store, TTL: time.Hour}))
	var calls int32
	router.POST("/receipts", func(c *gin.Context) {
		if atomic.AddInt32(&calls, 1) == 1 {
			panic("lot table locked")
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	first := postWithKey(router, "abc")
	assert.Equal(t, http.StatusInternalServerError, first.Code)

	second := postWithKey(router, "abc")
	assert.Equal(t, http.StatusCreated, second.Code, "the retry runs after a panic")
	assert.Empty(t, second.Header().Get(IdempotentReplayHeader))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	third := postWithKey(router, "abc")
	assert.Equal(t, "true", third.Header().Get(IdempotentReplayHeader))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

// ctxStore fails like a network store once the caller's context is done
type ctxStore struct{ *cache.InMemoryIdempotencyStore }

func (s ctxStore) Release(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.InMemoryIdempotencyStore.Release(ctx, key)
}

func TestIdempotency_CanceledRequestReleasesKey(t *testing.T) {
	store := ctxStore{cache.NewInMemoryIdempotencyStore()}
	defer store.Close()
	var calls int32
	router := newIdempotentRouter(store, http.StatusInternalServerError, &calls)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/receipts", nil).WithContext(ctx)
	req.Header.Set(IdempotencyKeyHeader, "abc")
	cancel()
	router.ServeHTTP(httptest.NewRecorder(), req)

	ok, err := store.Reserve(context.Background(), "/receipts|abc", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "key is free again")
}

func TestIdempotency_InProgressConflict(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	ok, err := store.Reserve(context.Background(), "/receipts|abc", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	var calls int32
	router := newIdempotentRouter(store, http.StatusCreated, &calls)

	w := postWithKey(router, "abc")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), shared.CodeConcurrencyConflict)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestIdempotency_KeyTooLong(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	var calls int32
	router := newIdempotentRouter(store, http.StatusCreated, &calls)

	long := make([]byte, maxIdempotencyKeyLength+1)
	for i := range long {
		long[i] = 'k'
	}
	w := postWithKey(router, string(long))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

type failingStore struct{ cache.IdempotencyStore }

func (failingStore) Lookup(context.Context, string) (*cache.Response, error) { return nil, nil }

func (failingStore) Reserve(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func TestIdempotency_StoreUnavailable(t *testing.T) {
	var calls int32
	router := newIdempotentRouter(failingStore{}, http.StatusCreated, &calls)

	w := postWithKey(router, "abc")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), shared.CodeTransient)
	assert.Zero(t, atomic.LoadInt32(&calls))
}
