package middleware

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/infrastructure/cache"
	"github.com/erp/ledgerflow/internal/infrastructure/logger"
	"github.com/erp/ledgerflow/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader names a POST command so a retry can be recognized
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotentReplayHeader marks a response served from the store
	IdempotentReplayHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLength = 255
	defaultIdempotencyTTL   = 24 * time.Hour
)

// IdempotencyConfig configures Idempotency. A nil Store disables it.
type IdempotencyConfig struct {
	Store cache.IdempotencyStore
	TTL   time.Duration
}

// Idempotency replays the stored response of a POST command whose
// Idempotency-Key was seen before. Keys are scoped to the request path.
// Server errors and panics are not stored, so the client may retry them.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultIdempotencyTTL
	}
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if cfg.Store == nil || key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			abortWithError(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Idempotency-Key is too long")
			return
		}

		ctx := c.Request.Context()
		scoped := c.Request.URL.Path + "|" + key
		log := logger.GetGinLogger(c).With(zap.String("idempotency_key", key))

		if replayStored(c, cfg.Store, scoped, log) {
			return
		}

		reserved, err := cfg.Store.Reserve(ctx, scoped, cfg.TTL)
		if err != nil {
			log.Warn("idempotency store unavailable", zap.Error(err))
			abortWithError(c, http.StatusServiceUnavailable, shared.CodeTransient, "Idempotency store unavailable, retry later")
			return
		}
		if !reserved {
			// the first request may have finished in between
			if replayStored(c, cfg.Store, scoped, log) {
				return
			}
			abortWithError(c, http.StatusConflict, shared.CodeConcurrencyConflict,
				"A request with this Idempotency-Key is still in progress")
			return
		}

		// the store outlives the request; a client disconnect must not
		// leave the key reserved
		storeCtx := context.WithoutCancel(ctx)
		stored := false
		defer func() {
			// also runs while a handler panic unwinds to Recovery
			if stored {
				return
			}
			if err := cfg.Store.Release(storeCtx, scoped); err != nil {
				log.Warn("failed to release idempotency key", zap.Error(err))
			}
		}()

		rec := &recordingWriter{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		status := rec.Status()
		if status >= http.StatusInternalServerError {
			return
		}
		err = cfg.Store.Complete(storeCtx, scoped, cache.Response{
			Status:      status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		}, cfg.TTL)
		if err != nil {
			log.Warn("failed to store idempotent response", zap.Error(err))
			return
		}
		stored = true
	}
}

func replayStored(c *gin.Context, store cache.IdempotencyStore, key string, log *zap.Logger) bool {
	resp, err := store.Lookup(c.Request.Context(), key)
	if err != nil {
		log.Warn("failed to look up idempotency key", zap.Error(err))
		return false
	}
	if resp == nil {
		return false
	}
	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json; charset=utf-8"
	}
	c.Header(IdempotentReplayHeader, "true")
	c.Data(resp.Status, contentType, resp.Body)
	c.Abort()
	return true
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.Set(ErrorCodeKey, code)
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// recordingWriter keeps a copy of the body while it is written
type recordingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
