package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the caller's correlation ID in and out
const RequestIDHeader = "X-Request-ID"

// GinRequestIDKey is the gin context key holding the request ID
const GinRequestIDKey = "request_id"

const maxRequestIDLength = 128

// RequestID tags each request with the caller's X-Request-ID, or a fresh
// UUID, and stores a logger carrying it in the request context so that
// services logging through L(ctx) are correlated with the request.
func RequestID(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if len(id) > maxRequestIDLength {
			id = id[:maxRequestIDLength]
		}
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(GinRequestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)

		ctx, _ := WithRequestID(c.Request.Context(), base, id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GinMiddleware logs one line per request once it has been served. Server
// errors log at error level and client errors at warn.
func GinMiddleware(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if route := c.FullPath(); route != "" {
			fields = append(fields, zap.String("route", route))
		}
		if query != "" {
			fields = append(fields, zap.String("query", query))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		log := WithTraceContext(c.Request.Context(), requestLogger(c, base))
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("HTTP request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

// Recovery turns a panic in a handler into a 500 with the standard error
// body and logs the stack
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				requestLogger(c, base).Error("Panic recovered",
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("error", rec),
					zap.Stack("stacktrace"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error": gin.H{
						"code":       "INTERNAL_ERROR",
						"message":    "An unexpected error occurred",
						"request_id": c.GetString(GinRequestIDKey),
					},
				})
			}
		}()
		c.Next()
	}
}

// GetGinLogger returns the request-scoped logger stored by RequestID, or a
// no-op logger
func GetGinLogger(c *gin.Context) *zap.Logger {
	return FromContext(c.Request.Context())
}

// requestLogger prefers the request-scoped logger and falls back to base
// tagged with whatever request ID gin holds
func requestLogger(c *gin.Context, base *zap.Logger) *zap.Logger {
	if GetRequestID(c.Request.Context()) != "" {
		return FromContext(c.Request.Context())
	}
	if id := c.GetString(GinRequestIDKey); id != "" {
		return base.With(zap.String("request_id", id))
	}
	return base
}
