package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer sets up a test tracer provider and returns the span recorder.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
		otel.SetTracerProvider(prev)
	})

	return sr
}

func tracedRouter(cfg TracingConfig) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("request_id", "req-7")
		c.Next()
	})
	router.Use(Tracing(cfg), SpanErrorMarker())
	router.POST("/api/v1/sale-invoices/:id/confirm", func(c *gin.Context) {
		if c.Param("id") == "bad" {
			c.Set(ErrorCodeKey, "INVALID_TRANSITION")
			c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func findSpan(spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	for _, span := range spans {
		if span.Name() == name {
			return span
		}
	}
	return nil
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestTracing_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sr := setupTestTracer(t)

	w := httptest.NewRecorder()
	tracedRouter(TracingConfig{Enabled: false}).ServeHTTP(w,
		httptest.NewRequest(http.MethodPost, "/api/v1/sale-invoices/1/confirm", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracing_SuccessfulCommand(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sr := setupTestTracer(t)

	w := httptest.NewRecorder()
	tracedRouter(DefaultTracingConfig()).ServeHTTP(w,
		httptest.NewRequest(http.MethodPost, "/api/v1/sale-invoices/1/confirm", nil))
	require.Equal(t, http.StatusOK, w.Code)

	span := findSpan(sr.Ended(), "POST /api/v1/sale-invoices/:id/confirm")
	require.NotNil(t, span, "route span not found")
	assert.NotEqual(t, codes.Error, span.Status().Code)
	assert.Equal(t, "req-7", spanAttrs(span)["request_id"].AsString())
}

func TestTracing_FailedCommandMarksSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sr := setupTestTracer(t)

	w := httptest.NewRecorder()
	tracedRouter(DefaultTracingConfig()).ServeHTTP(w,
		httptest.NewRequest(http.MethodPost, "/api/v1/sale-invoices/bad/confirm", nil))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	span := findSpan(sr.Ended(), "POST /api/v1/sale-invoices/:id/confirm")
	require.NotNil(t, span)
	assert.Equal(t, codes.Error, span.Status().Code)

	attrs := spanAttrs(span)
	assert.Equal(t, "INVALID_TRANSITION", attrs["error.code"].AsString())
	assert.Equal(t, int64(http.StatusUnprocessableEntity), attrs["http.status_code"].AsInt64())
}
