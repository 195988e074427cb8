package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func fieldMap(entry observer.LoggedEntry) map[string]any {
	return entry.ContextMap()
}

func TestFromContext(t *testing.T) {
	log, _ := observed()
	ctx := WithContext(context.Background(), log)
	assert.Same(t, log, FromContext(ctx))

	assert.NotNil(t, FromContext(context.Background()))
	assert.NotNil(t, FromContext(context.WithValue(context.Background(), loggerKey, "not a logger")))
}

func TestWithRequestID(t *testing.T) {
	base, logs := observed()
	ctx, tagged := WithRequestID(context.Background(), base, "req-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Same(t, tagged, FromContext(ctx))

	tagged.Info("hello")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-1", fieldMap(logs.All()[0])["request_id"])
}

func TestWithCommand(t *testing.T) {
	base, logs := observed()
	ctx, _ := WithRequestID(context.Background(), base, "req-2")
	ctx, tagged := WithCommand(ctx, FromContext(ctx), "sale_invoice.confirm")

	assert.Equal(t, "sale_invoice.confirm", GetCommand(ctx))
	assert.Equal(t, "req-2", GetRequestID(ctx))

	tagged.Info("confirmed")
	fields := fieldMap(logs.All()[0])
	assert.Equal(t, "req-2", fields["request_id"])
	assert.Equal(t, "sale_invoice.confirm", fields["command"])
}

func TestGetters_Empty(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetCommand(ctx))
}

func TestWithTraceContext(t *testing.T) {
	base, logs := observed()

	t.Run("no span leaves logger unchanged", func(t *testing.T) {
		assert.Same(t, base, WithTraceContext(context.Background(), base))
	})

	t.Run("active span adds ids", func(t *testing.T) {
		tp := sdktrace.NewTracerProvider()
		t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
		ctx, span := tp.Tracer("test").Start(context.Background(), "unit")
		defer span.End()

		WithTraceContext(ctx, base).Info("traced")
		fields := fieldMap(logs.All()[logs.Len()-1])
		assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
		assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
	})
}

func TestContextLogger_DoesNotDuplicateFields(t *testing.T) {
	base, logs := observed()
	ctx, _ := WithRequestID(context.Background(), base, "req-3")
	ctx, _ = WithCommand(ctx, FromContext(ctx), "stock.receive")

	L(ctx).With(zap.String("lot", "LOT-A")).Info("received")

	entry := logs.All()[0]
	var requestIDs, commands int
	for _, f := range entry.Context {
		switch f.Key {
		case "request_id":
			requestIDs++
		case "command":
			commands++
		}
	}
	assert.Equal(t, 1, requestIDs)
	assert.Equal(t, 1, commands)
	assert.Equal(t, "LOT-A", fieldMap(entry)["lot"])
}

func TestWithLogger_AddsContextFields(t *testing.T) {
	base, logs := observed()
	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-4")
	ctx, _ = WithCommand(ctx, zap.NewNop(), "receipt.allocate")

	WithLogger(ctx, base).Warn("exceeds outstanding")

	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "req-4", fieldMap(entry)["request_id"])
	assert.Equal(t, "receipt.allocate", fieldMap(entry)["command"])
}

func TestContextLogger_Levels(t *testing.T) {
	base, logs := observed()
	cl := WithLogger(context.Background(), base)

	cl.Debug("d")
	cl.Info("i")
	cl.Warn("w")
	cl.Error("e")
	cl.Zap().Info("z")

	levels := make([]zapcore.Level, 0, logs.Len())
	for _, e := range logs.All() {
		levels = append(levels, e.Level)
	}
	assert.Equal(t, []zapcore.Level{
		zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel, zapcore.InfoLevel,
	}, levels)
}

func TestContextLogger_NilLogger(t *testing.T) {
	cl := WithLogger(context.Background(), nil)
	assert.NotPanics(t, func() {
		cl.Info("nothing")
		cl.With(zap.Int("n", 1)).Warn("still nothing")
	})
}
