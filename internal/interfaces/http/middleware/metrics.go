package middleware

import (
	"time"

	"github.com/erp/ledgerflow/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMeterName is the meter the command API records under
const HTTPMeterName = "ledgerflow/http"

var (
	attrMethod    = attribute.Key("http.method")
	attrRoute     = attribute.Key("http.route")
	attrStatus    = attribute.Key("http.status_code")
	attrErrorCode = attribute.Key("error.code")
)

type httpMetrics struct {
	requests *telemetry.Counter
	duration *telemetry.Histogram
	inFlight metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requests, err := telemetry.NewCounter(meter,
		"http.server.requests", "Commands served, by route, status and error code", "{request}")
	if err != nil {
		return nil, err
	}
	duration, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http.server.duration",
		Description: "Command latency",
		Unit:        "s",
		Boundaries:  telemetry.UnitDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	inFlight, err := meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Requests being served"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	return &httpMetrics{requests: requests, duration: duration, inFlight: inFlight}, nil
}

// HTTPMetrics counts and times requests per route pattern. A nil meter
// disables it.
func HTTPMetrics(meter metric.Meter) (gin.HandlerFunc, error) {
	if meter == nil {
		return func(c *gin.Context) { c.Next() }, nil
	}
	m, err := newHTTPMetrics(meter)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.inFlight.Add(ctx, 1)

		c.Next()

		m.inFlight.Add(ctx, -1)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := []attribute.KeyValue{
			attrMethod.String(c.Request.Method),
			attrRoute.String(route),
		}
		m.duration.RecordDuration(ctx, time.Since(start), attrs...)

		attrs = append(attrs, attrStatus.Int(c.Writer.Status()))
		if code := c.GetString(ErrorCodeKey); code != "" {
			attrs = append(attrs, attrErrorCode.String(code))
		}
		m.requests.Inc(ctx, attrs...)
	}, nil
}
