package resources

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics records request counts, latency and in-flight requests per route.
type HTTPMetrics struct {
	requests metric.Int64Counter
	inFlight metric.Int64UpDownCounter
	latency  metric.Float64Histogram
}

func NewHTTPMetrics(name string) *HTTPMetrics {
	meter := otel.Meter(name)

	requests, _ := meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("HTTP requests served"),
	)
	inFlight, _ := meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("HTTP requests being served"),
	)
	latency, _ := meter.Float64Histogram(
		"http.server.duration.ms",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &HTTPMetrics{requests: requests, inFlight: inFlight, latency: latency}
}

func (m *HTTPMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()

		method := attribute.String("http.method", c.Request.Method)
		m.inFlight.Add(ctx, 1, metric.WithAttributes(method))

		defer m.inFlight.Add(ctx, -1, metric.WithAttributes(method))

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		status := c.Writer.Status()

		attrs := metric.WithAttributes(
			attribute.String("http.route", route),
			method,
			attribute.Int("http.status_code", status),
			attribute.String("http.status_class", strconv.Itoa(status/100)+"xx"),
		)

		m.requests.Add(ctx, 1, attrs)
		m.latency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	}
}
