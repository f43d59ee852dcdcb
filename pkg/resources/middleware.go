package resources

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const RequestIdHeader = "X-Request-Id"

func TracerMiddleware(name string) gin.HandlerFunc {
	return otelgin.Middleware(name)
}

func MeterMiddleware(name string) gin.HandlerFunc {
	return NewHTTPMetrics(name).Middleware()
}

// LoggerMiddleware puts a request-scoped logger into the request context so
// handlers and repositories can use log.Ctx.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// only canonical UUIDs from callers reach the logs
		requestId := c.GetHeader(RequestIdHeader)
		if _, err := uuid.Parse(requestId); err != nil || len(requestId) != 36 {
			requestId = uuid.NewString()
		}

		c.Header(RequestIdHeader, requestId)

		logger := log.Ctx(c.Request.Context()).With().
			Str("request_id", requestId).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))

		c.Next()

		logger.Info().
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request served")
	}
}
