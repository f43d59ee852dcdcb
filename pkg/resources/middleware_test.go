package resources

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestLoggerMiddleware(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(LoggerMiddleware(), MeterMiddleware("onsite-availability"))
	router.GET("/healthz", func(c *gin.Context) {
		log.Ctx(c.Request.Context()).Info().Msg("inside")
		c.Status(http.StatusNoContent)
	})

	t.Run("generates a request id", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Len(t, w.Header().Get(RequestIdHeader), 36)
	})

	t.Run("keeps the caller's request id", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(RequestIdHeader, "3f2b8c1e-6a4d-4f1b-9c2e-7d5a1b0e9f34")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "3f2b8c1e-6a4d-4f1b-9c2e-7d5a1b0e9f34", w.Header().Get(RequestIdHeader))
	})

	t.Run("replaces a malformed request id", func(t *testing.T) {
		t.Parallel()

		for _, bad := range []string{"abc-123", strings.Repeat("x", 4096), "{3f2b8c1e-6a4d-4f1b-9c2e-7d5a1b0e9f34}"} {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set(RequestIdHeader, bad)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			got := w.Header().Get(RequestIdHeader)
			assert.NotEqual(t, bad, got)
			assert.Len(t, got, 36)
		}
	})
}
