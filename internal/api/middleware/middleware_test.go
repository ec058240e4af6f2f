package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/phishguard/internal/logger"
	"github.com/tphakala/phishguard/internal/observability/metrics"
)

func newHTTPMetrics(t *testing.T) *metrics.HTTPMetrics {
	t.Helper()
	m, err := metrics.NewHTTPMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestRequestIDPropagatesToContext(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(NewRequestID())
	var traceID, stored string
	e.GET("/x", func(c echo.Context) error {
		traceID = logger.TraceIDFromContext(c.Request().Context())
		stored = RequestID(c)
		return c.NoContent(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", http.NoBody))

	id := rec.Header().Get(echo.HeaderXRequestID)
	require.NotEmpty(t, id)
	assert.Len(t, id, 36, "uuid expected")
	assert.Equal(t, id, traceID)
	assert.Equal(t, id, stored)
}

func TestRequestIDKeepsClientID(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(NewRequestID())
	var stored string
	e.GET("/x", func(c echo.Context) error {
		stored = RequestID(c)
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
	req.Header.Set(echo.HeaderXRequestID, "client-abc")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "client-abc", stored)
	assert.Equal(t, "client-abc", rec.Header().Get(echo.HeaderXRequestID))

	req = httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
	req.Header.Set(echo.HeaderXRequestID, strings.Repeat("a", maxRequestIDLength+1))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Len(t, stored, 36, "oversized client id must be replaced")
	assert.Equal(t, stored, rec.Header().Get(echo.HeaderXRequestID))
}

func TestRequestLoggerHonoursSkipper(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	e := echo.New()
	e.Use(NewRequestLogger(logger.NewSlogLogger(&buf, logger.LogLevelInfo, time.UTC), func(c echo.Context) bool {
		return c.Path() == "/metrics"
	}))
	handler := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.GET("/metrics", handler)
	e.GET("/logged", handler)

	for _, path := range []string{"/metrics", "/logged"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	out := buf.String()
	assert.Contains(t, out, "/logged")
	assert.NotContains(t, out, "/metrics")
	assert.Equal(t, 1, strings.Count(out, "\n"), "one line per logged request")
}

func TestRequestLoggerWithoutLogger(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(NewRequestLogger(nil, nil))
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", http.NoBody))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTokenAuth(t *testing.T) {
	t.Parallel()

	m := newHTTPMetrics(t)
	e := echo.New()
	onErr := func(c echo.Context, _ error) error {
		return c.String(http.StatusUnauthorized, "denied")
	}
	e.POST("/admin", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, NewTokenAuth("s3cret", m, onErr))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer s3cret", http.StatusNoContent},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/admin", http.NoBody)
		if tt.header != "" {
			req.Header.Set(echo.HeaderAuthorization, tt.header)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, tt.want, rec.Code, tt.name)
	}

	// success and error series
	assert.Equal(t, 2, testutil.CollectAndCount(m, "http_auth_operations_total"))
}

func TestTokenAuthDisabledWithoutToken(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.POST("/admin", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, NewTokenAuth("", nil, func(c echo.Context, _ error) error {
		return c.NoContent(http.StatusUnauthorized)
	}))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin", http.NoBody))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	t.Parallel()

	m := newHTTPMetrics(t)
	e := echo.New()
	e.Use(NewMetrics(m))
	e.GET("/items/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Param("id"))
	})
	e.GET("/fail", func(echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "no")
	})

	for _, path := range []string{"/items/1", "/items/2", "/fail"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))
	}

	// one series per route pattern, not per raw path
	assert.Equal(t, 2, testutil.CollectAndCount(m, "http_requests_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(m, "http_request_errors_total"))
}
