package middleware_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/waypoint/core/exception"
	"github.com/dmitrymomot/waypoint/core/handler"
	"github.com/dmitrymomot/waypoint/core/response"
	"github.com/dmitrymomot/waypoint/middleware"
)

// testLogHandler captures log entries for testing
type testLogHandler struct {
	mu      sync.Mutex
	entries []map[string]any
}

func (h *testLogHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *testLogHandler) Handle(_ context.Context, r slog.Record) error {
	entry := make(map[string]any)
	entry["level"] = r.Level.String()
	entry["msg"] = r.Message

	r.Attrs(func(a slog.Attr) bool {
		entry[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	h.entries = append(h.entries, entry)
	h.mu.Unlock()
	return nil
}

func (h *testLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *testLogHandler) WithGroup(name string) slog.Handler {
	return h
}

func TestLoggingMiddleware(t *testing.T) {
	t.Parallel()

	logHandler := &testLogHandler{}
	h := handler.Chain(okHandler, middleware.Logging(slog.New(logHandler)))

	req := httptest.NewRequest(http.MethodGet, "/users?page=2", nil)
	_, err := h(req)
	require.NoError(t, err)

	require.Len(t, logHandler.entries, 1)
	entry := logHandler.entries[0]
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "HTTP request completed", entry["msg"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/users", entry["path"])
	assert.Equal(t, int64(http.StatusOK), entry["status_code"])
	assert.Equal(t, "page=2", entry["query"])
	assert.Equal(t, "http", entry["component"])
}

func TestLoggingMiddlewareLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		next      handler.HandlerFunc
		wantLevel string
		wantCode  int64
	}{
		{
			name: "client error response",
			next: func(r *http.Request) (*response.Response, error) {
				return response.Status(http.StatusNotFound), nil
			},
			wantLevel: "WARN",
			wantCode:  http.StatusNotFound,
		},
		{
			name: "client error",
			next: func(r *http.Request) (*response.Response, error) {
				return nil, exception.ErrForbidden
			},
			wantLevel: "WARN",
			wantCode:  http.StatusForbidden,
		},
		{
			name: "server error",
			next: func(r *http.Request) (*response.Response, error) {
				return nil, assert.AnError
			},
			wantLevel: "ERROR",
			wantCode:  http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logHandler := &testLogHandler{}
			h := handler.Chain(tt.next, middleware.Logging(slog.New(logHandler)))

			_, _ = h(httptest.NewRequest(http.MethodGet, "/test", nil))

			require.Len(t, logHandler.entries, 1)
			assert.Equal(t, tt.wantLevel, logHandler.entries[0]["level"])
			assert.Equal(t, tt.wantCode, logHandler.entries[0]["status_code"])
		})
	}
}

func TestLoggingMiddlewareReturnsErrorUnchanged(t *testing.T) {
	t.Parallel()

	h := handler.Chain(func(r *http.Request) (*response.Response, error) {
		return nil, assert.AnError
	}, middleware.Logging(slog.New(&testLogHandler{})))

	_, err := h(httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestLoggingMiddlewareRequestID(t *testing.T) {
	t.Parallel()

	logHandler := &testLogHandler{}
	h := handler.Chain(okHandler,
		middleware.Logging(slog.New(logHandler)),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			Generator: func() string { return "req-1" },
		}),
	)

	_, err := h(httptest.NewRequest(http.MethodGet, "/test", nil))
	require.NoError(t, err)

	require.Len(t, logHandler.entries, 1)
	assert.Equal(t, "req-1", logHandler.entries[0]["request_id"])
}

func TestLoggingMiddlewareRedactsHeaders(t *testing.T) {
	t.Parallel()

	logHandler := &testLogHandler{}
	h := handler.Chain(okHandler, middleware.LoggingWithConfig(middleware.LoggingConfig{
		Logger:     slog.New(logHandler),
		LogHeaders: true,
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Accept", "text/plain")

	_, err := h(req)
	require.NoError(t, err)

	headers, ok := logHandler.entries[0]["request_headers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "[REDACTED]", headers["Authorization"])
	assert.Equal(t, "text/plain", headers["Accept"])
}

func TestLoggingMiddlewareSkip(t *testing.T) {
	t.Parallel()

	logHandler := &testLogHandler{}
	h := handler.Chain(okHandler, middleware.LoggingWithConfig(middleware.LoggingConfig{
		Logger: slog.New(logHandler),
		Skip: func(r *http.Request) bool {
			return r.URL.Path == "/health"
		},
	}))

	_, err := h(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Empty(t, logHandler.entries)
}
