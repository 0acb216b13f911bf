package kernel_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/waypoint/core/container"
	"github.com/dmitrymomot/waypoint/core/event"
	"github.com/dmitrymomot/waypoint/core/exception"
	"github.com/dmitrymomot/waypoint/core/handler"
	"github.com/dmitrymomot/waypoint/core/kernel"
	"github.com/dmitrymomot/waypoint/core/logger"
	"github.com/dmitrymomot/waypoint/core/response"
	"github.com/dmitrymomot/waypoint/core/route"
	"github.com/dmitrymomot/waypoint/core/router"
)

// recordingHandler counts how often errors reach the catch point.
type recordingHandler struct {
	mu       sync.Mutex
	reported []error
	rendered int
}

func (h *recordingHandler) Report(_ context.Context, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reported = append(h.reported, err)
}

func (h *recordingHandler) Render(_ *http.Request, err error) *response.Response {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rendered++
	return response.StringWithStatus("handled: "+err.Error(), exception.Status(err))
}

func testConfig() kernel.Config {
	return kernel.Config{
		Name:        "test",
		Env:         "testing",
		Timezone:    "UTC",
		LogLevel:    "error",
		PostMaxSize: "8M",
	}
}

func newKernel(t *testing.T, cfg kernel.Config, opts ...kernel.Option) (*kernel.Kernel, *kernel.Application) {
	t.Helper()

	app, err := kernel.NewApplication(
		kernel.WithConfig(cfg),
		kernel.WithLogger(logger.Nop()),
	)
	require.NoError(t, err)

	opts = append([]kernel.Option{kernel.WithMetricsRegisterer(prometheus.NewRegistry())}, opts...)
	return kernel.New(app, opts...), app
}

func TestKernelHandle(t *testing.T) {
	t.Parallel()

	k, app := newKernel(t, testConfig())
	app.Router().Get("/hello/{name}", func(r *http.Request, p route.Params) (any, error) {
		return "hello " + p.Get("name"), nil
	})

	resp := k.Handle(httptest.NewRequest(http.MethodGet, "/hello/world", nil))

	require.NotNil(t, resp)
	assert.Equal(t, http.StatusOK, resp.Status())
	assert.Equal(t, "hello world", resp.String())
	assert.True(t, app.HasBeenBootstrapped())
}

func TestKernelServeHTTP(t *testing.T) {
	t.Parallel()

	k, app := newKernel(t, testConfig())
	app.Router().Get("/api/users", func(*http.Request) any {
		return []string{"alice", "bob"}
	})

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()

	k.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, response.ContentTypeJSON, rec.Header().Get("Content-Type"))
	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"), "built-in CORS runs globally")

	var users []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Equal(t, []string{"alice", "bob"}, users)
}

func TestKernelCatchesErrorsExactlyOnce(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantErr    error
	}{
		{name: "action error", path: "/error", wantStatus: http.StatusInternalServerError, wantErr: boom},
		{name: "action panic", path: "/panic", wantStatus: http.StatusInternalServerError},
		{name: "http error", path: "/forbidden", wantStatus: http.StatusForbidden, wantErr: exception.ErrForbidden},
		{name: "route not found", path: "/missing", wantStatus: http.StatusNotFound, wantErr: router.ErrRouteNotFound},
		{name: "middleware error", path: "/guarded", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := &recordingHandler{}
			k, app := newKernel(t, testConfig(), kernel.WithExceptionHandler(h))

			r := app.Router()
			r.RegisterMiddleware("deny", handler.MiddlewareFunc(func(*http.Request, handler.HandlerFunc) (*response.Response, error) {
				return nil, exception.NewHTTPError(http.StatusUnauthorized, "")
			}))
			r.Get("/error", func() (any, error) { return nil, boom })
			r.Get("/panic", func() any { panic("kaboom") })
			r.Get("/forbidden", func() (any, error) { return nil, exception.ErrForbidden })
			r.Get("/guarded", func() string { return "secret" }).Middleware("log", "deny")

			var resp *response.Response
			require.NotPanics(t, func() {
				resp = k.Handle(httptest.NewRequest(http.MethodGet, tt.path, nil))
			})

			require.NotNil(t, resp)
			assert.Equal(t, tt.wantStatus, resp.Status())
			require.Len(t, h.reported, 1, "error must be reported exactly once")
			assert.Equal(t, 1, h.rendered, "error must be rendered exactly once")
			if tt.wantErr != nil {
				assert.ErrorIs(t, h.reported[0], tt.wantErr)
			}
			assert.NotEmpty(t, exception.StackTrace(h.reported[0]), "caught errors carry a stack trace")
		})
	}
}

func TestKernelPanicValue(t *testing.T) {
	t.Parallel()

	h := &recordingHandler{}
	k, app := newKernel(t, testConfig(), kernel.WithExceptionHandler(h))
	app.Router().Get("/panic", func() any { panic("kaboom") })

	k.Handle(httptest.NewRequest(http.MethodGet, "/panic", nil))

	require.Len(t, h.reported, 1)
	var pe *exception.PanicError
	require.ErrorAs(t, h.reported[0], &pe)
	assert.Equal(t, "kaboom", pe.Value())
}

func TestKernelDefaultExceptionRendering(t *testing.T) {
	t.Parallel()

	t.Run("production hides details", func(t *testing.T) {
		t.Parallel()

		k, app := newKernel(t, testConfig())
		app.Router().Get("/fail", func() (any, error) { return nil, errors.New("database password leaked") })

		req := httptest.NewRequest(http.MethodGet, "/fail", nil)
		req.Header.Set("Accept", "application/json")
		resp := k.Handle(req)

		assert.Equal(t, http.StatusInternalServerError, resp.Status())
		var body map[string]any
		require.NoError(t, json.Unmarshal(resp.Body(), &body))
		assert.Equal(t, "Server Error", body["message"])
		assert.NotContains(t, resp.String(), "password")
	})

	t.Run("debug shows details", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.Debug = true
		k, app := newKernel(t, cfg)
		app.Router().Get("/fail", func() (any, error) { return nil, errors.New("detailed failure") })

		req := httptest.NewRequest(http.MethodGet, "/fail", nil)
		req.Header.Set("Accept", "application/json")
		resp := k.Handle(req)

		var body map[string]any
		require.NoError(t, json.Unmarshal(resp.Body(), &body))
		assert.Equal(t, "detailed failure", body["message"])
		assert.NotEmpty(t, body["trace"])
	})
}

func TestKernelExceptionHandlerFromContainer(t *testing.T) {
	t.Parallel()

	k, app := newKernel(t, testConfig())
	h := &recordingHandler{}
	app.Container().Instance(container.TypeKey[exception.Handler](), exception.Handler(h))

	resp := k.Handle(httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, resp.Status())
	assert.True(t, strings.HasPrefix(resp.String(), "handled:"))
	assert.Len(t, h.reported, 1)
}

func TestKernelPostTooLarge(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.PostMaxSize = "10"
	k, app := newKernel(t, cfg)

	called := false
	app.Router().Post("/upload", func() string {
		called = true
		return "stored"
	})

	resp := k.Handle(httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("x", 11))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Status())
	assert.False(t, called)

	resp = k.Handle(httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, resp.Status())
	assert.True(t, called)
}

func TestKernelPostSizeDisabled(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.PostMaxSize = "0"
	k, app := newKernel(t, cfg)
	app.Router().Post("/upload", func() string { return "stored" })

	resp := k.Handle(httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("x", 1024))))
	assert.Equal(t, http.StatusOK, resp.Status())
}

func TestKernelGlobalMiddlewareOrder(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		trace []string
	)
	record := func(name string) handler.Middleware {
		return handler.MiddlewareFunc(func(r *http.Request, next handler.HandlerFunc) (*response.Response, error) {
			mu.Lock()
			trace = append(trace, name)
			mu.Unlock()
			return next(r)
		})
	}

	k, app := newKernel(t, testConfig())
	app.Router().RegisterMiddleware("first", record("first"))
	app.Router().RegisterMiddleware("second", record("second"))
	app.Router().Get("/", func() string { return "home" })

	k.WithMiddleware(func(m *kernel.Middleware) {
		m.Use("second", kernel.HandleCorsMiddleware, "first", "second")
	})
	k.PushMiddleware("first")
	k.PushMiddleware("request_id")

	assert.Equal(t, []string{
		kernel.ValidatePostSizeMiddleware,
		kernel.HandleCorsMiddleware,
		"second",
		"first",
		"request_id",
	}, k.GlobalMiddleware())

	resp := k.Handle(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, resp.Status())
	assert.Equal(t, []string{"second", "first"}, trace)
	assert.NotEmpty(t, resp.HeaderValue("X-Request-ID"), "aliases resolve in the global stack")
}

func TestKernelSkipMiddleware(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.PostMaxSize = "1"
	k, app := newKernel(t, cfg)

	ran := false
	app.Router().RegisterMiddleware("tracker", handler.MiddlewareFunc(func(r *http.Request, next handler.HandlerFunc) (*response.Response, error) {
		ran = true
		return next(r)
	}))
	app.Router().Post("/upload", func() string { return "ok" }).Middleware("tracker")
	k.PushMiddleware("tracker")

	app.SetSkipMiddleware(true)
	resp := k.Handle(httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("larger than one byte")))

	assert.Equal(t, http.StatusOK, resp.Status())
	assert.False(t, ran)
}

func TestKernelSyncsMiddlewareToRouter(t *testing.T) {
	t.Parallel()

	k, app := newKernel(t, testConfig())
	r := app.Router()

	groups := r.MiddlewareGroups()
	assert.Contains(t, groups, "web")
	assert.Contains(t, groups, "api")
	assert.Equal(t, kernel.RequestIDMiddleware, r.MiddlewareAliases()["request_id"])
	assert.Equal(t, []string{kernel.RequestIDMiddleware, kernel.ClientIPMiddleware, kernel.LogMiddleware, kernel.MetricsMiddleware, kernel.ThrottleMiddleware}, r.MiddlewarePriority())

	k.WithMiddleware(func(m *kernel.Middleware) {
		m.Group("api", "request_id", "cache:60").
			Alias(map[string]string{"auth": "app.authenticate"}).
			Priority("app.authenticate", kernel.RequestIDMiddleware)
	})

	assert.Equal(t, []string{"request_id", "cache:60"}, r.MiddlewareGroups()["api"])
	assert.Equal(t, "app.authenticate", r.MiddlewareAliases()["auth"])
	assert.Equal(t, []string{"app.authenticate", kernel.RequestIDMiddleware}, k.MiddlewarePriority())
	assert.Equal(t, []string{"app.authenticate", kernel.RequestIDMiddleware}, r.MiddlewarePriority())
}

func TestKernelRouteGroupMiddleware(t *testing.T) {
	t.Parallel()

	k, app := newKernel(t, testConfig())
	k.WithMiddleware(func(m *kernel.Middleware) {
		m.Group("api", "request_id", "cache:60,public", "metrics")
	})

	app.Router().Group(router.GroupAttributes{Prefix: "/public", Middleware: []string{"api"}}, func(r *router.Router) {
		r.Get("/feed", func() string { return "feed" })
	})

	resp := k.Handle(httptest.NewRequest(http.MethodGet, "/public/feed", nil))

	require.Equal(t, http.StatusOK, resp.Status())
	assert.Equal(t, "max-age=60, public", resp.HeaderValue("Cache-Control"))
	assert.NotEmpty(t, resp.HeaderValue("X-Request-ID"))
}

func TestKernelThrottleAndSecureHeadersAliases(t *testing.T) {
	t.Parallel()

	k, app := newKernel(t, testConfig())
	app.Router().Get("/limited", func() string { return "ok" }).
		Middleware("throttle:2,1", "client_ip", "secure_headers:strict")

	send := func() *response.Response {
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		req.RemoteAddr = "192.0.2.7:4000"
		return k.Handle(req)
	}

	first := send()
	require.Equal(t, http.StatusOK, first.Status())
	assert.Equal(t, "1", first.HeaderValue("X-RateLimit-Remaining"))
	assert.Equal(t, "DENY", first.HeaderValue("X-Frame-Options"))

	require.Equal(t, http.StatusOK, send().Status())

	limited := send()
	assert.Equal(t, http.StatusTooManyRequests, limited.Status())
	assert.NotEmpty(t, limited.HeaderValue("Retry-After"))
	assert.Equal(t, "2", limited.HeaderValue("X-RateLimit-Limit"))
}

func TestKernelRequestHandledEvent(t *testing.T) {
	t.Parallel()

	k, app := newKernel(t, testConfig())
	app.Router().Get("/", func() string { return "home" })

	var (
		mu       sync.Mutex
		statuses []int
	)
	require.NoError(t, app.Events().Listen(event.NewHandlerFunc[kernel.RequestHandled](func(_ context.Context, e kernel.RequestHandled) error {
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, e.Response.Status())
		return nil
	})))

	var matched []string
	require.NoError(t, app.Events().Listen(event.NewHandlerFunc[router.RouteMatched](func(_ context.Context, e router.RouteMatched) error {
		matched = append(matched, e.Route.URI())
		return nil
	})))

	k.Handle(httptest.NewRequest(http.MethodGet, "/", nil))
	k.Handle(httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, []int{http.StatusOK, http.StatusNotFound}, statuses)
	assert.Equal(t, []string{"/"}, matched)
}

func TestKernelListenerFailureDoesNotAffectResponse(t *testing.T) {
	t.Parallel()

	k, app := newKernel(t, testConfig())
	app.Router().Get("/", func() string { return "home" })
	require.NoError(t, app.Events().Listen(event.NewHandlerFunc[kernel.RequestHandled](func(context.Context, kernel.RequestHandled) error {
		return errors.New("listener down")
	})))

	resp := k.Handle(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, resp.Status())
	assert.Equal(t, "home", resp.String())
}

func TestKernelBootstrapFailure(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Timezone = "Mars/Olympus_Mons"
	h := &recordingHandler{}
	k, app := newKernel(t, cfg, kernel.WithExceptionHandler(h))
	app.Router().Get("/", func() string { return "home" })

	resp := k.Handle(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, resp.Status())
	require.Len(t, h.reported, 1)
	assert.ErrorIs(t, h.reported[0], kernel.ErrBootstrap)
	assert.ErrorIs(t, h.reported[0], kernel.ErrInvalidTimezone)

	k.Handle(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, h.reported, 2, "bootstrap is not retried; the stored error is reported again")
}

type panickingProvider struct{}

func (panickingProvider) Register(*kernel.Application) error { panic("database unreachable") }

func TestKernelBootstrapPanicKeepsFailing(t *testing.T) {
	t.Parallel()

	h := &recordingHandler{}
	k, app := newKernel(t, testConfig(), kernel.WithExceptionHandler(h))
	require.NoError(t, app.Register(panickingProvider{}))
	app.Router().Get("/", func() string { return "home" })

	for range 2 {
		resp := k.Handle(httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, resp.Status())
	}

	require.Len(t, h.reported, 2)
	for _, err := range h.reported {
		assert.ErrorIs(t, err, kernel.ErrBootstrap)
		var pe *exception.PanicError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "database unreachable", pe.Value())
	}
	assert.True(t, app.HasBeenBootstrapped())
	assert.False(t, app.Booted())
}

func TestKernelGlobalMiddlewareDedupesAfterAliasResolution(t *testing.T) {
	t.Parallel()

	var runs int
	k, app := newKernel(t, testConfig())
	app.Router().RegisterMiddleware("real", handler.MiddlewareFunc(func(r *http.Request, next handler.HandlerFunc) (*response.Response, error) {
		runs++
		return next(r)
	}))
	app.Router().Get("/", func() string { return "home" })

	k.WithMiddleware(func(m *kernel.Middleware) {
		m.Alias(map[string]string{"short": "real"}).Use("short", "real")
	})

	assert.Equal(t, []string{
		kernel.ValidatePostSizeMiddleware,
		kernel.HandleCorsMiddleware,
		"real",
	}, k.ResolvedGlobalMiddleware())

	resp := k.Handle(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, resp.Status())
	assert.Equal(t, 1, runs)
}

func TestKernelConcurrentRequests(t *testing.T) {
	t.Parallel()

	k, app := newKernel(t, testConfig())
	app.Router().Get("/items/{id}", func(r *http.Request, p route.Params) (any, error) {
		return p.Get("id"), nil
	}).Middleware("request_id", "log", "metrics")

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := strings.Repeat("x", i+1)
			resp := k.Handle(httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
			assert.Equal(t, id, resp.String())
		}(i)
	}
	wg.Wait()
}
