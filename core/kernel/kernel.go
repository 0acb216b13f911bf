package kernel

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/waypoint/core/container"
	"github.com/dmitrymomot/waypoint/core/exception"
	"github.com/dmitrymomot/waypoint/core/handler"
	"github.com/dmitrymomot/waypoint/core/logger"
	"github.com/dmitrymomot/waypoint/core/pipeline"
	"github.com/dmitrymomot/waypoint/core/response"
	"github.com/dmitrymomot/waypoint/core/route"
	"github.com/dmitrymomot/waypoint/core/router"
	"github.com/dmitrymomot/waypoint/middleware"
	"github.com/dmitrymomot/waypoint/pkg/ratelimiter"
)

// RequestHandled is dispatched after the kernel produced a response.
type RequestHandled struct {
	Request  *http.Request
	Response *response.Response
	Duration time.Duration
}

// Kernel is the per-request orchestrator. It is an http.Handler.
type Kernel struct {
	app           *Application
	router        *router.Router
	bootstrappers []Bootstrapper
	registerer    prometheus.Registerer

	mu         sync.RWMutex
	middleware *Middleware

	exceptionsOnce sync.Once
	exceptions     exception.Handler
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithRouter replaces the application router. The router must resolve
// middleware through the application container for the built-in
// middleware to be found.
func WithRouter(r *router.Router) Option {
	return func(k *Kernel) {
		if r != nil {
			k.router = r
		}
	}
}

// WithBootstrappers replaces the default bootstrap sequence.
func WithBootstrappers(bs ...Bootstrapper) Option {
	return func(k *Kernel) {
		k.bootstrappers = bs
	}
}

// WithExceptionHandler sets the handler used at the catch point. Without
// it the kernel uses an exception.Handler bound in the container, or an
// exception.DefaultHandler honoring APP_DEBUG.
func WithExceptionHandler(h exception.Handler) Option {
	return func(k *Kernel) {
		if h != nil {
			k.exceptions = h
		}
	}
}

// WithMetricsRegisterer sets the Prometheus registerer for the metrics middleware.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(k *Kernel) {
		if reg != nil {
			k.registerer = reg
		}
	}
}

// New creates a kernel for app and syncs the default middleware
// configuration to the router. It panics if app is nil.
func New(app *Application, opts ...Option) *Kernel {
	if app == nil {
		panic(ErrNilApplication)
	}

	k := &Kernel{
		app:           app,
		bootstrappers: DefaultBootstrappers(),
		registerer:    prometheus.DefaultRegisterer,
		middleware:    NewMiddleware(),
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.router == nil {
		k.router = app.Router()
	}

	k.bindMiddleware()
	k.syncMiddlewareToRouter()
	return k
}

// Application returns the kernel's application.
func (k *Kernel) Application() *Application { return k.app }

// Router returns the router requests are dispatched to.
func (k *Kernel) Router() *router.Router { return k.router }

// Bootstrap runs the bootstrappers once.
func (k *Kernel) Bootstrap() error {
	return k.app.BootstrapWith(k.bootstrappers...)
}

// Handle turns a request into a response. It never returns nil and never
// panics: every error and panic raised while bootstrapping, in middleware
// or in the action is reported and rendered here, once.
func (k *Kernel) Handle(r *http.Request) (resp *response.Response) {
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			resp = k.renderException(r, exception.Recovered(p))
		}
		k.requestHandled(r, resp, time.Since(start))
	}()

	res, err := k.sendRequestThroughRouter(r)
	if err != nil {
		return k.renderException(r, err)
	}
	return res
}

// ServeHTTP implements http.Handler.
func (k *Kernel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := k.Handle(r)
	if err := resp.Render(w); err != nil {
		k.app.Logger().ErrorContext(r.Context(), "failed to write response",
			logger.Component("kernel"),
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
			logger.Error(err),
		)
	}
}

func (k *Kernel) sendRequestThroughRouter(r *http.Request) (*response.Response, error) {
	if err := k.Bootstrap(); err != nil {
		return nil, err
	}

	var ids []string
	if !k.app.ShouldSkipMiddleware() {
		ids = k.ResolvedGlobalMiddleware()
	}
	stages, err := k.router.MakeMiddleware(ids)
	if err != nil {
		return nil, err
	}

	res, err := pipeline.Send[*http.Request, *response.Response](r).
		Through(stages...).
		Then(k.router.Dispatch)
	if err != nil {
		return nil, err
	}
	return response.Prepare(res)
}

// ResolvedGlobalMiddleware returns the global stack with aliases replaced
// by the identifiers they point to, keeping the first of any duplicates.
func (k *Kernel) ResolvedGlobalMiddleware() []string {
	k.mu.RLock()
	ids := k.middleware.GlobalMiddleware()
	aliases := k.middleware.MiddlewareAliases()
	k.mu.RUnlock()

	for i, id := range ids {
		name, _ := router.ParseMiddleware(id)
		if target, ok := aliases[name]; ok {
			ids[i] = target + strings.TrimPrefix(id, name)
		}
	}
	return route.Unique(ids)
}

func (k *Kernel) renderException(r *http.Request, err error) *response.Response {
	err = exception.WithStack(err)
	h := k.exceptionHandler()

	h.Report(r.Context(), err)
	if resp := h.Render(r, err); resp != nil {
		return resp
	}
	return response.StringWithStatus(http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (k *Kernel) exceptionHandler() exception.Handler {
	k.exceptionsOnce.Do(func() {
		if k.exceptions != nil {
			return
		}
		c := k.app.Container()
		if c.Bound(container.TypeKey[exception.Handler]()) {
			if h, err := container.Resolve[exception.Handler](c, container.TypeKey[exception.Handler]()); err == nil && h != nil {
				k.exceptions = h
				return
			}
		}
		k.exceptions = exception.NewHandler(
			exception.WithLogger(k.app.Logger()),
			exception.WithDebug(k.app.Debug()),
		)
	})
	return k.exceptions
}

func (k *Kernel) requestHandled(r *http.Request, resp *response.Response, d time.Duration) {
	ctx := context.WithoutCancel(r.Context())
	if err := k.app.Events().Dispatch(ctx, RequestHandled{Request: r, Response: resp, Duration: d}); err != nil {
		k.app.Logger().WarnContext(ctx, "request handled listener failed",
			logger.Component("kernel"),
			logger.Error(err),
		)
	}
}

// PushMiddleware appends id to the global stack unless it is already there.
func (k *Kernel) PushMiddleware(id string) *Kernel {
	k.mu.Lock()
	k.middleware.Append(id)
	k.mu.Unlock()
	return k
}

// WithMiddleware applies fn to the middleware configuration and syncs the
// result to the router.
func (k *Kernel) WithMiddleware(fn func(m *Middleware)) *Kernel {
	k.mu.Lock()
	fn(k.middleware)
	k.mu.Unlock()

	k.syncMiddlewareToRouter()
	return k
}

// GlobalMiddleware returns the global stack, built-ins first.
func (k *Kernel) GlobalMiddleware() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.middleware.GlobalMiddleware()
}

// MiddlewarePriority returns the configured priority list.
func (k *Kernel) MiddlewarePriority() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.middleware.MiddlewarePriority()
}

func (k *Kernel) syncMiddlewareToRouter() {
	k.mu.RLock()
	priority := k.middleware.MiddlewarePriority()
	groups := k.middleware.MiddlewareGroups()
	aliases := k.middleware.MiddlewareAliases()
	k.mu.RUnlock()

	k.router.SetMiddlewarePriority(priority)
	for name, ids := range groups {
		k.router.MiddlewareGroup(name, ids)
	}
	for name, id := range aliases {
		k.router.AliasMiddleware(name, id)
	}
}

// bindMiddleware binds the built-in middleware into the container. The
// bindings are singletons built on first use, after configuration is loaded.
func (k *Kernel) bindMiddleware() {
	c := k.app.Container()
	app := k.app
	reg := k.registerer

	bind := func(id string, build func() handler.Middleware) {
		if c.Bound(id) {
			return
		}
		c.Singleton(id, func(*container.Container) (any, error) {
			return build(), nil
		})
	}

	bind(ValidatePostSizeMiddleware, func() handler.Middleware {
		return middleware.ValidatePostSize(app.PostMaxSize())
	})
	bind(HandleCorsMiddleware, middleware.HandleCors)
	bind(RequestIDMiddleware, middleware.RequestID)
	bind(LogMiddleware, func() handler.Middleware {
		return middleware.Logging(app.Logger())
	})
	bind(MetricsMiddleware, func() handler.Middleware {
		return middleware.NewMetrics(middleware.WithRegistry(reg))
	})
	bind(CacheMiddleware, func() handler.Middleware {
		return middleware.CacheHeaders{}
	})
	bind(ClientIPMiddleware, middleware.ClientIP)
	bind(SecureHeadersMiddleware, func() handler.Middleware {
		return middleware.NewSecurityHeaders(app.IsEnvironment("local"))
	})

	if !c.Bound(container.TypeKey[*ratelimiter.MemoryStore]()) {
		container.Provide(c, func(*container.Container) (*ratelimiter.MemoryStore, error) {
			return ratelimiter.NewMemoryStore(ratelimiter.WithMemoryStoreLogger(app.Logger())), nil
		})
	}
	if !c.Bound(ThrottleMiddleware) {
		c.Singleton(ThrottleMiddleware, func(c *container.Container) (any, error) {
			store, err := container.Resolve[*ratelimiter.MemoryStore](c, container.TypeKey[*ratelimiter.MemoryStore]())
			if err != nil {
				return nil, err
			}
			return middleware.NewThrottle(store), nil
		})
	}
}
