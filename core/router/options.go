package router

import (
	"log/slog"

	"github.com/dmitrymomot/waypoint/core/event"
	"github.com/dmitrymomot/waypoint/core/handler"
	"github.com/dmitrymomot/waypoint/core/route"
)

// Option configures a Router during creation.
type Option func(*Router)

// WithResolver sets the resolver used to build controllers, call actions
// and construct middleware by identifier.
func WithResolver(res route.Resolver) Option {
	return func(r *Router) {
		if res != nil {
			r.resolver = res
		}
	}
}

// WithEvents sets the dispatcher notified about matched routes.
func WithEvents(d event.Dispatcher) Option {
	return func(r *Router) {
		if d != nil {
			r.events = d
		}
	}
}

// WithLogger sets a custom logger for the router.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithErrorHandler sets the handler used by ServeHTTP for dispatch errors.
func WithErrorHandler(h handler.ErrorHandler) Option {
	return func(r *Router) {
		if h != nil {
			r.errorHandler = h
		}
	}
}

// WithSkipMiddleware installs a switch that disables route middleware when
// it returns true.
func WithSkipMiddleware(fn func() bool) Option {
	return func(r *Router) {
		r.skipMiddleware = fn
	}
}

// WithLiteralExclusions makes ResolveMiddleware union excluded identifiers
// into the result instead of removing them.
func WithLiteralExclusions() Option {
	return func(r *Router) {
		r.literalExclusions = true
	}
}
