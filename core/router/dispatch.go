package router

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/waypoint/core/exception"
	"github.com/dmitrymomot/waypoint/core/logger"
	"github.com/dmitrymomot/waypoint/core/pipeline"
	"github.com/dmitrymomot/waypoint/core/response"
	"github.com/dmitrymomot/waypoint/core/route"
)

// RouteMatched is dispatched after a route has been bound to a request.
type RouteMatched struct {
	Route   *route.Route
	Request *http.Request
}

// FindRoute returns a bound copy of the first route registered for the
// request method whose template matches the path.
func (r *Router) FindRoute(req *http.Request) (*route.Route, error) {
	r.mu.RLock()
	t, ok := r.routes[req.Method]
	var candidates []*route.Route
	if ok {
		candidates = t.ordered()
	}
	r.mu.RUnlock()

	for _, rt := range candidates {
		if bound, ok := rt.Match(req); ok {
			return bound, nil
		}
	}
	return nil, &NotFoundError{Method: req.Method, Path: req.URL.Path}
}

// Dispatch matches the request, runs the route middleware and the action,
// and normalizes the result into a response.
func (r *Router) Dispatch(req *http.Request) (*response.Response, error) {
	rt, err := r.FindRoute(req)
	if err != nil {
		return nil, err
	}

	req = req.WithContext(WithRoute(req.Context(), rt))

	if err := r.events.Dispatch(req.Context(), RouteMatched{Route: rt, Request: req}); err != nil {
		r.logger.WarnContext(req.Context(), "route matched listener failed",
			logger.Component("router"),
			logger.Route(rt.URI()),
			logger.Error(err),
		)
	}

	return r.RunRoute(req, rt)
}

// RunRoute runs a bound route through its resolved middleware.
func (r *Router) RunRoute(req *http.Request, rt *route.Route) (*response.Response, error) {
	ids, err := r.GatherRouteMiddleware(rt)
	if err != nil {
		return nil, err
	}
	stages, err := r.MakeMiddleware(ids)
	if err != nil {
		return nil, err
	}

	r.logger.DebugContext(req.Context(), "dispatching route",
		logger.Component("router"),
		logger.Method(req.Method),
		logger.Route(rt.URI()),
		logger.Middleware(ids),
	)

	res, err := pipeline.Send[*http.Request, *response.Response](req).
		Through(stages...).
		Then(func(req *http.Request) (*response.Response, error) {
			out, err := rt.Run(req)
			if err != nil {
				return nil, err
			}
			return response.Prepare(out)
		})
	if err != nil {
		return nil, err
	}
	return response.Prepare(res)
}

// ServeHTTP dispatches the request and renders the response. Errors and
// panics go to the configured error handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	defer func() {
		if p := recover(); p != nil {
			err := exception.Recovered(p)
			r.logger.ErrorContext(req.Context(), "panic recovered",
				logger.Component("router"),
				logger.Method(req.Method),
				logger.Path(req.URL.Path),
				logger.Error(err),
			)
			r.errorHandler(w, req, err)
		}
	}()

	res, err := r.Dispatch(req)
	if err != nil {
		r.errorHandler(w, req, err)
		return
	}
	if err := res.Render(w); err != nil {
		r.logger.ErrorContext(req.Context(), "failed to write response",
			logger.Component("router"),
			logger.Error(err),
		)
	}
}

type routeContextKey struct{}

// WithRoute stores the matched route in ctx.
func WithRoute(ctx context.Context, rt *route.Route) context.Context {
	return context.WithValue(ctx, routeContextKey{}, rt)
}

// CurrentRoute returns the route matched for the request, if any.
func CurrentRoute(ctx context.Context) (*route.Route, bool) {
	rt, ok := ctx.Value(routeContextKey{}).(*route.Route)
	return rt, ok && rt != nil
}

// Param returns a bound parameter of the current route, or "" when the
// request was not routed.
func Param(r *http.Request, name string) string {
	rt, ok := CurrentRoute(r.Context())
	if !ok {
		return ""
	}
	v, err := rt.Parameter(name)
	if err != nil {
		return ""
	}
	return v
}
