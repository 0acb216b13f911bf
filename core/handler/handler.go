package handler

import (
	"net/http"

	"github.com/dmitrymomot/waypoint/core/pipeline"
	"github.com/dmitrymomot/waypoint/core/response"
)

// HandlerFunc produces a response for a request.
type HandlerFunc = pipeline.Next[*http.Request, *response.Response]

// Middleware is a pipeline stage around a HandlerFunc.
type Middleware = pipeline.Stage[*http.Request, *response.Response]

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc = pipeline.StageFunc[*http.Request, *response.Response]

// ParameterizedMiddleware receives the arguments declared after ':' in a
// middleware identifier, e.g. "cache:60,public".
type ParameterizedMiddleware interface {
	Middleware
	HandleWith(r *http.Request, next HandlerFunc, args ...string) (*response.Response, error)
}

// ErrorHandler renders an error that escaped the pipeline.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// WithArgs binds args to a parameterized middleware, returning a plain stage.
func WithArgs(m ParameterizedMiddleware, args ...string) Middleware {
	if len(args) == 0 {
		return m
	}
	return MiddlewareFunc(func(r *http.Request, next HandlerFunc) (*response.Response, error) {
		return m.HandleWith(r, next, args...)
	})
}

// Chain composes middlewares around h; the first middleware is outermost.
func Chain(h HandlerFunc, middlewares ...Middleware) HandlerFunc {
	return pipeline.Chain(h, middlewares...)
}
