package router

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"sync"

	"github.com/dmitrymomot/waypoint/core/event"
	"github.com/dmitrymomot/waypoint/core/handler"
	"github.com/dmitrymomot/waypoint/core/route"
)

// Verbs are the methods registered by Any.
var Verbs = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// Router owns the route table, the group stack used during registration and
// the middleware alias, group and priority configuration.
//
// Registration is expected to happen before serving. Dispatch is safe for
// concurrent use.
type Router struct {
	mu     sync.RWMutex
	routes map[string]*methodTable
	all    []*route.Route
	groups []GroupAttributes

	aliases  map[string]string
	mwGroups map[string][]string
	priority []string
	named    map[string]handler.Middleware

	resolver          route.Resolver
	events            event.Dispatcher
	logger            *slog.Logger
	errorHandler      handler.ErrorHandler
	skipMiddleware    func() bool
	literalExclusions bool
}

// methodTable keeps routes for one method in registration order.
type methodTable struct {
	uris  []string
	byURI map[string]*route.Route
}

// New creates an empty Router.
func New(opts ...Option) *Router {
	r := &Router{
		routes:       make(map[string]*methodTable),
		aliases:      make(map[string]string),
		mwGroups:     make(map[string][]string),
		named:        make(map[string]handler.Middleware),
		resolver:     route.DefaultResolver{},
		events:       event.Nop,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		errorHandler: defaultErrorHandler,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get registers a GET (and HEAD) route.
func (r *Router) Get(uri string, action any) *route.Route {
	return r.AddRoute([]string{http.MethodGet}, uri, action)
}

// Post registers a POST route.
func (r *Router) Post(uri string, action any) *route.Route {
	return r.AddRoute([]string{http.MethodPost}, uri, action)
}

// Put registers a PUT route.
func (r *Router) Put(uri string, action any) *route.Route {
	return r.AddRoute([]string{http.MethodPut}, uri, action)
}

// Patch registers a PATCH route.
func (r *Router) Patch(uri string, action any) *route.Route {
	return r.AddRoute([]string{http.MethodPatch}, uri, action)
}

// Delete registers a DELETE route.
func (r *Router) Delete(uri string, action any) *route.Route {
	return r.AddRoute([]string{http.MethodDelete}, uri, action)
}

// Options registers an OPTIONS route.
func (r *Router) Options(uri string, action any) *route.Route {
	return r.AddRoute([]string{http.MethodOptions}, uri, action)
}

// Any registers a route for every verb.
func (r *Router) Any(uri string, action any) *route.Route {
	return r.AddRoute(Verbs, uri, action)
}

// Match registers a route for the given methods.
func (r *Router) Match(methods []string, uri string, action any) *route.Route {
	return r.AddRoute(methods, uri, action)
}

// AddRoute registers a route under the current group attributes.
// Registering the same method and URI again replaces the earlier route
// while keeping its position. It panics on an invalid template or action.
//
// action may be a route.Action, nil, or any function accepted by the
// resolver.
func (r *Router) AddRoute(methods []string, uri string, action any) *route.Route {
	attrs := r.currentGroup()

	act, err := toAction(action, attrs.Namespace)
	if err != nil {
		panic(err)
	}
	rt, err := route.New(methods, joinPrefix(attrs.Prefix, uri), act)
	if err != nil {
		panic(err)
	}
	rt.SetResolver(r.resolver).
		SetName(attrs.Name).
		Middleware(attrs.Middleware...).
		WithoutMiddleware(attrs.WithoutMiddleware...)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range rt.Methods() {
		t, ok := r.routes[m]
		if !ok {
			t = &methodTable{byURI: make(map[string]*route.Route)}
			r.routes[m] = t
		}
		if _, exists := t.byURI[rt.URI()]; !exists {
			t.uris = append(t.uris, rt.URI())
		}
		t.byURI[rt.URI()] = rt
	}
	r.all = append(r.all, rt)

	return rt
}

func toAction(action any, namespace string) (route.Action, error) {
	switch a := action.(type) {
	case nil:
		return nil, nil
	case route.ControllerRef:
		if namespace != "" {
			a.Controller = namespace + "." + a.Controller
		}
		return a, nil
	case route.Callable:
		return a, nil
	case route.Action:
		return nil, fmt.Errorf("%w: %T", ErrInvalidAction, action)
	}
	if v := reflect.ValueOf(action); v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("%w: %T", ErrInvalidAction, action)
	}
	return route.Func(action), nil
}

// Routes returns the registered routes in registration order. Routes that
// were fully replaced by later registrations are omitted.
func (r *Router) Routes() []*route.Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*route.Route, 0, len(r.all))
	for _, rt := range r.all {
		for _, m := range rt.Methods() {
			if t, ok := r.routes[m]; ok && t.byURI[rt.URI()] == rt {
				out = append(out, rt)
				break
			}
		}
	}
	return out
}

// RoutesFor returns the routes registered for a method in registration order.
func (r *Router) RoutesFor(method string) []*route.Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.routes[method]
	if !ok {
		return nil
	}
	return t.ordered()
}

// Lookup finds a route by name.
func (r *Router) Lookup(name string) (*route.Route, bool) {
	for _, rt := range r.Routes() {
		if rt.Name() == name {
			return rt, true
		}
	}
	return nil, false
}

// URL renders the path of a named route.
func (r *Router) URL(name string, params map[string]string) (string, error) {
	rt, ok := r.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNamedRouteNotFound, name)
	}
	return rt.URL(params)
}

// Resolver returns the configured resolver.
func (r *Router) Resolver() route.Resolver {
	return r.resolver
}

// SetSkipMiddleware replaces the switch that disables route middleware.
func (r *Router) SetSkipMiddleware(fn func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipMiddleware = fn
}

func (r *Router) shouldSkipMiddleware() bool {
	r.mu.RLock()
	fn := r.skipMiddleware
	r.mu.RUnlock()
	return fn != nil && fn()
}

func (t *methodTable) ordered() []*route.Route {
	out := make([]*route.Route, 0, len(t.uris))
	for _, uri := range t.uris {
		out = append(out, t.byURI[uri])
	}
	return out
}
