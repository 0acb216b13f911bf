package route

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
)

// Route binds a set of HTTP methods and a URI template to an action.
//
// Routes are configured during registration and read afterwards.
// Matches binds parameters on the receiver and is not safe for concurrent
// use; Match returns a bound copy and is.
type Route struct {
	methods    []string
	uri        string
	action     Action
	pattern    *Pattern
	middleware []string
	excluded   []string
	name       string
	resolver   Resolver

	params Params
	bound  bool

	state *state
}

// state is shared by a route and the bound copies produced by Match.
type state struct {
	mu         sync.Mutex
	controller any
	computed   []string
}

// New creates and compiles a route. GET routes also answer HEAD.
func New(methods []string, uri string, action Action) (*Route, error) {
	if len(methods) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMethods, uri)
	}

	ms := make([]string, 0, len(methods)+1)
	for _, m := range methods {
		ms = append(ms, strings.ToUpper(m))
	}
	if slices.Contains(ms, http.MethodGet) {
		ms = append(ms, http.MethodHead)
	}

	uri = Normalize(uri)
	p, err := Compile(uri)
	if err != nil {
		return nil, err
	}

	return &Route{
		methods: Unique(ms),
		uri:     uri,
		action:  action,
		pattern: p,
		state:   &state{},
	}, nil
}

// Methods returns the HTTP methods the route answers.
func (rt *Route) Methods() []string {
	return slices.Clone(rt.methods)
}

// URI returns the normalized URI template.
func (rt *Route) URI() string {
	return rt.uri
}

// Pattern returns the compiled template.
func (rt *Route) Pattern() *Pattern {
	return rt.pattern
}

// ParameterNames returns the declared parameter names in order.
func (rt *Route) ParameterNames() []string {
	return rt.pattern.Names()
}

// Action returns the route action, which may be nil.
func (rt *Route) Action() Action {
	return rt.action
}

// Name returns the route name.
func (rt *Route) Name() string {
	return rt.name
}

// Matches reports whether the request targets this route and, on success,
// binds the extracted parameters on the receiver. A failed match leaves
// earlier bindings untouched.
func (rt *Route) Matches(r *http.Request) bool {
	params, ok := rt.match(r)
	if !ok {
		return false
	}
	rt.params = params
	rt.bound = true
	return true
}

// Match returns a bound copy of the route when the request matches.
func (rt *Route) Match(r *http.Request) (*Route, bool) {
	params, ok := rt.match(r)
	if !ok {
		return nil, false
	}
	c := *rt
	c.params = params
	c.bound = true
	return &c, true
}

func (rt *Route) match(r *http.Request) (Params, bool) {
	if !slices.Contains(rt.methods, r.Method) {
		return nil, false
	}
	return rt.pattern.Match(r.URL.Path)
}

// Bound reports whether parameters have been bound by a successful match.
func (rt *Route) Bound() bool {
	return rt.bound
}

// Parameters returns the bound parameters.
func (rt *Route) Parameters() (Params, error) {
	if !rt.bound {
		return nil, fmt.Errorf("%w: %s", ErrNotBound, rt.uri)
	}
	return slices.Clone(rt.params), nil
}

// Parameter returns a single bound parameter.
func (rt *Route) Parameter(name string) (string, error) {
	params, err := rt.Parameters()
	if err != nil {
		return "", err
	}
	return params.Get(name), nil
}

// Param returns a bound parameter and panics if the route is not bound.
func (rt *Route) Param(name string) string {
	v, err := rt.Parameter(name)
	if err != nil {
		panic(err)
	}
	return v
}

// SetParam overrides a bound parameter value.
func (rt *Route) SetParam(name, value string) error {
	if !rt.bound {
		return fmt.Errorf("%w: %s", ErrNotBound, rt.uri)
	}
	params := slices.Clone(rt.params)
	for i := range params {
		if params[i].Name == name {
			params[i].Value = value
			rt.params = params
			return nil
		}
	}
	rt.params = append(params, Param{Name: name, Value: value})
	return nil
}

// Run invokes the action with the bound parameters.
func (rt *Route) Run(r *http.Request) (any, error) {
	params, err := rt.Parameters()
	if err != nil {
		return nil, err
	}
	if r != nil {
		r = r.WithContext(WithParameterNames(r.Context(), rt.ParameterNames()))
	}

	switch a := rt.action.(type) {
	case Callable:
		if a.Fn == nil {
			return nil, fmt.Errorf("%w: route for [%s]", ErrNoAction, rt.uri)
		}
		return rt.Resolver().Call(r, a.Fn, params)
	case ControllerRef:
		target, err := rt.controllerAction(a)
		if err != nil {
			return nil, err
		}
		return rt.Resolver().Call(r, target, params)
	default:
		return nil, fmt.Errorf("%w: route for [%s]", ErrNoAction, rt.uri)
	}
}

// GatherMiddleware returns the route middleware followed by controller
// middleware, de-duplicated. The result is cached until the route is
// reconfigured.
func (rt *Route) GatherMiddleware() ([]string, error) {
	rt.state.mu.Lock()
	cached := rt.state.computed
	rt.state.mu.Unlock()
	if cached != nil {
		return slices.Clone(cached), nil
	}

	all := slices.Clone(rt.middleware)
	if ref, ok := rt.action.(ControllerRef); ok {
		ctrl, err := rt.controller(ref)
		if err != nil {
			return nil, err
		}
		if mp, ok := ctrl.(MiddlewareProvider); ok {
			all = append(all, mp.Middleware()...)
		}
	}
	computed := Unique(all)

	rt.state.mu.Lock()
	rt.state.computed = computed
	rt.state.mu.Unlock()
	return slices.Clone(computed), nil
}

// ExcludedMiddleware returns the middleware excluded from this route.
func (rt *Route) ExcludedMiddleware() []string {
	return slices.Clone(rt.excluded)
}

// Resolver returns the route resolver or the default one.
func (rt *Route) Resolver() Resolver {
	if rt.resolver == nil {
		return DefaultResolver{}
	}
	return rt.resolver
}

// Middleware appends middleware identifiers.
func (rt *Route) Middleware(ids ...string) *Route {
	rt.middleware = append(slices.Clone(rt.middleware), ids...)
	rt.invalidate()
	return rt
}

// WithoutMiddleware appends excluded middleware identifiers.
func (rt *Route) WithoutMiddleware(ids ...string) *Route {
	rt.excluded = append(slices.Clone(rt.excluded), ids...)
	return rt
}

// As appends to the route name, so routes inside a named group get the
// group prefix.
func (rt *Route) As(name string) *Route {
	rt.name += name
	return rt
}

// SetName sets the route name.
func (rt *Route) SetName(name string) *Route {
	rt.name = name
	return rt
}

// SetAction replaces the action.
func (rt *Route) SetAction(action Action) *Route {
	rt.action = action
	rt.state.mu.Lock()
	rt.state.controller = nil
	rt.state.mu.Unlock()
	rt.invalidate()
	return rt
}

// SetResolver sets the resolver used to build controllers and call actions.
func (rt *Route) SetResolver(res Resolver) *Route {
	rt.resolver = res
	rt.state.mu.Lock()
	rt.state.controller = nil
	rt.state.mu.Unlock()
	rt.invalidate()
	return rt
}

// URL renders the route path with the given parameters.
func (rt *Route) URL(params map[string]string) (string, error) {
	return rt.pattern.Build(params)
}

func (rt *Route) invalidate() {
	rt.state.mu.Lock()
	rt.state.computed = nil
	rt.state.mu.Unlock()
}

func (rt *Route) controller(ref ControllerRef) (any, error) {
	rt.state.mu.Lock()
	ctrl := rt.state.controller
	rt.state.mu.Unlock()
	if ctrl != nil {
		return ctrl, nil
	}

	ctrl, err := rt.Resolver().Make(ref.Controller)
	if err != nil {
		return nil, err
	}

	rt.state.mu.Lock()
	rt.state.controller = ctrl
	rt.state.mu.Unlock()
	return ctrl, nil
}

func (rt *Route) controllerAction(ref ControllerRef) (any, error) {
	ctrl, err := rt.controller(ref)
	if err != nil {
		return nil, err
	}

	missing := &MissingActionError{Controller: ref.Controller, Method: ref.Method}
	actions, ok := ctrl.(ControllerActions)
	if !ok {
		return nil, missing
	}
	target, ok := actions.Action(ref.Method)
	if !ok {
		return nil, missing
	}
	return target, nil
}
