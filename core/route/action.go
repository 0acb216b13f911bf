package route

import (
	"fmt"
	"net/http"
)

// Action is what a route runs once matched: either a Callable or a
// ControllerRef.
type Action interface {
	fmt.Stringer
	isAction()
}

// ActionFunc is the canonical action signature.
type ActionFunc func(r *http.Request, params Params) (any, error)

// Callable wraps a function invoked through the resolver.
type Callable struct {
	Fn any
}

func (Callable) isAction() {}

func (c Callable) String() string {
	return "Closure"
}

// ControllerRef names a controller registered in the resolver and the
// method to run on it.
type ControllerRef struct {
	Controller string
	Method     string
}

func (ControllerRef) isAction() {}

func (c ControllerRef) String() string {
	return c.Controller + "@" + c.Method
}

// Func creates a Callable action.
func Func(fn any) Action {
	return Callable{Fn: fn}
}

// Controller creates a ControllerRef action.
func Controller(id, method string) Action {
	return ControllerRef{Controller: id, Method: method}
}

// ControllerActions exposes named actions on a controller instance.
type ControllerActions interface {
	Action(method string) (any, bool)
}

// MiddlewareProvider is implemented by controllers that declare their own
// middleware.
type MiddlewareProvider interface {
	Middleware() []string
}

// Actions is a ControllerActions backed by a map.
type Actions map[string]any

// Action returns the callable registered for method.
func (a Actions) Action(method string) (any, bool) {
	fn, ok := a[method]
	return fn, ok && fn != nil
}
