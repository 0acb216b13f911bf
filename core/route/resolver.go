package route

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnresolvable is returned by the default resolver for every Make call.
var ErrUnresolvable = errors.New("unresolvable dependency")

// Resolver builds controllers and invokes actions with bound parameters.
type Resolver interface {
	Make(id string) (any, error)
	Call(r *http.Request, target any, params Params) (any, error)
}

// DefaultResolver invokes the action shapes supported by Invoke and cannot
// build controllers.
type DefaultResolver struct{}

// Make always fails.
func (DefaultResolver) Make(id string) (any, error) {
	return nil, fmt.Errorf("%w: %s", ErrUnresolvable, id)
}

// Call delegates to Invoke.
func (DefaultResolver) Call(r *http.Request, target any, params Params) (any, error) {
	return Invoke(r, target, params)
}

// Invoke calls target when it has one of the well-known action signatures
// and fails with ErrUnsupportedCall otherwise.
func Invoke(r *http.Request, target any, params Params) (any, error) {
	if res, ok, err := invoke(r, target, params); ok {
		return res, err
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedCall, target)
}

// TryInvoke is like Invoke but reports whether the signature was recognized
// instead of failing.
func TryInvoke(r *http.Request, target any, params Params) (any, bool, error) {
	return invoke(r, target, params)
}

func invoke(r *http.Request, target any, params Params) (any, bool, error) {
	switch fn := target.(type) {
	case ActionFunc:
		res, err := fn(r, params)
		return res, true, err
	case func(*http.Request, Params) (any, error):
		res, err := fn(r, params)
		return res, true, err
	case func(*http.Request) (any, error):
		res, err := fn(r)
		return res, true, err
	case func(*http.Request, Params) any:
		return fn(r, params), true, nil
	case func(*http.Request) any:
		return fn(r), true, nil
	case func() (any, error):
		res, err := fn()
		return res, true, err
	case func() any:
		return fn(), true, nil
	case func() string:
		return fn(), true, nil
	}
	return nil, false, nil
}
