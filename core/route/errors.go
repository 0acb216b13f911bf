package route

import (
	"errors"
	"fmt"
)

var (
	// Compile errors
	ErrInvalidPattern     = errors.New("invalid route pattern")
	ErrInvalidParamName   = errors.New("invalid route parameter name")
	ErrDuplicateParameter = errors.New("duplicate route parameter")
	ErrUnclosedParameter  = errors.New("unclosed route parameter")

	// Route errors
	ErrNoMethods        = errors.New("route requires at least one http method")
	ErrNotBound         = errors.New("route is not bound")
	ErrNoAction         = errors.New("route has no action")
	ErrMissingAction    = errors.New("controller action does not exist")
	ErrMissingParameter = errors.New("missing route parameter")
	ErrUnsupportedCall  = errors.New("unsupported action signature")
)

// MissingActionError is returned when a controller cannot serve the
// referenced method.
type MissingActionError struct {
	Controller string
	Method     string
}

func (e *MissingActionError) Error() string {
	return fmt.Sprintf("controller action does not exist: %s.%s", e.Controller, e.Method)
}

// Is reports whether target is ErrMissingAction.
func (e *MissingActionError) Is(target error) bool {
	return target == ErrMissingAction
}
