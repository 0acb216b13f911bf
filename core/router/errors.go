package router

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrRouteNotFound      = errors.New("route not found")
	ErrNamedRouteNotFound = errors.New("named route not found")
	ErrInvalidMiddleware  = errors.New("invalid middleware")
	ErrUnknownMiddleware  = errors.New("unknown middleware")
	ErrInvalidAction      = errors.New("invalid route action")
)

// NotFoundError reports that no route matched the request.
type NotFoundError struct {
	Method string
	Path   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("the route %s could not be found", e.Path)
}

// Is reports whether target is ErrRouteNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrRouteNotFound
}

// StatusCode returns 404.
func (e *NotFoundError) StatusCode() int {
	return http.StatusNotFound
}

// statusCode is implemented by errors that carry an HTTP status.
type statusCode interface {
	StatusCode() int
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status := http.StatusInternalServerError
	var sc statusCode
	if errors.As(err, &sc) {
		status = sc.StatusCode()
	}
	http.Error(w, http.StatusText(status), status)
}
