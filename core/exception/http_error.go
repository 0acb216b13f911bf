package exception

import "net/http"

// HTTPError is an error with an HTTP status, a client-safe message and
// optional response headers.
type HTTPError struct {
	Status  int
	Message string
	Headers http.Header
	Err     error
}

// NewHTTPError creates an HTTPError. An empty message defaults to the
// status text.
func NewHTTPError(status int, message string) *HTTPError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &HTTPError{Status: status, Message: message}
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the wrapped cause.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status.
func (e *HTTPError) StatusCode() int {
	return e.Status
}

// WithError returns a copy wrapping err.
func (e *HTTPError) WithError(err error) *HTTPError {
	c := e.clone()
	c.Err = err
	return c
}

// WithMessage returns a copy with a different message.
func (e *HTTPError) WithMessage(msg string) *HTTPError {
	c := e.clone()
	c.Message = msg
	return c
}

// WithHeader returns a copy with an extra response header.
func (e *HTTPError) WithHeader(key, value string) *HTTPError {
	c := e.clone()
	c.Headers.Set(key, value)
	return c
}

func (e *HTTPError) clone() *HTTPError {
	h := e.Headers.Clone()
	if h == nil {
		h = make(http.Header)
	}
	return &HTTPError{Status: e.Status, Message: e.Message, Headers: h, Err: e.Err}
}

// Is matches another *HTTPError with the same status.
func (e *HTTPError) Is(target error) bool {
	t, ok := target.(*HTTPError)
	return ok && t.Status == e.Status
}

var (
	ErrBadRequest          = NewHTTPError(http.StatusBadRequest, "")
	ErrForbidden           = NewHTTPError(http.StatusForbidden, "")
	ErrNotFound            = NewHTTPError(http.StatusNotFound, "")
	ErrMethodNotAllowed    = NewHTTPError(http.StatusMethodNotAllowed, "")
	ErrPayloadTooLarge     = NewHTTPError(http.StatusRequestEntityTooLarge, "")
	ErrTooManyRequests     = NewHTTPError(http.StatusTooManyRequests, "")
	ErrInternalServerError = NewHTTPError(http.StatusInternalServerError, "")
	ErrServiceUnavailable  = NewHTTPError(http.StatusServiceUnavailable, "")
)
