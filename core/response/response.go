package response

import (
	"net/http"
	"slices"
	"strconv"
)

// Response is an immutable HTTP response: status, headers and a fully
// buffered body.
type Response struct {
	status int
	header http.Header
	body   []byte
}

// New creates a response with the given status, body and headers.
// A zero status defaults to 200 OK.
func New(status int, body []byte, header http.Header) *Response {
	if status == 0 {
		status = http.StatusOK
	}
	h := make(http.Header, len(header))
	for k, v := range header {
		h[http.CanonicalHeaderKey(k)] = slices.Clone(v)
	}
	return &Response{status: status, header: h, body: slices.Clone(body)}
}

// Status returns the HTTP status code.
func (r *Response) Status() int {
	return r.status
}

// Header returns a copy of the response headers.
func (r *Response) Header() http.Header {
	return r.header.Clone()
}

// HeaderValue returns the first value of the named header.
func (r *Response) HeaderValue(key string) string {
	return r.header.Get(key)
}

// Body returns a copy of the response body.
func (r *Response) Body() []byte {
	return slices.Clone(r.body)
}

// String returns the body as a string.
func (r *Response) String() string {
	return string(r.body)
}

// WithStatus returns a copy with the status replaced.
func (r *Response) WithStatus(status int) *Response {
	c := r.clone()
	c.status = status
	return c
}

// WithHeader returns a copy with the header set, replacing existing values.
func (r *Response) WithHeader(key, value string) *Response {
	c := r.clone()
	c.header.Set(key, value)
	return c
}

// WithAddedHeader returns a copy with value appended to the header.
func (r *Response) WithAddedHeader(key, value string) *Response {
	c := r.clone()
	c.header.Add(key, value)
	return c
}

// WithoutHeader returns a copy with the header removed.
func (r *Response) WithoutHeader(key string) *Response {
	c := r.clone()
	c.header.Del(key)
	return c
}

// WithBody returns a copy with the body replaced.
func (r *Response) WithBody(body []byte) *Response {
	c := r.clone()
	c.body = slices.Clone(body)
	return c
}

// WithoutBody returns a copy with any buffered output discarded.
func (r *Response) WithoutBody() *Response {
	c := r.clone()
	c.body = nil
	return c
}

// Render writes the response to w.
// Bodies are not written for 1xx, 204 and 304 responses.
func (r *Response) Render(w http.ResponseWriter) error {
	dst := w.Header()
	for k, v := range r.header {
		dst[k] = slices.Clone(v)
	}

	if !bodyAllowed(r.status) {
		w.WriteHeader(r.status)
		return nil
	}

	if dst.Get("Content-Length") == "" {
		dst.Set("Content-Length", strconv.Itoa(len(r.body)))
	}
	w.WriteHeader(r.status)
	if len(r.body) == 0 {
		return nil
	}
	_, err := w.Write(r.body)
	return err
}

func (r *Response) clone() *Response {
	h := r.header.Clone()
	if h == nil {
		h = make(http.Header)
	}
	return &Response{status: r.status, header: h, body: r.body}
}

func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status < 200:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}
