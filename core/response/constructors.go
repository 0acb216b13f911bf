package response

import (
	"encoding/json"
	"net/http"
)

const (
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeJSON = "application/json; charset=utf-8"
)

// String creates a text/plain 200 response.
func String(content string) *Response {
	return StringWithStatus(content, http.StatusOK)
}

// StringWithStatus creates a text/plain response with a custom status.
func StringWithStatus(content string, status int) *Response {
	return New(status, []byte(content), http.Header{"Content-Type": {ContentTypeText}})
}

// HTML creates a text/html 200 response.
func HTML(content string) *Response {
	return New(http.StatusOK, []byte(content), http.Header{"Content-Type": {ContentTypeHTML}})
}

// Bytes creates a 200 response with a sniffed content type.
func Bytes(data []byte) *Response {
	return New(http.StatusOK, data, http.Header{"Content-Type": {http.DetectContentType(data)}})
}

// Status creates an empty response with the given status.
func Status(status int) *Response {
	return New(status, nil, nil)
}

// NoContent creates an empty 204 response.
func NoContent() *Response {
	return Status(http.StatusNoContent)
}

// JSON encodes v as indented JSON with a 200 status.
func JSON(v any) (*Response, error) {
	return JSONWithStatus(v, http.StatusOK)
}

// JSONWithStatus encodes v as indented JSON with a custom status.
func JSONWithStatus(v any, status int) (*Response, error) {
	body, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return nil, err
	}
	return New(status, body, http.Header{"Content-Type": {ContentTypeJSON}}), nil
}
