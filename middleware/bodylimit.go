package middleware

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrymomot/waypoint/core/exception"
	"github.com/dmitrymomot/waypoint/core/handler"
	"github.com/dmitrymomot/waypoint/core/response"
)

// Common size constants for convenience
const (
	// KB represents 1 kilobyte
	KB int64 = 1024
	// MB represents 1 megabyte
	MB = 1024 * KB
	// GB represents 1 gigabyte
	GB = 1024 * MB
)

// ErrInvalidSize is returned by ParseSize for malformed size strings.
var ErrInvalidSize = errors.New("invalid size")

// PostSizeConfig configures the request size validation middleware.
type PostSizeConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(r *http.Request) bool

	// MaxSize is the maximum allowed size in bytes. Zero or less disables the check.
	MaxSize int64

	// LimitBody also caps the body reader, catching requests without a
	// Content-Length header.
	LimitBody bool
}

// ValidatePostSize rejects requests whose declared Content-Length exceeds
// maxSize with a 413 error. A maxSize of zero disables the check.
func ValidatePostSize(maxSize int64) handler.Middleware {
	return ValidatePostSizeWithConfig(PostSizeConfig{MaxSize: maxSize})
}

// ValidatePostSizeWithConfig creates the size validation middleware with custom configuration.
func ValidatePostSizeWithConfig(cfg PostSizeConfig) handler.Middleware {
	return handler.MiddlewareFunc(func(r *http.Request, next handler.HandlerFunc) (*response.Response, error) {
		if cfg.MaxSize <= 0 || (cfg.Skip != nil && cfg.Skip(r)) {
			return next(r)
		}

		if r.ContentLength > cfg.MaxSize {
			return nil, tooLarge(r.ContentLength, cfg.MaxSize)
		}

		if cfg.LimitBody && r.Body != nil && r.Body != http.NoBody {
			limited := new(http.Request)
			*limited = *r
			limited.Body = &limitedReader{reader: r.Body, limit: cfg.MaxSize}
			r = limited
		}

		return next(r)
	})
}

// ParseSize converts values such as "8M", "512K", "1G" or "1048576" to
// bytes. The suffix is case-insensitive; an empty string is zero.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	multiplier := int64(1)
	switch strings.ToUpper(s[len(s)-1:]) {
	case "K":
		multiplier = KB
	case "M":
		multiplier = MB
	case "G":
		multiplier = GB
	}
	if multiplier > 1 {
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}
	return n * multiplier, nil
}

func tooLarge(size, maxSize int64) error {
	message := fmt.Sprintf("Request body too large. Maximum allowed: %s", formatBytes(maxSize))
	if size > 0 {
		message = fmt.Sprintf("Request body too large. Size: %s, Maximum allowed: %s",
			formatBytes(size), formatBytes(maxSize))
	}
	return exception.ErrPayloadTooLarge.WithMessage(message)
}

// limitedReader wraps an io.ReadCloser to enforce a size limit
type limitedReader struct {
	reader io.ReadCloser
	limit  int64
	read   int64
}

// Read implements io.Reader
func (lr *limitedReader) Read(p []byte) (int, error) {
	if lr.read > lr.limit {
		return 0, tooLarge(lr.read, lr.limit)
	}

	// Allow one byte past the limit so an exact-size body still reads to EOF.
	remaining := lr.limit - lr.read + 1
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err := lr.reader.Read(p)
	lr.read += int64(n)

	if lr.read > lr.limit {
		return n - int(lr.read-lr.limit), tooLarge(lr.read, lr.limit)
	}

	return n, err
}

// Close implements io.Closer
func (lr *limitedReader) Close() error {
	return lr.reader.Close()
}

// formatBytes formats bytes into a human-readable string
func formatBytes(bytes int64) string {
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
