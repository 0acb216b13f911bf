package middleware

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/waypoint/core/handler"
	"github.com/dmitrymomot/waypoint/core/response"
	"github.com/dmitrymomot/waypoint/pkg/clientip"
)

// clientIPContextKey is used as a key for storing client IP in request context.
type clientIPContextKey struct{}

// ClientIPConfig configures the client IP extraction middleware.
type ClientIPConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(r *http.Request) bool
	// HeaderName specifies the response header name for the client IP (default: "X-Client-IP")
	HeaderName string
	// StoreInHeader determines whether to include the IP in response headers
	StoreInHeader bool
}

// ClientIP stores the client IP in the request context for later middleware
// and actions.
func ClientIP() handler.Middleware {
	return ClientIPWithConfig(ClientIPConfig{})
}

// ClientIPWithConfig creates a client IP extraction middleware with custom configuration.
func ClientIPWithConfig(cfg ClientIPConfig) handler.Middleware {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "X-Client-IP"
	}

	return handler.MiddlewareFunc(func(r *http.Request, next handler.HandlerFunc) (*response.Response, error) {
		if cfg.Skip != nil && cfg.Skip(r) {
			return next(r)
		}

		ip := clientip.GetIP(r)
		resp, err := next(r.WithContext(context.WithValue(r.Context(), clientIPContextKey{}, ip)))
		if err != nil || resp == nil || !cfg.StoreInHeader {
			return resp, err
		}
		return resp.WithHeader(cfg.HeaderName, ip), nil
	})
}

// GetClientIP retrieves the client IP address from the request context.
// Returns the IP address and a boolean indicating whether it was found.
func GetClientIP(ctx context.Context) (string, bool) {
	ip, ok := ctx.Value(clientIPContextKey{}).(string)
	return ip, ok
}

// RequestClientIP returns the IP stored by ClientIP, or extracts it from r.
func RequestClientIP(r *http.Request) string {
	if ip, ok := GetClientIP(r.Context()); ok {
		return ip
	}
	return clientip.GetIP(r)
}
