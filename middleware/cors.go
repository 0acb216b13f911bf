package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/dmitrymomot/waypoint/core/handler"
	"github.com/dmitrymomot/waypoint/core/response"
)

// CORSConfig defines configuration options for CORS middleware.
type CORSConfig struct {
	// Skip allows bypassing CORS handling for specific requests
	Skip func(r *http.Request) bool

	// PathContains limits CORS handling to request paths containing this
	// fragment. Empty applies CORS to every path. HandleCors uses "/api".
	PathContains string

	// AllowOrigins specifies allowed origins. Empty echoes the request
	// Origin header, or "*" when the request carries none.
	AllowOrigins []string

	// AllowMethods specifies allowed HTTP methods.
	AllowMethods []string

	// AllowHeaders specifies allowed request headers.
	AllowHeaders []string

	// ExposeHeaders specifies which headers are exposed to the client
	ExposeHeaders []string

	// AllowCredentials sets Access-Control-Allow-Credentials for non-wildcard origins.
	AllowCredentials bool

	// MaxAge specifies how long preflight requests can be cached (in seconds)
	MaxAge int

	// NoCache adds Cache-Control and Pragma headers that disable caching.
	NoCache bool
}

// HandleCors returns the built-in CORS middleware: API paths get permissive
// CORS headers plus no-cache headers, and preflight requests are answered
// with 204 before reaching the route.
func HandleCors() handler.Middleware {
	return CORSWithConfig(CORSConfig{
		PathContains:     "/api",
		AllowCredentials: true,
		NoCache:          true,
	})
}

// CORSWithConfig returns a CORS middleware with custom configuration.
func CORSWithConfig(cfg CORSConfig) handler.Middleware {
	if len(cfg.AllowMethods) == 0 {
		cfg.AllowMethods = []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		}
	}

	if len(cfg.AllowHeaders) == 0 {
		cfg.AllowHeaders = []string{
			"X-Requested-With",
			"Content-Type",
			"Accept",
			"Origin",
			"Authorization",
		}
	}

	allowMethods := strings.Join(cfg.AllowMethods, ", ")
	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")
	exposeHeaders := strings.Join(cfg.ExposeHeaders, ", ")

	allowOriginsMap := make(map[string]bool, len(cfg.AllowOrigins))
	for _, origin := range cfg.AllowOrigins {
		allowOriginsMap[origin] = true
	}

	resolveOrigin := func(origin string) (string, bool) {
		switch {
		case len(cfg.AllowOrigins) == 0:
			if origin == "" {
				return "*", true
			}
			return origin, true
		case allowOriginsMap["*"]:
			return "*", true
		case allowOriginsMap[origin]:
			return origin, true
		}
		return "", false
	}

	apply := func(resp *response.Response, origin string) *response.Response {
		resp = resp.
			WithHeader("Access-Control-Allow-Origin", origin).
			WithHeader("Access-Control-Allow-Methods", allowMethods).
			WithHeader("Access-Control-Allow-Headers", allowHeaders).
			WithAddedHeader("Vary", "Origin")

		// Credentials must not be combined with a wildcard origin.
		if cfg.AllowCredentials && origin != "*" {
			resp = resp.WithHeader("Access-Control-Allow-Credentials", "true")
		}
		if exposeHeaders != "" {
			resp = resp.WithHeader("Access-Control-Expose-Headers", exposeHeaders)
		}
		if cfg.NoCache {
			resp = resp.
				WithHeader("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0").
				WithAddedHeader("Cache-Control", "post-check=0, pre-check=0").
				WithHeader("Pragma", "no-cache")
		}
		return resp
	}

	return handler.MiddlewareFunc(func(r *http.Request, next handler.HandlerFunc) (*response.Response, error) {
		if cfg.Skip != nil && cfg.Skip(r) {
			return next(r)
		}
		if cfg.PathContains != "" && !strings.Contains(r.URL.Path, cfg.PathContains) {
			return next(r)
		}

		origin, allowed := resolveOrigin(r.Header.Get("Origin"))

		// Preflight: OPTIONS plus Access-Control-Request-Method.
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if !allowed || !slices.Contains(cfg.AllowMethods, r.Header.Get("Access-Control-Request-Method")) {
				return response.Status(http.StatusForbidden), nil
			}

			resp := apply(response.NoContent(), origin).
				WithAddedHeader("Vary", "Access-Control-Request-Method").
				WithAddedHeader("Vary", "Access-Control-Request-Headers")
			if cfg.MaxAge > 0 {
				resp = resp.WithHeader("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
			}
			return resp, nil
		}

		resp, err := next(r)
		if err != nil || !allowed {
			return resp, err
		}
		if resp == nil {
			resp = response.New(http.StatusOK, nil, nil)
		}

		return apply(resp, origin), nil
	})
}
