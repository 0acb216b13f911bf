// Package middleware provides the built-in pipeline stages of a waypoint
// application. Every constructor returns a handler.Middleware, so the
// stages work in the kernel's global stack, in a router group, or on a
// single route.
//
// Constructors follow one pattern: a default constructor for the common
// case plus a WithConfig variant whose config struct carries a Skip
// predicate.
//
// # Request size
//
// ValidatePostSize rejects requests whose Content-Length exceeds a limit
// with a 413 exception. ParseSize reads limits such as "8M" from
// configuration:
//
//	limit, err := middleware.ParseSize(cfg.PostMaxSize)
//	mw := middleware.ValidatePostSize(limit)
//
// # CORS
//
// HandleCors adds CORS and no-cache headers to responses for paths
// containing "/api" and answers preflight requests with 204. Use
// CORSWithConfig for explicit origins:
//
//	mw := middleware.CORSWithConfig(middleware.CORSConfig{
//		AllowOrigins:     []string{"https://app.example.com"},
//		AllowCredentials: true,
//		MaxAge:           86400,
//	})
//
// # Request ID, logging and metrics
//
// RequestID stores a UUID in the request context (GetRequestID) and echoes
// it in the X-Request-ID header. Logging writes one slog record per request.
// NewMetrics registers Prometheus collectors labelled by route template.
//
// # Cache headers
//
// CacheHeaders is parameterized through its middleware identifier:
//
//	r.Get("/feed", feed).Middleware("cache:300,public,etag")
//
// # Client IP and throttling
//
// ClientIP stores the address resolved from proxy headers in the context.
// Throttle limits each client per route with a token bucket:
//
//	r.Post("/login", login).Middleware("throttle:5,1")
//
// # Security headers
//
// SecurityHeaders applies BalancedSecurity unless a preset is named:
//
//	r.Get("/admin", admin).Middleware("secure_headers:strict")
package middleware
