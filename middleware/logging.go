package middleware

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/dmitrymomot/waypoint/core/exception"
	"github.com/dmitrymomot/waypoint/core/handler"
	"github.com/dmitrymomot/waypoint/core/logger"
	"github.com/dmitrymomot/waypoint/core/response"
)

// LoggingConfig configures the request/response logging middleware.
type LoggingConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(r *http.Request) bool

	// Logger is the slog logger to use (default: slog.Default())
	Logger *slog.Logger

	// LogLevel for successful requests (default: slog.LevelInfo)
	LogLevel slog.Level

	// LogHeaders enables logging of request/response headers (default: false for security)
	LogHeaders bool

	// SensitiveHeaders is a list of header names to redact (default: common auth headers)
	SensitiveHeaders []string

	// SlowRequestThreshold logs slow requests at warning level (default: 5s)
	SlowRequestThreshold time.Duration

	// Component name for structured logging
	Component string
}

// Logging creates a request logging middleware writing to log.
// A nil log falls back to slog.Default().
func Logging(log *slog.Logger) handler.Middleware {
	return LoggingWithConfig(LoggingConfig{Logger: log})
}

// LoggingWithConfig creates a request logging middleware with custom configuration.
// One record is written per request after the inner stages return; errors
// are logged and passed on unchanged.
func LoggingWithConfig(cfg LoggingConfig) handler.Middleware {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.SensitiveHeaders == nil {
		cfg.SensitiveHeaders = []string{
			"Authorization",
			"Cookie",
			"Set-Cookie",
			"X-Api-Key",
			"X-Auth-Token",
			"X-Csrf-Token",
		}
	}

	if cfg.SlowRequestThreshold <= 0 {
		cfg.SlowRequestThreshold = 5 * time.Second
	}

	if cfg.Component == "" {
		cfg.Component = "http"
	}

	return handler.MiddlewareFunc(func(r *http.Request, next handler.HandlerFunc) (*response.Response, error) {
		if cfg.Skip != nil && cfg.Skip(r) {
			return next(r)
		}

		start := time.Now()
		resp, err := next(r)
		duration := time.Since(start)

		status := http.StatusOK
		size := 0
		switch {
		case err != nil:
			status = exception.Status(err)
		case resp != nil:
			status = resp.Status()
			size = len(resp.Body())
		}

		attrs := []slog.Attr{
			logger.Component(cfg.Component),
			logger.Event("request"),
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
			logger.ClientIP(RequestClientIP(r)),
			logger.StatusCode(status),
			logger.BytesOut(size),
			logger.Duration(duration),
		}

		// RequestID may run inside this stage, so fall back to the response header.
		if id, ok := GetRequestID(r.Context()); ok {
			attrs = append(attrs, logger.RequestID(id))
		} else if resp != nil {
			attrs = append(attrs, logger.RequestID(resp.HeaderValue(RequestIDHeader)))
		}

		if r.URL.RawQuery != "" {
			attrs = append(attrs, slog.String("query", r.URL.RawQuery))
		}

		if cfg.LogHeaders {
			attrs = append(attrs, headerAttr("request_headers", r.Header, cfg.SensitiveHeaders))
			if resp != nil {
				attrs = append(attrs, headerAttr("response_headers", resp.Header(), cfg.SensitiveHeaders))
			}
		}

		level := cfg.LogLevel
		switch {
		case status >= 500:
			level = slog.LevelError
			attrs = append(attrs, logger.Error(err))
		case status >= 400:
			level = slog.LevelWarn
			attrs = append(attrs, logger.Error(err))
		case duration > cfg.SlowRequestThreshold:
			level = slog.LevelWarn
			attrs = append(attrs, slog.Bool("slow_request", true))
		}

		cfg.Logger.LogAttrs(r.Context(), level, "HTTP request completed", attrs...)

		return resp, err
	})
}

func headerAttr(key string, h http.Header, sensitive []string) slog.Attr {
	headers := make(map[string]any, len(h))
	for name, values := range h {
		switch {
		case slices.Contains(sensitive, name):
			headers[name] = "[REDACTED]"
		case len(values) == 1:
			headers[name] = values[0]
		default:
			headers[name] = values
		}
	}
	return slog.Any(key, headers)
}
