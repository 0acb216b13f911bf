package logger

import (
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Helpers return an empty Attr for nil or empty input, which slog drops.

// Group creates a group of attributes under a single key.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error creates an "error" attribute.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors groups non-nil errors under "errors", keyed by position.
func Errors(errs ...error) slog.Attr {
	var as []slog.Attr
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Duration creates a "duration" attribute.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// ID creates an identifier attribute with a custom key.
func ID(key string, value any) slog.Attr {
	if value == nil || value == "" {
		return slog.Attr{}
	}
	return slog.Any(key, value)
}

// RequestID creates a "request_id" attribute.
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// Method creates a "method" attribute.
func Method(method string) slog.Attr {
	return slog.String("method", method)
}

// Path creates a "path" attribute.
func Path(path string) slog.Attr {
	return slog.String("path", path)
}

// StatusCode creates a "status_code" attribute.
func StatusCode(code int) slog.Attr {
	return slog.Int("status_code", code)
}

// ClientIP creates a "client_ip" attribute.
func ClientIP(ip string) slog.Attr {
	if ip == "" {
		return slog.Attr{}
	}
	return slog.String("client_ip", ip)
}

// UserAgent creates a "user_agent" attribute.
func UserAgent(ua string) slog.Attr {
	if ua == "" {
		return slog.Attr{}
	}
	return slog.String("user_agent", ua)
}

// BytesOut creates a "bytes_out" attribute.
func BytesOut(n int) slog.Attr {
	return slog.Int("bytes_out", n)
}

// Component creates a "component" attribute.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event creates an "event" attribute.
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Type creates a "type" attribute.
func Type(t string) slog.Attr {
	return slog.String("type", t)
}

// Route creates a "route" attribute holding a URI template.
func Route(uri string) slog.Attr {
	if uri == "" {
		return slog.Attr{}
	}
	return slog.String("route", uri)
}

// Middleware creates a "middleware" attribute listing identifiers.
func Middleware(ids []string) slog.Attr {
	if len(ids) == 0 {
		return slog.Attr{}
	}
	return slog.String("middleware", strings.Join(ids, ","))
}

// Count creates a counter attribute.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Caller returns the file:line of the function calling Caller.
func Caller() slog.Attr {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		return slog.Attr{}
	}
	return slog.String("caller", file+":"+strconv.Itoa(line))
}
