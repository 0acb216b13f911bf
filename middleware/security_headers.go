package middleware

import (
	"maps"
	"net/http"
	"strings"

	"github.com/dmitrymomot/waypoint/core/handler"
	"github.com/dmitrymomot/waypoint/core/response"
)

// SecurityHeadersConfig lists the security headers to set. Empty fields are skipped.
type SecurityHeadersConfig struct {
	ContentTypeOptions        string
	FrameOptions              string
	StrictTransportSecurity   string
	ContentSecurityPolicy     string
	ReferrerPolicy            string
	PermissionsPolicy         string
	CrossOriginOpenerPolicy   string
	CrossOriginResourcePolicy string
	CustomHeaders             map[string]string

	// IsDevelopment drops Strict-Transport-Security.
	IsDevelopment bool
}

// Predefined policies, selectable as "secure_headers:<name>".
var (
	StrictSecurity = SecurityHeadersConfig{
		ContentTypeOptions:        "nosniff",
		FrameOptions:              "DENY",
		StrictTransportSecurity:   "max-age=63072000; includeSubDomains; preload",
		ContentSecurityPolicy:     "default-src 'none'; script-src 'self'; style-src 'self'; img-src 'self'; font-src 'self'; connect-src 'self'; frame-ancestors 'none'; base-uri 'self'; form-action 'self'",
		ReferrerPolicy:            "no-referrer",
		PermissionsPolicy:         "accelerometer=(), camera=(), geolocation=(), gyroscope=(), magnetometer=(), microphone=(), payment=(), usb=()",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-origin",
	}

	BalancedSecurity = SecurityHeadersConfig{
		ContentTypeOptions:        "nosniff",
		FrameOptions:              "SAMEORIGIN",
		StrictTransportSecurity:   "max-age=31536000; includeSubDomains",
		ContentSecurityPolicy:     "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; font-src 'self' data:",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		PermissionsPolicy:         "geolocation=(), microphone=(), camera=()",
		CrossOriginOpenerPolicy:   "same-origin-allow-popups",
		CrossOriginResourcePolicy: "cross-origin",
	}

	RelaxedSecurity = SecurityHeadersConfig{
		ContentTypeOptions: "nosniff",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}
)

// SecurityHeaders sets security headers on every response. Without
// arguments it applies Default; "strict", "balanced" or "relaxed" select a
// predefined policy.
type SecurityHeaders struct {
	Default       SecurityHeadersConfig
	IsDevelopment bool
}

// NewSecurityHeaders returns the middleware with BalancedSecurity as default.
func NewSecurityHeaders(development bool) SecurityHeaders {
	return SecurityHeaders{Default: BalancedSecurity, IsDevelopment: development}
}

func (s SecurityHeaders) Handle(r *http.Request, next handler.HandlerFunc) (*response.Response, error) {
	return s.HandleWith(r, next)
}

// HandleWith implements handler.ParameterizedMiddleware. Headers are applied
// to successful responses only; error responses are rendered later.
func (s SecurityHeaders) HandleWith(r *http.Request, next handler.HandlerFunc, args ...string) (*response.Response, error) {
	resp, err := next(r)
	if err != nil || resp == nil {
		return resp, err
	}

	cfg := s.Default
	if len(args) > 0 {
		switch strings.ToLower(strings.TrimSpace(args[0])) {
		case "strict":
			cfg = StrictSecurity
		case "balanced":
			cfg = BalancedSecurity
		case "relaxed":
			cfg = RelaxedSecurity
		}
	}
	cfg.IsDevelopment = cfg.IsDevelopment || s.IsDevelopment

	for k, v := range securityHeaders(cfg) {
		resp = resp.WithHeader(k, v)
	}
	return resp, nil
}

func securityHeaders(cfg SecurityHeadersConfig) map[string]string {
	if cfg.IsDevelopment {
		cfg.StrictTransportSecurity = ""
	}

	headers := make(map[string]string)
	set := func(key, value string) {
		if value != "" {
			headers[key] = value
		}
	}
	set("X-Content-Type-Options", cfg.ContentTypeOptions)
	set("X-Frame-Options", cfg.FrameOptions)
	set("Strict-Transport-Security", cfg.StrictTransportSecurity)
	set("Content-Security-Policy", cfg.ContentSecurityPolicy)
	set("Referrer-Policy", cfg.ReferrerPolicy)
	set("Permissions-Policy", cfg.PermissionsPolicy)
	set("Cross-Origin-Opener-Policy", cfg.CrossOriginOpenerPolicy)
	set("Cross-Origin-Resource-Policy", cfg.CrossOriginResourcePolicy)
	maps.Copy(headers, cfg.CustomHeaders)
	return headers
}
