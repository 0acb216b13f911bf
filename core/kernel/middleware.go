package kernel

import (
	"maps"
	"slices"

	"github.com/dmitrymomot/waypoint/core/route"
)

// Identifiers of the middleware bound by the kernel.
const (
	ValidatePostSizeMiddleware = "waypoint.validate_post_size"
	HandleCorsMiddleware       = "waypoint.handle_cors"
	RequestIDMiddleware        = "waypoint.request_id"
	LogMiddleware              = "waypoint.log"
	MetricsMiddleware          = "waypoint.metrics"
	CacheMiddleware            = "waypoint.cache"
	ClientIPMiddleware         = "waypoint.client_ip"
	ThrottleMiddleware         = "waypoint.throttle"
	SecureHeadersMiddleware    = "waypoint.secure_headers"
)

// builtinGlobal always runs first, in this order.
var builtinGlobal = []string{
	ValidatePostSizeMiddleware,
	HandleCorsMiddleware,
}

// Middleware is the application's middleware configuration: the global
// stack, route groups, aliases and priority.
type Middleware struct {
	global   []string
	groups   map[string][]string
	aliases  map[string]string
	priority []string
}

// NewMiddleware returns an empty configuration.
func NewMiddleware() *Middleware {
	return &Middleware{
		groups:  make(map[string][]string),
		aliases: make(map[string]string),
	}
}

// Use sets the user global middleware. Built-in global middleware is
// always prepended.
func (m *Middleware) Use(ids ...string) *Middleware {
	m.global = slices.Clone(ids)
	return m
}

// Append adds ids to the end of the global stack unless already present.
func (m *Middleware) Append(ids ...string) *Middleware {
	for _, id := range ids {
		if !slices.Contains(m.global, id) {
			m.global = append(m.global, id)
		}
	}
	return m
}

// Group defines or replaces a middleware group.
func (m *Middleware) Group(name string, ids ...string) *Middleware {
	m.groups[name] = slices.Clone(ids)
	return m
}

// Alias registers additional aliases, overriding defaults with the same name.
func (m *Middleware) Alias(aliases map[string]string) *Middleware {
	maps.Copy(m.aliases, aliases)
	return m
}

// Priority sets the middleware priority list.
func (m *Middleware) Priority(ids ...string) *Middleware {
	m.priority = slices.Clone(ids)
	return m
}

// GlobalMiddleware returns the built-in global middleware followed by the
// user stack, without empty entries or duplicates.
func (m *Middleware) GlobalMiddleware() []string {
	ids := slices.DeleteFunc(append(slices.Clone(builtinGlobal), m.global...), func(id string) bool {
		return id == ""
	})
	return route.Unique(ids)
}

// MiddlewareGroups returns the default "web" and "api" groups merged with
// the user groups.
func (m *Middleware) MiddlewareGroups() map[string][]string {
	groups := map[string][]string{
		"web": {},
		"api": {},
	}
	for name, ids := range m.groups {
		groups[name] = slices.Clone(ids)
	}
	return groups
}

// MiddlewareAliases returns the default aliases merged with the user aliases.
func (m *Middleware) MiddlewareAliases() map[string]string {
	aliases := map[string]string{
		"request_id":     RequestIDMiddleware,
		"log":            LogMiddleware,
		"metrics":        MetricsMiddleware,
		"cache":          CacheMiddleware,
		"client_ip":      ClientIPMiddleware,
		"throttle":       ThrottleMiddleware,
		"secure_headers": SecureHeadersMiddleware,
	}
	maps.Copy(aliases, m.aliases)
	return aliases
}

// MiddlewarePriority returns the priority list, defaulting to request ID,
// client IP, logging, metrics and throttling first.
func (m *Middleware) MiddlewarePriority() []string {
	if m.priority != nil {
		return slices.Clone(m.priority)
	}
	return []string{RequestIDMiddleware, ClientIPMiddleware, LogMiddleware, MetricsMiddleware, ThrottleMiddleware}
}
