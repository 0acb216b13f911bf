package router

import (
	"slices"
	"strings"
)

// GroupAttributes are shared by every route registered inside a group.
type GroupAttributes struct {
	// Prefix is prepended to route URIs.
	Prefix string
	// Middleware is prepended to route middleware.
	Middleware []string
	// WithoutMiddleware is excluded from every route.
	WithoutMiddleware []string
	// Namespace is prepended to controller identifiers as "namespace.id".
	Namespace string
	// Name is prepended to route names.
	Name string
}

func mergeGroup(outer, inner GroupAttributes) GroupAttributes {
	return GroupAttributes{
		Prefix:            joinPrefix(outer.Prefix, inner.Prefix),
		Middleware:        append(slices.Clone(outer.Middleware), inner.Middleware...),
		WithoutMiddleware: append(slices.Clone(outer.WithoutMiddleware), inner.WithoutMiddleware...),
		Namespace:         joinNamespace(outer.Namespace, inner.Namespace),
		Name:              outer.Name + inner.Name,
	}
}

func joinPrefix(prefix, uri string) string {
	joined := strings.Trim(strings.Trim(prefix, "/")+"/"+strings.Trim(uri, "/"), "/")
	if joined == "" {
		return "/"
	}
	return joined
}

func joinNamespace(outer, inner string) string {
	switch {
	case outer == "":
		return inner
	case inner == "":
		return outer
	}
	return outer + "." + inner
}

// Group registers routes sharing attrs. Nested groups merge with their
// parents; the group is popped even if fn panics.
func (r *Router) Group(attrs GroupAttributes, fn func(r *Router)) {
	r.mu.Lock()
	if n := len(r.groups); n > 0 {
		attrs = mergeGroup(r.groups[n-1], attrs)
	} else {
		attrs = mergeGroup(GroupAttributes{}, attrs)
	}
	r.groups = append(r.groups, attrs)
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.groups = r.groups[:len(r.groups)-1]
		r.mu.Unlock()
	}()

	fn(r)
}

// Prefix is shorthand for a group with only a URI prefix.
func (r *Router) Prefix(prefix string, fn func(r *Router)) {
	r.Group(GroupAttributes{Prefix: prefix}, fn)
}

// HasGroupStack reports whether registration is currently inside a group.
func (r *Router) HasGroupStack() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups) > 0
}

func (r *Router) currentGroup() GroupAttributes {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n := len(r.groups); n > 0 {
		return r.groups[n-1]
	}
	return GroupAttributes{}
}
