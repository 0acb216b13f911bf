package router

import (
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/dmitrymomot/waypoint/core/handler"
	"github.com/dmitrymomot/waypoint/core/response"
	"github.com/dmitrymomot/waypoint/core/route"
)

// AliasMiddleware maps a short name to a concrete middleware identifier.
func (r *Router) AliasMiddleware(name, id string) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[name] = id
	return r
}

// MiddlewareGroup defines a named list of middleware declarations.
func (r *Router) MiddlewareGroup(name string, ids []string) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mwGroups[name] = slices.Clone(ids)
	return r
}

// PrependMiddlewareToGroup adds id to the front of a group if absent.
func (r *Router) PrependMiddlewareToGroup(group, id string) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.mwGroups[group], id) {
		r.mwGroups[group] = append([]string{id}, r.mwGroups[group]...)
	}
	return r
}

// PushMiddlewareToGroup adds id to the end of a group if absent.
func (r *Router) PushMiddlewareToGroup(group, id string) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.mwGroups[group], id) {
		r.mwGroups[group] = append(slices.Clone(r.mwGroups[group]), id)
	}
	return r
}

// SetMiddlewarePriority replaces the priority list.
func (r *Router) SetMiddlewarePriority(ids []string) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.priority = slices.Clone(ids)
	return r
}

// MiddlewarePriority returns the priority list.
func (r *Router) MiddlewarePriority() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.priority)
}

// MiddlewareAliases returns a copy of the alias map.
func (r *Router) MiddlewareAliases() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.aliases)
}

// MiddlewareGroups returns a copy of the group map.
func (r *Router) MiddlewareGroups() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]string, len(r.mwGroups))
	for k, v := range r.mwGroups {
		out[k] = slices.Clone(v)
	}
	return out
}

// RegisterMiddleware binds a middleware instance to an identifier. Bound
// instances take precedence over the resolver.
func (r *Router) RegisterMiddleware(id string, mw handler.Middleware) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.named[id] = mw
	return r
}

// ResolveMiddleware expands aliases and groups in declared and excluded,
// removes exclusions, de-duplicates and orders the result by priority.
//
// An exclusion without parameters removes every declaration with the same
// name; "name:args" removes only that exact declaration. With
// WithLiteralExclusions the exclusions are merged into the result instead.
func (r *Router) ResolveMiddleware(declared, excluded []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	expanded := r.flatten(declared)
	without := r.flatten(excluded)

	var result []string
	if r.literalExclusions {
		result = route.Unique(append(expanded, without...))
	} else {
		result = route.Unique(subtract(expanded, without))
	}
	return SortMiddleware(r.priority, result)
}

// GatherRouteMiddleware returns the resolved middleware for rt.
func (r *Router) GatherRouteMiddleware(rt *route.Route) ([]string, error) {
	if r.shouldSkipMiddleware() {
		return []string{}, nil
	}
	declared, err := rt.GatherMiddleware()
	if err != nil {
		return nil, err
	}
	return r.ResolveMiddleware(declared, rt.ExcludedMiddleware()), nil
}

// MakeMiddleware turns resolved identifiers into pipeline stages.
func (r *Router) MakeMiddleware(ids []string) ([]handler.Middleware, error) {
	stages := make([]handler.Middleware, 0, len(ids))
	for _, id := range ids {
		mw, err := r.makeMiddleware(id)
		if err != nil {
			return nil, err
		}
		stages = append(stages, mw)
	}
	return stages, nil
}

func (r *Router) makeMiddleware(id string) (handler.Middleware, error) {
	name, args := ParseMiddleware(id)

	r.mu.RLock()
	inst, ok := r.named[name]
	r.mu.RUnlock()

	var v any = inst
	if !ok {
		made, err := r.resolver.Make(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUnknownMiddleware, name, err)
		}
		v = made
	}

	switch mw := v.(type) {
	case handler.ParameterizedMiddleware:
		return handler.WithArgs(mw, args...), nil
	case handler.Middleware:
		return mw, nil
	case func(*http.Request, handler.HandlerFunc) (*response.Response, error):
		return handler.MiddlewareFunc(mw), nil
	}
	return nil, fmt.Errorf("%w: %s is %T", ErrInvalidMiddleware, name, v)
}

// ParseMiddleware splits "name:arg1,arg2" into its name and arguments.
func ParseMiddleware(id string) (string, []string) {
	name, params, ok := strings.Cut(id, ":")
	if !ok || params == "" {
		return name, nil
	}
	return name, strings.Split(params, ",")
}

// flatten expands every declaration. Caller must hold r.mu.
func (r *Router) flatten(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.expand(id, nil)...)
	}
	return out
}

// expand resolves one declaration. Groups already being expanded are
// skipped so self-referencing groups terminate.
func (r *Router) expand(id string, visiting []string) []string {
	if members, ok := r.mwGroups[id]; ok {
		if slices.Contains(visiting, id) {
			return nil
		}
		visiting = append(visiting, id)

		var out []string
		for _, m := range members {
			out = append(out, r.expand(m, visiting)...)
		}
		return out
	}

	name, params, hasParams := strings.Cut(id, ":")
	if target, ok := r.aliases[name]; ok {
		name = target
	}
	if hasParams && params != "" {
		return []string{name + ":" + params}
	}
	return []string{name}
}

func subtract(ids, excluded []string) []string {
	if len(excluded) == 0 {
		return ids
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !isExcluded(id, excluded) {
			out = append(out, id)
		}
	}
	return out
}

func isExcluded(id string, excluded []string) bool {
	name, _, _ := strings.Cut(id, ":")
	for _, ex := range excluded {
		if ex == id {
			return true
		}
		if !strings.Contains(ex, ":") && ex == name {
			return true
		}
	}
	return false
}
