// Package router owns the route table and dispatches requests to the first
// matching route for the request method, in registration order.
//
// # Registration
//
//	r := router.New(router.WithResolver(c))
//	r.Get("/", func(*http.Request) any { return "home" })
//
//	r.Group(router.GroupAttributes{Prefix: "/api", Middleware: []string{"api"}, Name: "api."}, func(r *router.Router) {
//		r.Get("/users/{id}", route.Controller("users", "show")).As("users.show")
//	})
//
// More specific templates must be registered before general ones; the
// first match wins.
//
// # Middleware
//
// Route middleware is declared by identifier. Identifiers are expanded
// through aliases and groups, exclusions are removed, duplicates dropped and
// the result ordered by the priority list:
//
//	r.AliasMiddleware("auth", "authenticate")
//	r.MiddlewareGroup("web", []string{"request_id", "log"})
//	r.SetMiddlewarePriority([]string{"request_id", "authenticate"})
//
// Identifiers become pipeline stages through RegisterMiddleware or the
// resolver's Make. Arguments after ':' are passed to stages implementing
// handler.ParameterizedMiddleware.
//
// # Dispatch
//
// Dispatch returns a *NotFoundError (errors.Is ErrRouteNotFound) when no
// route matches. Action results are normalized with response.Prepare. The
// matched route is available to middleware and actions through
// CurrentRoute and Param.
package router
