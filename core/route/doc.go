// Package route implements a single route: a method set, a URI template
// compiled into an anchored matcher, an action and its middleware
// declarations.
//
// # Templates
//
// Placeholders take the forms {name}, {name:expr} and {name?}. The default
// expression is [^/]+; a custom expression replaces it verbatim. An optional
// placeholder preceded by a slash makes the slash optional too.
//
//	p := route.MustCompile("/files/{path:.+}")
//	params, ok := p.Match("/files/a/b.txt") // path = "a/b.txt"
//
// # Actions
//
// An Action is either a Callable wrapping a function or a ControllerRef
// naming a controller and method. Both are invoked through a Resolver, which
// builds controllers and supplies bound parameters to the call.
//
//	rt, _ := route.New([]string{"GET"}, "/users/{id}", route.Func(
//		func(r *http.Request, p route.Params) (any, error) {
//			return "user " + p.Get("id"), nil
//		},
//	))
//
// Parameters are available only after a successful Matches or Match call;
// reading them earlier fails with ErrNotBound.
package route
