// Package container is a small dependency resolver. It builds services by
// identifier and calls route actions, filling their arguments from the
// request, the bound route parameters and registered services.
//
//	c := container.New()
//	c.Singleton("users", func(c *container.Container) (any, error) {
//		return &UserController{}, nil
//	})
//	container.Provide(c, func(*container.Container) (*sql.DB, error) { return db, nil })
//
// Call understands these argument types:
//
//   - *http.Request and context.Context from the request
//   - route.Params as bound
//   - string, integer, float and bool values taken from route parameters
//     in template order
//   - structs or struct pointers, decoded from parameters by "param" tag
//   - any other type resolved from services registered with Provide
package container
