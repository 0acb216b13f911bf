// Package kernel is the top-level request orchestrator.
//
// An Application owns the service container, configuration, event bus and
// router. A Kernel bootstraps the application once, sends each request
// through the global middleware stack, dispatches it to the router and
// converts every error or panic into a response at a single catch point.
//
//	app, err := kernel.NewApplication(kernel.WithBasePath("."))
//	if err != nil {
//		return err
//	}
//	app.Router().Get("/users/{id}", showUser).Middleware("api")
//
//	k := kernel.New(app)
//	k.WithMiddleware(func(m *kernel.Middleware) {
//		m.Use("request_id", "log").Priority(kernel.RequestIDMiddleware, kernel.LogMiddleware)
//	})
//	http.ListenAndServe(":8080", k)
//
// Bootstrapping runs LoadEnvironmentVariables, LoadConfiguration,
// RegisterProviders and BootProviders in that order, exactly once.
package kernel
