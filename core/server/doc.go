// Package server runs an http.Handler, typically the waypoint kernel, with
// production timeouts and graceful shutdown.
//
// # Basic Usage
//
//	app, _ := kernel.NewApplication()
//	k := kernel.New(app)
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	if err := server.Run(ctx, ":8080", k); err != nil {
//		log.Fatal(err)
//	}
//
// # Configuration
//
// Config is parsed from SERVER_* environment variables:
//
//	cfg, err := server.ConfigFromEnv()
//	if err != nil {
//		return err
//	}
//	srv, err := server.NewFromConfig(cfg, server.WithLogger(app.Logger()))
//	if err != nil {
//		return err
//	}
//	return srv.Run(ctx, k)()
//
// Setting both SERVER_TLS_CERT_FILE and SERVER_TLS_KEY_FILE serves HTTPS
// with TLS 1.2 as the minimum version.
//
// # Lifecycle
//
// Start blocks until the context is canceled or serving fails. Stop shuts the
// server down, waiting up to the shutdown timeout for in-flight requests.
// Run combines both and is suitable for errgroup:
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(srv.Run(ctx, k))
//
// # Server Defaults
//
//   - ReadTimeout: 15 seconds
//   - WriteTimeout: 15 seconds
//   - IdleTimeout: 60 seconds
//   - MaxHeaderBytes: 1MB
//   - Graceful shutdown timeout: 30 seconds
//   - Logger: no-op
package server
