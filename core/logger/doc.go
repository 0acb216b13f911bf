// Package logger builds slog loggers and provides nil-safe attribute
// helpers for common request and routing fields.
//
//	log := logger.New(
//		logger.WithDevelopment("waypoint"),
//		logger.WithLevel(slog.LevelDebug),
//	)
//
//	log.Info("route matched",
//		logger.Component("router"),
//		logger.Route("users/{id}"),
//		logger.Error(err), // empty attr when err is nil
//	)
package logger
