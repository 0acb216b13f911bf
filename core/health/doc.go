// Package health provides route actions for liveness and readiness probes.
//
//	r.Get("/health/live", health.Liveness).As("health.live")
//	r.Get("/health/ready", health.Readiness(log, db.Ping)).As("health.ready")
//
// Liveness always answers "ALIVE". Readiness runs every check in order and
// answers "READY", or fails with 503 Service Unavailable on the first error.
package health
