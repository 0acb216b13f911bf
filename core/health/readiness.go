package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/waypoint/core/exception"
	"github.com/dmitrymomot/waypoint/core/logger"
	"github.com/dmitrymomot/waypoint/core/response"
	"github.com/dmitrymomot/waypoint/core/route"
)

// Check verifies one dependency.
type Check func(ctx context.Context) error

// Readiness verifies all service dependencies are functioning.
func Readiness(log *slog.Logger, checks ...Check) route.ActionFunc {
	if log == nil {
		log = logger.Nop()
	}
	return func(r *http.Request, _ route.Params) (any, error) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				log.ErrorContext(r.Context(), "readiness check failed",
					logger.Component("health"),
					logger.Error(err),
				)
				return nil, exception.ErrServiceUnavailable.WithError(err)
			}
		}
		return response.String("READY"), nil
	}
}
