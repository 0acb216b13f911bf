package health

import (
	"net/http"

	"github.com/dmitrymomot/waypoint/core/response"
	"github.com/dmitrymomot/waypoint/core/route"
)

// Liveness indicates the process is running. No dependency checks.
func Liveness(*http.Request, route.Params) (any, error) {
	return response.String("ALIVE"), nil
}

// NoContent returns 204 without body, for high-frequency checks.
func NoContent(*http.Request, route.Params) (any, error) {
	return response.NoContent(), nil
}
