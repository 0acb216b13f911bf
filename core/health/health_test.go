package health_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/waypoint/core/exception"
	"github.com/dmitrymomot/waypoint/core/health"
	"github.com/dmitrymomot/waypoint/core/response"
	"github.com/dmitrymomot/waypoint/core/router"
)

func TestLivenessThroughRouter(t *testing.T) {
	t.Parallel()

	r := router.New()
	r.Get("/health/live", health.Liveness)
	r.Get("/ping", health.NoContent)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ALIVE", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestReadiness(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)

	t.Run("all checks pass", func(t *testing.T) {
		t.Parallel()

		calls := 0
		ok := func(context.Context) error { calls++; return nil }

		out, err := health.Readiness(nil, ok, ok)(req, nil)
		require.NoError(t, err)
		assert.Equal(t, "READY", out.(*response.Response).String())
		assert.Equal(t, 2, calls)
	})

	t.Run("first failure stops", func(t *testing.T) {
		t.Parallel()

		down := errors.New("database down")
		called := false
		out, err := health.Readiness(nil,
			func(context.Context) error { return down },
			func(context.Context) error { called = true; return nil },
		)(req, nil)

		assert.Nil(t, out)
		assert.ErrorIs(t, err, exception.ErrServiceUnavailable)
		assert.ErrorIs(t, err, down)
		assert.False(t, called)
	})
}
