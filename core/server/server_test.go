package server_test

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/waypoint/core/kernel"
	"github.com/dmitrymomot/waypoint/core/logger"
	"github.com/dmitrymomot/waypoint/core/route"
	"github.com/dmitrymomot/waypoint/core/server"
)

func newKernel(t *testing.T) *kernel.Kernel {
	t.Helper()

	app, err := kernel.NewApplication(
		kernel.WithConfig(kernel.Config{Name: "test", Env: "testing", Timezone: "UTC", PostMaxSize: "1M"}),
		kernel.WithLogger(logger.Nop()),
	)
	require.NoError(t, err)

	app.Router().Get("/ping", func(*http.Request, route.Params) (any, error) {
		return "pong", nil
	})
	return kernel.New(app, kernel.WithMetricsRegisterer(prometheus.NewRegistry()))
}

func waitRunning(t *testing.T, srv *server.Server) string {
	t.Helper()
	require.Eventually(t, srv.Running, 2*time.Second, 10*time.Millisecond)
	return "http://" + srv.Addr()
}

func TestServerServesKernel(t *testing.T) {
	t.Parallel()

	srv := server.New("127.0.0.1:0", server.WithShutdownTimeout(time.Second))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, newKernel(t))() }()

	base := waitRunning(t, srv)

	resp, err := http.Get(base + "/ping")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))

	resp, err = http.Get(base + "/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.False(t, srv.Running())
}

func TestServerAlreadyRunning(t *testing.T) {
	t.Parallel()

	srv := server.New("127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() { _ = srv.Start(ctx, http.NotFoundHandler()) }()
	waitRunning(t, srv)

	err := srv.Start(ctx, http.NotFoundHandler())
	assert.ErrorIs(t, err, server.ErrServerAlreadyRunning)

	require.NoError(t, srv.Stop())
	assert.False(t, srv.Running())
	assert.NoError(t, srv.Stop(), "stopping a stopped server is a no-op")
}

func TestServerListenFailure(t *testing.T) {
	t.Parallel()

	first := server.New("127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() { _ = first.Start(ctx, http.NotFoundHandler()) }()
	waitRunning(t, first)
	t.Cleanup(func() { _ = first.Stop() })

	second := server.New(first.Addr())
	err := second.Run(ctx, http.NotFoundHandler())()
	assert.ErrorIs(t, err, server.ErrListen)
	assert.False(t, second.Running())
}
