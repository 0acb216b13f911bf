package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/waypoint/core/container"
	"github.com/dmitrymomot/waypoint/core/logger"
	"github.com/dmitrymomot/waypoint/core/server"
	"github.com/dmitrymomot/waypoint/pkg/ratelimiter"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		addr        string
		metricsPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server. Server settings come from SERVER_* environment
variables; --addr overrides SERVER_ADDR.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, flags, addr, metricsPath)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from SERVER_ADDR)")
	cmd.Flags().StringVar(&metricsPath, "metrics-path", "/metrics", "Prometheus endpoint path, empty to disable")

	return cmd
}

func runServer(ctx context.Context, flags *globalFlags, addr, metricsPath string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	k, err := newKernel(flags, reg)
	if err != nil {
		return err
	}
	// Bootstrap eagerly so configuration errors stop the process before it listens.
	if err := k.Bootstrap(); err != nil {
		return err
	}
	app := k.Application()

	store, err := container.Resolve[*ratelimiter.MemoryStore](app.Container(), container.TypeKey[*ratelimiter.MemoryStore]())
	if err != nil {
		return err
	}
	go func() {
		if err := store.Run(ctx)(); err != nil {
			app.Logger().ErrorContext(ctx, "rate limiter cleanup failed", logger.Component("cli"), logger.Error(err))
		}
	}()

	cfg, err := server.ConfigFromEnv()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Addr = addr
	}

	srv, err := server.NewFromConfig(cfg, server.WithLogger(app.Logger()))
	if err != nil {
		return err
	}

	var handler http.Handler = k
	if metricsPath != "" {
		mux := http.NewServeMux()
		mux.Handle(metricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		mux.Handle("/", k)
		handler = mux
	}

	app.Logger().InfoContext(ctx, "application booted",
		logger.Component("cli"),
		logger.Count("routes", len(k.Router().Routes())),
	)

	return srv.Run(ctx, handler)()
}
