package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/waypoint/core/exception"
	"github.com/dmitrymomot/waypoint/core/handler"
	"github.com/dmitrymomot/waypoint/core/response"
	"github.com/dmitrymomot/waypoint/core/router"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "waypoint").
	Namespace string

	// Subsystem is the metrics subsystem (default: "http").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer

	// Skip defines a function to skip middleware execution for specific requests
	Skip func(r *http.Request) bool
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// WithMetricsSkip sets a predicate for requests that should not be measured.
func WithMetricsSkip(skip func(r *http.Request) bool) MetricsOption {
	return func(c *MetricsConfig) {
		c.Skip = skip
	}
}

// Metrics records request counts, latencies and in-flight requests.
// Labels use the matched route template rather than the raw path so
// cardinality stays bounded.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	skip            func(r *http.Request) bool
}

var _ handler.Middleware = (*Metrics)(nil)

// NewMetrics creates the metrics middleware and registers its collectors.
// Collectors already present in the registry are reused.
func NewMetrics(opts ...MetricsOption) *Metrics {
	cfg := MetricsConfig{
		Namespace: "waypoint",
		Subsystem: "http",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Metrics{
		requestsTotal: register(cfg.Registry, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of HTTP requests handled",
			ConstLabels: cfg.ConstLabels,
		}, []string{"method", "route", "status"})),

		requestDuration: register(cfg.Registry, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"method", "route"})),

		inFlight: register(cfg.Registry, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "requests_in_flight",
			Help:        "Number of HTTP requests currently being handled",
			ConstLabels: cfg.ConstLabels,
		})),

		skip: cfg.Skip,
	}
}

// Handle implements handler.Middleware.
func (m *Metrics) Handle(r *http.Request, next handler.HandlerFunc) (*response.Response, error) {
	if m.skip != nil && m.skip(r) {
		return next(r)
	}

	m.inFlight.Inc()
	defer m.inFlight.Dec()

	start := time.Now()
	resp, err := next(r)

	status := http.StatusOK
	switch {
	case err != nil:
		status = exception.Status(err)
	case resp != nil:
		status = resp.Status()
	}

	label := "unmatched"
	if rt, ok := router.CurrentRoute(r.Context()); ok {
		label = rt.URI()
	}

	m.requestsTotal.WithLabelValues(r.Method, label, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(r.Method, label).Observe(time.Since(start).Seconds())

	return resp, err
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
