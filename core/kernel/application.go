package kernel

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/waypoint/core/config"
	"github.com/dmitrymomot/waypoint/core/container"
	"github.com/dmitrymomot/waypoint/core/event"
	"github.com/dmitrymomot/waypoint/core/exception"
	"github.com/dmitrymomot/waypoint/core/logger"
	"github.com/dmitrymomot/waypoint/core/router"
)

// Provider registers services into the application container.
type Provider interface {
	Register(app *Application) error
}

// BootableProvider is a Provider with a Boot step that runs after every
// provider has been registered.
type BootableProvider interface {
	Provider
	Boot(app *Application) error
}

// Application holds the process-wide collaborators of a waypoint app.
type Application struct {
	container *container.Container
	events    *event.Bus
	logger    *slog.Logger
	level     *slog.LevelVar

	routerOnce sync.Once
	router     *router.Router
	routerOpts []router.Option

	basePath string
	envFile  string

	mu          sync.RWMutex
	config      Config
	configSet   bool
	repo        *config.Repository
	location    *time.Location
	postMaxSize int64
	providers   []Provider
	booted      bool
	skip        *bool

	bootstrapOnce sync.Once
	bootstrapErr  error
	bootstrapped  atomic.Bool
}

// AppOption configures an Application.
type AppOption func(*Application) error

// NewApplication creates an application. Configuration is read during
// bootstrap, not here.
func NewApplication(opts ...AppOption) (*Application, error) {
	app := &Application{
		container: container.New(),
		level:     new(slog.LevelVar),
		basePath:  ".",
		envFile:   ".env",
		repo:      config.NewRepository(nil),
		location:  time.UTC,
	}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.logger == nil {
		app.logger = logger.New(logger.WithLevelVar(app.level))
	}
	if app.events == nil {
		app.events = event.NewBus(event.WithLogger(app.logger))
	}

	app.container.Instance(container.TypeKey[*Application](), app)
	app.container.Instance(container.TypeKey[*container.Container](), app.container)
	app.container.Instance(container.TypeKey[*slog.Logger](), app.logger)
	app.container.Instance(container.TypeKey[*event.Bus](), app.events)
	container.Provide(app.container, func(*container.Container) (*config.Repository, error) {
		return app.Repository(), nil
	})

	return app, nil
}

// WithBasePath sets the directory holding the .env file and config directory.
func WithBasePath(path string) AppOption {
	return func(app *Application) error {
		if path != "" {
			app.basePath = path
		}
		return nil
	}
}

// WithEnvFile sets the environment file name relative to the base path.
func WithEnvFile(name string) AppOption {
	return func(app *Application) error {
		if name != "" {
			app.envFile = name
		}
		return nil
	}
}

// WithConfig uses cfg instead of reading the environment during bootstrap.
func WithConfig(cfg Config) AppOption {
	return func(app *Application) error {
		app.config = cfg
		app.configSet = true
		return nil
	}
}

func WithLogger(logger *slog.Logger) AppOption {
	return func(app *Application) error {
		if logger == nil {
			return ErrNilLogger
		}
		app.logger = logger
		return nil
	}
}

// WithEventBus sets the bus used for framework events.
func WithEventBus(bus *event.Bus) AppOption {
	return func(app *Application) error {
		if bus != nil {
			app.events = bus
		}
		return nil
	}
}

// WithProviders registers providers in order.
func WithProviders(providers ...Provider) AppOption {
	return func(app *Application) error {
		for _, p := range providers {
			if p == nil {
				return ErrNilProvider
			}
		}
		app.providers = append(app.providers, providers...)
		return nil
	}
}

// WithRouterOptions passes extra options to the application router.
func WithRouterOptions(opts ...router.Option) AppOption {
	return func(app *Application) error {
		app.routerOpts = append(app.routerOpts, opts...)
		return nil
	}
}

// Container returns the service container.
func (a *Application) Container() *container.Container { return a.container }

// Events returns the framework event bus.
func (a *Application) Events() *event.Bus { return a.events }

// Logger returns the application logger.
func (a *Application) Logger() *slog.Logger { return a.logger }

// Router returns the application router, creating it on first use. It
// resolves controllers and middleware through the container and publishes
// events on the application bus.
func (a *Application) Router() *router.Router {
	a.routerOnce.Do(func() {
		opts := []router.Option{
			router.WithResolver(a.container),
			router.WithEvents(a.events),
			router.WithLogger(a.logger),
			router.WithSkipMiddleware(a.ShouldSkipMiddleware),
		}
		a.router = router.New(append(opts, a.routerOpts...)...)
		a.container.Instance(container.TypeKey[*router.Router](), a.router)
	})
	return a.router
}

// Config returns the loaded configuration.
func (a *Application) Config() Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config
}

// Repository returns the file-based configuration repository.
func (a *Application) Repository() *config.Repository {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.repo
}

// Environment returns APP_ENV.
func (a *Application) Environment() string {
	return a.Config().Env
}

// IsEnvironment reports whether the environment is one of envs.
func (a *Application) IsEnvironment(envs ...string) bool {
	return slices.Contains(envs, a.Environment())
}

// Debug reports whether APP_DEBUG is enabled.
func (a *Application) Debug() bool {
	return a.Config().Debug
}

// BasePath returns the application base directory.
func (a *Application) BasePath() string { return a.basePath }

// EnvironmentFilePath returns the path of the .env file.
func (a *Application) EnvironmentFilePath() string {
	return filepath.Join(a.basePath, a.envFile)
}

// ConfigPath returns the directory holding YAML configuration files.
func (a *Application) ConfigPath() string {
	path := a.Config().ConfigPath
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(a.basePath, path)
}

// Location returns the configured timezone.
func (a *Application) Location() *time.Location {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.location
}

// Now returns the current time in the configured timezone.
func (a *Application) Now() time.Time {
	return time.Now().In(a.Location())
}

// PostMaxSize returns the parsed POST_MAX_SIZE in bytes; 0 disables the check.
func (a *Application) PostMaxSize() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.postMaxSize
}

// Register adds a provider. Once the application has booted the provider
// is registered and booted immediately.
func (a *Application) Register(p Provider) error {
	if p == nil {
		return ErrNilProvider
	}

	a.mu.Lock()
	a.providers = append(a.providers, p)
	booted := a.booted
	a.mu.Unlock()

	if !booted {
		return nil
	}
	if err := registerProvider(a, p); err != nil {
		return err
	}
	return bootProvider(a, p)
}

// Providers returns the registered providers in registration order.
func (a *Application) Providers() []Provider {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.providers)
}

// Booted reports whether BootProviders has run.
func (a *Application) Booted() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.booted
}

// ShouldSkipMiddleware reports whether middleware is disabled, either
// explicitly or through MIDDLEWARE_DISABLE.
func (a *Application) ShouldSkipMiddleware() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.skip != nil {
		return *a.skip
	}
	return a.config.MiddlewareDisabled
}

// SetSkipMiddleware overrides the configured MIDDLEWARE_DISABLE value.
func (a *Application) SetSkipMiddleware(skip bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.skip = &skip
}

// HasBeenBootstrapped reports whether BootstrapWith has completed.
func (a *Application) HasBeenBootstrapped() bool {
	return a.bootstrapped.Load()
}

// BootstrapWith runs the bootstrappers in order, once. Later calls return
// the first result; a panicking bootstrapper counts as a failure.
func (a *Application) BootstrapWith(bootstrappers ...Bootstrapper) error {
	a.bootstrapOnce.Do(func() {
		defer func() {
			if p := recover(); p != nil {
				a.bootstrapErr = fmt.Errorf("%w: %w", ErrBootstrap, exception.Recovered(p))
			}
			a.bootstrapped.Store(true)
		}()

		for _, b := range bootstrappers {
			if err := b.Bootstrap(a); err != nil {
				a.bootstrapErr = fmt.Errorf("%w: %w", ErrBootstrap, err)
				return
			}
		}
	})
	return a.bootstrapErr
}
