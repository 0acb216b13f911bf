package kernel

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/waypoint/core/config"
	"github.com/dmitrymomot/waypoint/core/logger"
	"github.com/dmitrymomot/waypoint/middleware"
)

// Bootstrapper prepares one aspect of the application before the first request.
type Bootstrapper interface {
	Bootstrap(app *Application) error
}

// BootstrapperFunc adapts a function to Bootstrapper.
type BootstrapperFunc func(app *Application) error

// Bootstrap calls f(app).
func (f BootstrapperFunc) Bootstrap(app *Application) error { return f(app) }

// DefaultBootstrappers returns the standard bootstrap sequence.
func DefaultBootstrappers() []Bootstrapper {
	return []Bootstrapper{
		LoadEnvironmentVariables{},
		LoadConfiguration{},
		RegisterProviders{},
		BootProviders{},
	}
}

// LoadEnvironmentVariables loads the .env file (or .env.<APP_ENV>) into
// the process environment. It is a no-op when the application was given
// an explicit Config.
type LoadEnvironmentVariables struct{}

func (LoadEnvironmentVariables) Bootstrap(app *Application) error {
	if app.configSet {
		return nil
	}

	path, err := config.LoadEnvironment(app.basePath, app.envFile)
	if err != nil {
		return err
	}
	if path != "" {
		app.logger.Debug("environment file loaded",
			logger.Component("kernel"),
			slog.String("path", path),
		)
	}
	return nil
}

// LoadConfiguration parses Config from the environment, loads YAML files
// from the config directory, and applies the timezone, log level and
// post size limit.
type LoadConfiguration struct{}

func (LoadConfiguration) Bootstrap(app *Application) error {
	cfg := app.config
	if !app.configSet {
		if err := config.Parse(&cfg); err != nil {
			return err
		}
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidTimezone, cfg.Timezone, err)
	}

	postMaxSize, err := middleware.ParseSize(cfg.PostMaxSize)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPostSize, err)
	}

	app.mu.Lock()
	app.config = cfg
	app.mu.Unlock()

	repo, err := config.LoadDir(app.ConfigPath())
	if err != nil {
		return err
	}

	for key, value := range map[string]any{
		"app.name":     cfg.Name,
		"app.env":      cfg.Env,
		"app.debug":    cfg.Debug,
		"app.url":      cfg.URL,
		"app.timezone": cfg.Timezone,
	} {
		if !repo.Has(key) {
			repo.Set(key, value)
		}
	}

	level := logger.ParseLevel(cfg.LogLevel)
	if cfg.Debug {
		level = slog.LevelDebug
	}
	app.level.Set(level)

	app.mu.Lock()
	app.repo = repo
	app.location = loc
	app.postMaxSize = postMaxSize
	app.mu.Unlock()

	app.logger.Debug("configuration loaded",
		logger.Component("kernel"),
		slog.String("env", cfg.Env),
		slog.Bool("debug", cfg.Debug),
		slog.String("timezone", loc.String()),
		logger.Count("config_keys", len(repo.All())),
	)
	return nil
}

// RegisterProviders calls Register on every provider in registration order.
// Providers added by another provider's Register are registered too.
type RegisterProviders struct{}

func (RegisterProviders) Bootstrap(app *Application) error {
	for i := 0; ; i++ {
		providers := app.Providers()
		if i >= len(providers) {
			return nil
		}
		if err := registerProvider(app, providers[i]); err != nil {
			return err
		}
	}
}

// BootProviders calls Boot on every BootableProvider in registration order
// and marks the application as booted.
type BootProviders struct{}

func (BootProviders) Bootstrap(app *Application) error {
	for _, p := range app.Providers() {
		if err := bootProvider(app, p); err != nil {
			return err
		}
	}

	app.mu.Lock()
	app.booted = true
	app.mu.Unlock()
	return nil
}

func registerProvider(app *Application, p Provider) error {
	if err := p.Register(app); err != nil {
		return fmt.Errorf("%w: %T: %w", ErrProviderRegister, p, err)
	}
	return nil
}

func bootProvider(app *Application, p Provider) error {
	b, ok := p.(BootableProvider)
	if !ok {
		return nil
	}
	if err := b.Boot(app); err != nil {
		return fmt.Errorf("%w: %T: %w", ErrProviderBoot, p, err)
	}
	return nil
}
