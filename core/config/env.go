package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrNilConfig   = errors.New("config target is nil")
	ErrParseConfig = errors.New("failed to parse config")
	ErrLoadEnvFile = errors.New("failed to load env file")
)

var (
	dotenvOnce sync.Once
	cache      sync.Map // reflect.Type -> any
)

// Load parses environment variables into cfg. The first successful result
// for each type is cached and copied into later calls.
func Load[T any](cfg *T) error {
	if cfg == nil {
		return ErrNilConfig
	}

	t := reflect.TypeFor[T]()
	if v, ok := cache.Load(t); ok {
		*cfg = v.(T)
		return nil
	}

	dotenvOnce.Do(func() {
		// A missing .env is normal outside development.
		_ = godotenv.Load()
	})

	if err := Parse(cfg); err != nil {
		return err
	}
	actual, _ := cache.LoadOrStore(t, *cfg)
	*cfg = actual.(T)
	return nil
}

// MustLoad is like Load but panics on error.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}

// Parse parses environment variables into cfg without caching.
func Parse[T any](cfg *T) error {
	if cfg == nil {
		return ErrNilConfig
	}
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrParseConfig, err)
	}
	return nil
}

// LoadEnvironment loads dir/file into the process environment. When APP_ENV
// is set and dir/file.<APP_ENV> exists, that file is loaded instead. It
// returns the path that was loaded, or "" when no file exists.
func LoadEnvironment(dir, file string) (string, error) {
	if file == "" {
		file = ".env"
	}

	candidates := []string{filepath.Join(dir, file)}
	if appEnv := os.Getenv("APP_ENV"); appEnv != "" {
		candidates = append([]string{filepath.Join(dir, file+"."+appEnv)}, candidates...)
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", fmt.Errorf("%w: %s: %w", ErrLoadEnvFile, path, err)
		}
		if err := godotenv.Load(path); err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrLoadEnvFile, path, err)
		}
		return path, nil
	}
	return "", nil
}
