// Package config loads settings from the environment and from YAML files.
//
// Environment structs are parsed with caarlos0/env after .env files have
// been loaded with godotenv. Load caches one value per type:
//
//	type ServerConfig struct {
//		Addr string `env:"SERVER_ADDR" envDefault:":8080"`
//	}
//
//	var cfg ServerConfig
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
// LoadEnvironment loads a specific env file, preferring "<file>.<APP_ENV>"
// when APP_ENV is set and that file exists. Variables already present in the
// process environment are never overridden.
//
// A Repository holds YAML configuration keyed by file name:
//
//	repo, err := config.LoadDir("config")   // config/app.yaml, config/cors.yaml
//	origins := repo.Strings("cors.allowed_origins")
//
// YAML values may reference the environment with ${VAR} or ${VAR:-default};
// "$$" produces a literal dollar sign.
package config
