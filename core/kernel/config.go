package kernel

// Config holds application settings read from the environment.
type Config struct {
	Name               string `env:"APP_NAME" envDefault:"waypoint"`
	Env                string `env:"APP_ENV" envDefault:"production"`
	Debug              bool   `env:"APP_DEBUG" envDefault:"false"`
	URL                string `env:"APP_URL" envDefault:"http://localhost"`
	Timezone           string `env:"APP_TIMEZONE" envDefault:"UTC"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"info"`
	PostMaxSize        string `env:"POST_MAX_SIZE" envDefault:"8M"`
	MiddlewareDisabled bool   `env:"MIDDLEWARE_DISABLE" envDefault:"false"`
	ConfigPath         string `env:"APP_CONFIG_PATH" envDefault:"config"`
}
