package authclient

import (
	"github.com/dmitrymomot/authclient/pkg/config"
	"github.com/dmitrymomot/authclient/pkg/lifecycle"
	"github.com/dmitrymomot/authclient/pkg/redis"
	"github.com/dmitrymomot/authclient/pkg/session"
	"github.com/dmitrymomot/authclient/pkg/transport"
)

// Config is the complete client configuration, loadable from the environment.
type Config struct {
	Transport transport.Config
	Session   session.Config
	Redis     redis.Config
	Endpoints lifecycle.Endpoints

	// Environment selects logging presets: "development" (debug, text) or "production" (info, json)
	Environment string `env:"APP_ENV" envDefault:"development"`

	// LogLevel overrides the environment's level when set: debug, info, warn, error
	LogLevel string `env:"LOG_LEVEL"`

	// LogFormat overrides the environment's format when set: text or json
	LogFormat string `env:"LOG_FORMAT"`

	// ServiceName is attached to every log record
	ServiceName string `env:"SERVICE_NAME" envDefault:"authclient"`
}

// DefaultConfig returns a configuration pointing at a local user service,
// with the session kept in memory.
func DefaultConfig() Config {
	sess := session.DefaultConfig()
	sess.Backend = session.BackendMemory

	return Config{
		Transport:   transport.DefaultConfig(),
		Session:     sess,
		Endpoints:   lifecycle.DefaultEndpoints(),
		Environment: "development",
		ServiceName: "authclient",
	}
}

// LoadConfig reads the configuration from the environment, after loading the
// optional .env files given.
func LoadConfig(envFiles ...string) (Config, error) {
	if err := config.LoadEnv(envFiles...); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
