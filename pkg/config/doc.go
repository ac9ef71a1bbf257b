// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv (optional .env files) and
// github.com/caarlos0/env/v11 (struct tag parsing). Each configuration type is
// parsed once per process and cached:
//
//	type Config struct {
//	    BaseURL string        `env:"API_BASE_URL" envDefault:"http://localhost:8000"`
//	    Timeout time.Duration `env:"API_TIMEOUT" envDefault:"30s"`
//	}
//
//	if err := config.LoadEnv("./deploy/.env"); err != nil { // optional
//	    return err
//	}
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//
// A failed parse is not cached, so Load can be retried after the environment is
// fixed. Tests that change the environment call ResetCache.
package config
