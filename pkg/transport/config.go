package transport

import "time"

// Config holds HTTP transport configuration
type Config struct {
	// BaseURL is prepended to relative request targets
	BaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8000"`

	// Timeout bounds a single exchange, including reading the body
	Timeout time.Duration `env:"API_TIMEOUT" envDefault:"30s"`

	// MaxResponseBytes caps how much of a response body is read into memory.
	// A longer 2xx body fails with ErrResponseTooLarge.
	MaxResponseBytes int64 `env:"API_MAX_RESPONSE_BYTES" envDefault:"10485760"`

	// UserAgent is sent on every request when non-empty
	UserAgent string `env:"API_USER_AGENT" envDefault:"authclient"`
}

// DefaultConfig returns default transport configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:          "http://localhost:8000",
		Timeout:          30 * time.Second,
		MaxResponseBytes: 10 << 20,
		UserAgent:        "authclient",
	}
}
