package session

import "time"

// Backend names a durable storage implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendFile   Backend = "file"
	BackendRedis  Backend = "redis"
)

// Config holds session store configuration
type Config struct {
	// Key is the well-known key of the persisted identity record (default: "user")
	Key string `env:"SESSION_KEY" envDefault:"user"`

	// Backend selects the durable medium: memory, file or redis
	Backend Backend `env:"SESSION_BACKEND" envDefault:"file"`

	// Dir is the directory used by the file backend
	Dir string `env:"SESSION_DIR" envDefault:".authclient"`

	// RedisPrefix namespaces keys written by the redis backend
	RedisPrefix string `env:"SESSION_REDIS_PREFIX" envDefault:"authclient:session:"`

	// EncryptionKey, when set, seals persisted records with AES-GCM (base64, 32 bytes)
	EncryptionKey string `env:"SESSION_ENCRYPTION_KEY"`

	// RedisTTL expires the redis record (0 keeps it until cleared)
	RedisTTL time.Duration `env:"SESSION_REDIS_TTL" envDefault:"0"`
}

// DefaultConfig returns default session configuration
func DefaultConfig() Config {
	return Config{
		Key:         "user",
		Backend:     BackendFile,
		Dir:         ".authclient",
		RedisPrefix: "authclient:session:",
	}
}
