package redis

import "errors"

var (
	ErrMissingURL = errors.New("redis.missing_url")
	ErrInvalidURL = errors.New("redis.invalid_url")
	// ErrNotReady means the server did not answer PING within the retry budget.
	ErrNotReady  = errors.New("redis.not_ready")
	ErrUnhealthy = errors.New("redis.unhealthy")
)
