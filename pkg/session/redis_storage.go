package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage implements Storage on top of a Redis client.
// Useful when several client processes share one session, e.g. a fleet of headless agents.
type RedisStorage struct {
	db     redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStorage creates a storage writing keys as prefix+key.
// A zero ttl keeps the record until it is deleted.
func NewRedisStorage(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStorage {
	return &RedisStorage{
		db:     client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get returns the record or ErrRecordNotFound
func (s *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.db.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRecordNotFound
	}
	return val, err
}

// Set writes the record with the configured ttl
func (s *RedisStorage) Set(ctx context.Context, key string, value []byte) error {
	return s.db.Set(ctx, s.prefix+key, value, s.ttl).Err()
}

// Delete removes the record
func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	return s.db.Del(ctx, s.prefix+key).Err()
}
