package session

import "context"

// Storage is a durable key-value medium for the serialized session record.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Get returns the raw record or ErrRecordNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set overwrites the record stored under key
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the record; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
}
