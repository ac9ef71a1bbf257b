package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/authclient/pkg/logger"
)

// Store owns the client session: the current identity in memory and its durable record.
// Set, Update and Clear are the only mutators; nothing else writes the durable record.
type Store struct {
	storage Storage
	key     string
	logger  *slog.Logger

	// writeMu serializes mutations so the durable record follows the in-memory order
	writeMu sync.Mutex

	mu       sync.RWMutex
	identity *Identity
}

// Option is a functional option for configuring the Store
type Option func(*Store)

// WithKey sets the storage key of the persisted record
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLogger sets the logger used to report recovered storage problems
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates a session store backed by the given durable storage.
// The store starts empty; call Load at process start to restore a persisted session.
func NewStore(storage Storage, opts ...Option) *Store {
	if storage == nil {
		panic(ErrNoStorage)
	}

	s := &Store{
		storage: storage,
		key:     DefaultConfig().Key,
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("session.store"))

	return s
}

// Load restores the persisted identity into memory and returns the resulting snapshot.
// Missing, unreadable or corrupted records all yield an unauthenticated snapshot;
// a corrupted record is purged from storage.
func (s *Store) Load(ctx context.Context) Snapshot {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	identity := s.read(ctx)

	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()

	return s.Current()
}

// Set replaces the identity, marks the session authenticated and overwrites the durable record.
// The in-memory state is updated even if persisting fails; the failure is returned wrapped in ErrPersist.
func (s *Store) Set(ctx context.Context, identity *Identity) error {
	if !identity.valid() {
		return ErrInvalidIdentity
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.identity = identity.clone()
	s.mu.Unlock()

	return s.write(ctx, identity)
}

// Update replaces the identity of an already authenticated session, e.g. after a profile change.
// Returns ErrNotAuthenticated when there is no session to update.
func (s *Store) Update(ctx context.Context, identity *Identity) error {
	if !identity.valid() {
		return ErrInvalidIdentity
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.identity == nil {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	s.identity = identity.clone()
	s.mu.Unlock()

	return s.write(ctx, identity)
}

// Clear drops the identity, marks the session unauthenticated and removes the durable record.
func (s *Store) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.identity = nil
	s.mu.Unlock()

	if err := s.storage.Delete(ctx, s.key); err != nil {
		return errors.Join(ErrPersist, err)
	}
	return nil
}

// Key returns the storage key of the persisted record
func (s *Store) Key() string {
	return s.key
}

// Current returns a copy of the in-memory session. It never performs I/O.
func (s *Store) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.identity == nil {
		return Snapshot{}
	}
	return Snapshot{Identity: s.identity.clone(), Authenticated: true}
}

func (s *Store) read(ctx context.Context) *Identity {
	raw, err := s.storage.Get(ctx, s.key)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		return nil
	case errors.Is(err, ErrCorruptRecord):
		s.purge(ctx, err)
		return nil
	case err != nil:
		s.logger.WarnContext(ctx, "session record unreadable, starting without session", logger.Error(err))
		return nil
	}

	var identity Identity
	if err := json.Unmarshal(raw, &identity); err != nil || !identity.valid() {
		s.purge(ctx, err)
		return nil
	}

	return &identity
}

func (s *Store) purge(ctx context.Context, cause error) {
	s.logger.WarnContext(ctx, "discarding corrupted session record", logger.Error(cause))
	if err := s.storage.Delete(ctx, s.key); err != nil {
		s.logger.WarnContext(ctx, "failed to purge corrupted session record", logger.Error(err))
	}
}

func (s *Store) write(ctx context.Context, identity *Identity) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return errors.Join(ErrPersist, err)
	}
	if err := s.storage.Set(ctx, s.key, raw); err != nil {
		return errors.Join(ErrPersist, err)
	}
	return nil
}
