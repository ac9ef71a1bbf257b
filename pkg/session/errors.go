package session

import "errors"

var (
	// ErrInvalidIdentity indicates a nil identity or one without an ID
	ErrInvalidIdentity = errors.New("session.invalid_identity")

	// ErrNotAuthenticated indicates an update was attempted without an active session
	ErrNotAuthenticated = errors.New("session.not_authenticated")

	// ErrRecordNotFound is returned by Storage.Get when no record exists for the key
	ErrRecordNotFound = errors.New("session.record_not_found")

	// ErrCorruptRecord is returned by Storage.Get when a record exists but cannot be decoded
	ErrCorruptRecord = errors.New("session.corrupt_record")

	// ErrNoStorage indicates no durable storage is configured
	ErrNoStorage = errors.New("session.no_storage")

	// ErrPersist indicates the durable record could not be written or removed
	ErrPersist = errors.New("session.persist_failed")

	// ErrUnknownBackend indicates an unsupported storage backend name in Config
	ErrUnknownBackend = errors.New("session.unknown_backend")
)
