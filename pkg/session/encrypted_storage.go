package session

import (
	"context"
	"errors"
)

// Cipher seals records before they reach the underlying storage.
// secrets.Sealer implements it.
type Cipher interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// EncryptedStorage encrypts every record written to an underlying Storage.
// Records that fail to decrypt (tampered, or sealed with another key) are reported
// as ErrCorruptRecord so the Store purges them.
type EncryptedStorage struct {
	inner  Storage
	cipher Cipher
}

// NewEncryptedStorage wraps inner with c
func NewEncryptedStorage(inner Storage, c Cipher) *EncryptedStorage {
	if inner == nil || c == nil {
		panic(ErrNoStorage)
	}
	return &EncryptedStorage{inner: inner, cipher: c}
}

func (s *EncryptedStorage) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	plain, err := s.cipher.Open(sealed)
	if err != nil {
		return nil, errors.Join(ErrCorruptRecord, err)
	}
	return plain, nil
}

func (s *EncryptedStorage) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := s.cipher.Seal(value)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, sealed)
}

func (s *EncryptedStorage) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}
