// Package secrets seals small records (session identity, refresh cookie) before
// they reach durable storage.
//
//	key, _ := secrets.ParseKey(os.Getenv("SESSION_ENCRYPTION_KEY"))
//	sealer, err := secrets.NewSealer(key, "authclient/session")
//	if err != nil {
//	    return err
//	}
//	sealed, _ := sealer.Seal([]byte(`{"id":"42"}`))
//	plain, err := sealer.Open(sealed)
//
// Keys are 32 bytes; the cipher key is derived per purpose with HKDF-SHA256
// (golang.org/x/crypto/hkdf) and records are encrypted with AES-256-GCM.
package secrets
