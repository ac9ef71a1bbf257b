// Package session holds the client-side record of whether, and as whom, the user is
// currently authenticated.
//
// A Store keeps the current Identity in memory and mirrors it to a durable Storage so the
// session survives process restarts. The Store is an explicitly owned object: create one at
// start-up, call Load once, and hand the pointer to whatever needs it. Set, Update and Clear
// are the only mutators and the only code paths that write the durable record, which keeps
// the invariant "authenticated if and only if an identity is present" intact.
//
//	┌──────────────┐  Set / Update / Clear  ┌─────────────┐
//	│  lifecycle   │ ─────────────────────► │    Store    │
//	└──────────────┘                        └─────────────┘
//	                                            │  JSON record under Key
//	                                            ▼
//	                          ┌───────────────────────────────────┐
//	                          │ Storage (memory, file, redis, …)  │
//	                          └───────────────────────────────────┘
//
// Wrapping any Storage in EncryptedStorage seals records at rest with a Cipher such as
// secrets.Sealer.
//
// # Usage
//
//	storage, err := session.NewFileStorage(".authclient")
//	if err != nil {
//	    return err
//	}
//	store := session.NewStore(storage, session.WithLogger(log))
//	snap := store.Load(ctx) // never fails: corrupt data means "no session"
//
//	if snap.IsAuthenticated() {
//	    fmt.Println("hello", snap.Identity.Name)
//	}
//
// # Error Handling
//
//   - ErrInvalidIdentity: nil identity or empty ID passed to Set / Update
//   - ErrNotAuthenticated: Update without an active session
//   - ErrPersist: durable write or delete failed (in-memory state is still updated)
//   - ErrRecordNotFound: returned by Storage implementations, never by Store
//   - ErrCorruptRecord: EncryptedStorage could not open a record; Load purges it
//
// Corrupted records are never reported to callers: Load logs them, purges the record and
// reports an unauthenticated snapshot.
package session
