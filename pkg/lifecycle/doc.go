// Package lifecycle ties authentication outcomes to the client session.
//
// The Controller talks to the user service (login, logout, refresh, register)
// and is the only component that decides when the session store is populated or
// cleared:
//
//   - Login success stores the returned identity and access token.
//   - Refresh success stores the identity if the server sent one, otherwise the
//     store is left alone.
//   - Refresh failure clears the store, resets the access token and then
//     publishes a single Expired event.
//   - Logout calls the server best-effort and always clears the store.
//
// Controller implements reauth.Refresher, so a reauth.Coordinator drives
// Refresh and OnRefreshFailure:
//
//	store := session.NewStore(session.NewMemoryStorage())
//	creds := transport.NewCredentials()
//	tr, _ := transport.New(transport.DefaultConfig(), transport.WithCredentials(creds))
//
//	ctrl := lifecycle.New(tr, store, lifecycle.WithCredentials(creds))
//	coord := reauth.New(tr, ctrl, reauth.WithExcludedPaths(ctrl.Endpoints().AuthPaths()...))
//
//	sub := ctrl.Subscribe(ctx)
//	go func() {
//	    for range sub.Receive(ctx) {
//	        // route the user to the login screen
//	    }
//	}()
//
// A refresh that fails after a newer Login completed does not clear the session
// that login created.
package lifecycle
