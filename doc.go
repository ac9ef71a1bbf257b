// Package authclient is a Go client for the food delivery user service that keeps
// an authenticated session alive on its own.
//
// The client persists the logged-in identity (memory, file or Redis storage),
// attaches the access token to every call and, when the server answers 401,
// refreshes the token once for all concurrently failing calls before replaying
// each of them. When the refresh itself fails the session is cleared and a single
// "session expired" event is published.
//
//	cfg, err := authclient.LoadConfig()
//	if err != nil {
//	    return err
//	}
//	client, err := authclient.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	if !client.Session().IsAuthenticated() {
//	    if _, err := client.Login(ctx, email, password); err != nil {
//	        return err
//	    }
//	}
//
//	var out struct {
//	    Addresses []Address `json:"addresses"`
//	}
//	err = client.GetJSON(ctx, "/api/users/addresses", &out)
//
// Expiry is delivered through a subscription:
//
//	sub := client.Expired(ctx)
//	for ev := range sub.Receive(ctx) {
//	    log.Printf("session expired at %s, please log in again", ev.Data.At)
//	}
//
// The building blocks live in pkg/: session (store and storages), transport
// (single HTTP exchange), reauth (single-flight refresh and replay) and lifecycle
// (login, logout, refresh outcomes).
package authclient
