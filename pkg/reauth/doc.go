// Package reauth wraps a transport with automatic re-authentication.
//
// When a request fails with 401 Unauthorized the Coordinator asks its Refresher to
// renew the ambient credential and then replays the request once. Any number of
// goroutines may hit 401 at the same time; they all join one shared refresh
// operation (a single async.Future held in a mutex-guarded slot), so exactly one
// refresh call reaches the server per burst of failures.
//
//	caller ──► Coordinator.Send ──► Transport.Send
//	                 │ 401
//	                 ▼
//	        join shared refresh ──► Refresher.Refresh (once)
//	                 │ ok                    │ failed
//	                 ▼                       ▼
//	        replay req.Retry()      Refresher.OnRefreshFailure (once)
//	                                every waiter gets ErrRefreshFailed
//
// A 401 is passed through untouched when:
//
//   - the request targets an excluded path (login, refresh), or
//   - the request is already a replay (Request.Retried).
//
// Other statuses and network errors are never intercepted. The outcome of a
// replay is returned as-is; a second 401 after a successful refresh is final.
//
// # Cancellation
//
// The refresh runs under the coordinator's own context, not a caller's: a caller
// that gives up returns its context error while the refresh continues for the
// others. Close (or cancelling the context given to WithContext) abandons an
// in-flight refresh; every waiter settles with ErrClosed and the failure reaction
// does not run.
//
// # Usage
//
//	coord := reauth.New(httpTransport, controller,
//	    reauth.WithExcludedPaths("/api/users/login", "/api/users/refresh"),
//	    reauth.WithMetrics(reauth.NewMetrics(prometheus.DefaultRegisterer)),
//	)
//	defer coord.Close()
//
//	resp, err := coord.Send(ctx, req)
package reauth
