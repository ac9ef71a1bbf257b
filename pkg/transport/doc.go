// Package transport performs single HTTP request/response exchanges for the client.
//
// A Request is a replayable value: its body is captured into memory when built, and
// Retry returns a copy flagged as a replay, so a failed call can be sent again safely
// and two logically distinct requests never share mutable state.
//
// HTTPTransport sends a Request with a pooled http.Client (go-cleanhttp) that carries
// the ambient credentials: a cookie jar for server-managed cookies and, optionally,
// a Credentials carrier that adds "Authorization: Bearer <access token>". Every call
// is stamped with an X-Request-ID header.
//
// The transport makes no decisions about authentication. It reports outcomes as:
//
//   - *Response: any 2xx status, body fully read
//   - *HTTPStatusError: any other status, body kept for inspection
//   - *NetworkError: no response at all (dial, TLS, timeout, cancellation)
//
// Re-authentication on 401 is layered on top by pkg/reauth.
package transport
