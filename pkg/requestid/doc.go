// Package requestid propagates request correlation identifiers on outgoing HTTP calls.
//
// A request ID is a short opaque string carried in the "X-Request-ID" header. The
// package offers:
//
//   - RoundTripper, an http.RoundTripper decorator that stamps every outgoing
//     request with the ID found in its context (or a new UUIDv4).
//   - Ensure, WithContext and FromContext for storing IDs in a context.Context.
//   - LogAttr, a logger.ContextExtractor so every log line emitted while
//     handling a call carries the same request_id.
//
// # Usage
//
//	client := &http.Client{Transport: requestid.RoundTripper(http.DefaultTransport)}
//
//	ctx, id := requestid.Ensure(ctx)
//	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
//	resp, err := client.Do(req) // carries X-Request-ID: <id>
//
// Invalid IDs (longer than 128 bytes or containing characters outside
// [a-zA-Z0-9_-]) found in a context are replaced rather than forwarded.
package requestid
