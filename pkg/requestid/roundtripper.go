package requestid

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

const (
	Header      = "X-Request-ID"
	maxIDLength = 128
	idPattern   = "^[a-zA-Z0-9_-]+$"
)

var validIDRegex = regexp.MustCompile(idPattern)

type roundTripper struct {
	next http.RoundTripper
}

// RoundTripper stamps every outgoing request with an X-Request-ID header.
// The ID comes from the request context when present, otherwise a fresh UUID is used.
// A valid header already set by the caller is left untouched.
func RoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &roundTripper{next: next}
}

func (rt *roundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if isValidRequestID(r.Header.Get(Header)) {
		return rt.next.RoundTrip(r)
	}

	id := FromContext(r.Context())
	if !isValidRequestID(id) {
		id = uuid.New().String()
	}

	// RoundTrippers must not modify the caller's request
	r = r.Clone(r.Context())
	r.Header.Set(Header, id)
	return rt.next.RoundTrip(r)
}

func isValidRequestID(id string) bool {
	if len(id) == 0 || len(id) > maxIDLength {
		return false
	}
	return validIDRegex.MatchString(id)
}
