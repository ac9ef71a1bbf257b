package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidRequest indicates a request that cannot be built or sent
	ErrInvalidRequest = errors.New("transport.invalid_request")

	// ErrDecodeResponse indicates a response body that is not valid JSON for the target type
	ErrDecodeResponse = errors.New("transport.decode_response")

	// ErrResponseTooLarge indicates a 2xx body longer than Config.MaxResponseBytes
	ErrResponseTooLarge = errors.New("transport.response_too_large")
)

// NetworkError reports a call that produced no HTTP response at all:
// DNS failure, refused connection, timeout, cancelled context.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPStatusError reports a response with a non-2xx status.
type HTTPStatusError struct {
	Method string
	URL    string
	Status int
	Header http.Header
	Body   []byte
}

func (e *HTTPStatusError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("transport: %s %s: %d %s: %s", e.Method, e.URL, e.Status, http.StatusText(e.Status), msg)
	}
	return fmt.Sprintf("transport: %s %s: %d %s", e.Method, e.URL, e.Status, http.StatusText(e.Status))
}

// Message extracts the "error" field of a JSON error body, if any
func (e *HTTPStatusError) Message() string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(e.Body, &body); err != nil {
		return ""
	}
	return body.Error
}

// IsStatus reports whether err is, or wraps, an HTTPStatusError with the given status
func IsStatus(err error, status int) bool {
	var statusErr *HTTPStatusError
	return errors.As(err, &statusErr) && statusErr.Status == status
}

// IsNetwork reports whether err is, or wraps, a NetworkError
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
