package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
)

// Request is a replayable description of one HTTP call.
// The body is captured into memory when the Request is built, so the same
// value can be sent any number of times. Request is a value type: Retry returns
// a modified copy and never touches the receiver.
type Request struct {
	method  string
	target  string
	header  http.Header
	body    []byte
	retried bool
}

// NewRequest builds a request for target, which may be absolute or relative to the
// transport base URL. A non-nil body is read to the end immediately.
func NewRequest(method, target string, body io.Reader) (Request, error) {
	if method == "" {
		method = http.MethodGet
	}
	if _, err := url.Parse(target); err != nil || target == "" {
		return Request{}, errors.Join(ErrInvalidRequest, err)
	}

	var raw []byte
	if body != nil {
		var err error
		if raw, err = io.ReadAll(body); err != nil {
			return Request{}, errors.Join(ErrInvalidRequest, err)
		}
	}

	return Request{
		method: method,
		target: target,
		header: make(http.Header),
		body:   raw,
	}, nil
}

// NewJSONRequest builds a request whose body is v encoded as JSON.
// A nil v produces a request without body.
func NewJSONRequest(method, target string, v any) (Request, error) {
	var body io.Reader
	if v != nil {
		raw, err := json.Marshal(v)
		if err != nil {
			return Request{}, errors.Join(ErrInvalidRequest, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := NewRequest(method, target, body)
	if err != nil {
		return Request{}, err
	}
	if v != nil {
		req.header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// WithHeader returns a copy of the request with the header key set to value
func (r Request) WithHeader(key, value string) Request {
	r.header = r.Header()
	r.header.Set(key, value)
	return r
}

// Retry returns a copy of the request marked as replayed.
// The flag only ever flips from false to true.
func (r Request) Retry() Request {
	r.header = r.Header()
	r.retried = true
	return r
}

// Retried reports whether this request is already a replay
func (r Request) Retried() bool { return r.retried }

// Method returns the HTTP method
func (r Request) Method() string { return r.method }

// Target returns the raw target as given to NewRequest
func (r Request) Target() string { return r.target }

// Path returns the path component of the target
func (r Request) Path() string {
	u, err := url.Parse(r.target)
	if err != nil {
		return ""
	}
	return u.Path
}

// Header returns a copy of the request headers
func (r Request) Header() http.Header {
	if h := r.header.Clone(); h != nil {
		return h
	}
	return make(http.Header)
}

// Body returns a copy of the captured body
func (r Request) Body() []byte {
	if r.body == nil {
		return nil
	}
	return bytes.Clone(r.body)
}
