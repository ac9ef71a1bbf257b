package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/dmitrymomot/authclient/pkg/logger"
	"github.com/dmitrymomot/authclient/pkg/requestid"
)

// Transport performs a single HTTP exchange.
// Implementations know nothing about retries or what a 401 means.
type Transport interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// HTTPTransport implements Transport on top of net/http.
// Ambient credentials are a cookie jar (server-managed cookies such as the refresh
// token) and an optional Credentials carrier for bearer tokens.
type HTTPTransport struct {
	client      *http.Client
	baseURL     *url.URL
	credentials *Credentials
	maxBody     int64
	userAgent   string
	logger      *slog.Logger
}

// Option is a functional option for configuring the HTTPTransport
type Option func(*HTTPTransport)

// WithHTTPClient replaces the pooled default client. The client's Transport is
// wrapped with the request id round tripper; a nil Jar is left nil.
func WithHTTPClient(c *http.Client) Option {
	return func(t *HTTPTransport) {
		if c != nil {
			t.client = c
		}
	}
}

// WithCredentials attaches a bearer token carrier
func WithCredentials(c *Credentials) Option {
	return func(t *HTTPTransport) {
		t.credentials = c
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(t *HTTPTransport) {
		if l != nil {
			t.logger = l
		}
	}
}

// New creates an HTTP transport from cfg.
func New(cfg Config, opts ...Option) (*HTTPTransport, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Join(ErrInvalidRequest, err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	client := cleanhttp.DefaultPooledClient()
	client.Jar = jar
	client.Timeout = cfg.Timeout

	t := &HTTPTransport{
		client:    client,
		baseURL:   base,
		maxBody:   cfg.MaxResponseBytes,
		userAgent: cfg.UserAgent,
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}

	// copy so a caller-provided client is not mutated
	wrapped := *t.client
	wrapped.Transport = requestid.RoundTripper(t.client.Transport)
	t.client = &wrapped

	if t.maxBody <= 0 {
		t.maxBody = DefaultConfig().MaxResponseBytes
	}
	t.logger = t.logger.With(logger.Component("transport"))

	return t, nil
}

// Send performs one exchange. Non-2xx responses are returned as *HTTPStatusError,
// failures without a response as *NetworkError.
func (t *HTTPTransport) Send(ctx context.Context, req Request) (*Response, error) {
	target, err := t.resolve(req.Target())
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if raw := req.Body(); raw != nil {
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method(), target, body)
	if err != nil {
		return nil, errors.Join(ErrInvalidRequest, err)
	}
	httpReq.Header = req.Header()
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if t.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}
	t.credentials.apply(httpReq)

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		t.logger.DebugContext(ctx, "request failed",
			logger.Method(req.Method()),
			logger.Path(req.Path()),
			logger.Duration(time.Since(start)),
			logger.Error(err),
		)
		return nil, &NetworkError{Method: req.Method(), URL: target, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBody+1))
	if err != nil {
		return nil, &NetworkError{Method: req.Method(), URL: target, Err: fmt.Errorf("read body: %w", err)}
	}
	tooLarge := int64(len(raw)) > t.maxBody
	if tooLarge {
		raw = raw[:t.maxBody]
	}

	t.logger.DebugContext(ctx, "request completed",
		logger.Method(req.Method()),
		logger.Path(req.Path()),
		logger.Status(resp.StatusCode),
		logger.Duration(time.Since(start)),
	)

	// a status error keeps the truncated body; its status is what callers act on
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPStatusError{
			Method: req.Method(),
			URL:    target,
			Status: resp.StatusCode,
			Header: resp.Header.Clone(),
			Body:   raw,
		}
	}

	if tooLarge {
		return nil, fmt.Errorf("%w: %s %s: over %d bytes", ErrResponseTooLarge, req.Method(), target, t.maxBody)
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: raw}, nil
}

// Cookies returns the cookies the jar would send to the base URL
func (t *HTTPTransport) Cookies() []*http.Cookie {
	if t.client.Jar == nil {
		return nil
	}
	return t.client.Jar.Cookies(t.baseURL)
}

// SetCookies seeds the jar for the base URL, e.g. from a persisted refresh cookie
func (t *HTTPTransport) SetCookies(cookies []*http.Cookie) {
	if t.client.Jar != nil {
		t.client.Jar.SetCookies(t.baseURL, cookies)
	}
}

func (t *HTTPTransport) resolve(target string) (string, error) {
	ref, err := url.Parse(target)
	if err != nil {
		return "", errors.Join(ErrInvalidRequest, err)
	}
	return t.baseURL.ResolveReference(ref).String(), nil
}
