package authclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/authclient/pkg/broadcast"
	"github.com/dmitrymomot/authclient/pkg/lifecycle"
	"github.com/dmitrymomot/authclient/pkg/logger"
	"github.com/dmitrymomot/authclient/pkg/reauth"
	"github.com/dmitrymomot/authclient/pkg/redis"
	"github.com/dmitrymomot/authclient/pkg/requestid"
	"github.com/dmitrymomot/authclient/pkg/secrets"
	"github.com/dmitrymomot/authclient/pkg/session"
	"github.com/dmitrymomot/authclient/pkg/transport"
)

// Client is an API client for the user service with a persistent session and
// transparent re-authentication. Every call made through Do, GetJSON or PostJSON
// survives an expired access token: the first 401 triggers one shared refresh and
// the call is replayed once.
//
// A Client is safe for concurrent use. Close it when done.
type Client struct {
	logger      *slog.Logger
	endpoints   lifecycle.Endpoints
	transport   *transport.HTTPTransport
	credentials *transport.Credentials
	store       *session.Store
	lifecycle   *lifecycle.Controller
	coordinator *reauth.Coordinator
	cookies     *cookieKeeper

	closeOnce sync.Once
	closed    chan struct{}
	closers   []func() error
	probes    []func(context.Context) error
}

// TokenInfo describes the current access token as decoded from its claims.
// Subject and ExpiresAt are empty for opaque tokens.
type TokenInfo struct {
	Subject   string    `json:"subject,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	Expired   bool      `json:"expired"`
}

type options struct {
	logger     *slog.Logger
	storage    session.Storage
	httpClient *http.Client
	registerer prometheus.Registerer
	ctx        context.Context
}

// Option configures a Client
type Option func(*options)

// WithLogger replaces the logger built from Config
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithStorage uses s for the durable session record instead of the backend named in Config
func WithStorage(s session.Storage) Option {
	return func(o *options) {
		o.storage = s
	}
}

// WithHTTPClient replaces the pooled HTTP client. A client without a cookie jar
// cannot keep the refresh token.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithMetrics registers re-authentication metrics on reg
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithContext bounds the client's background work (shared refreshes) to ctx
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		o.ctx = ctx
	}
}

// New builds a client from cfg and restores any persisted session.
// ctx bounds only the start-up I/O (connecting to Redis, reading the session record).
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	o := &options{ctx: context.Background()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = newLogger(cfg)
	}

	c := &Client{
		logger:    o.logger.With(logger.Component("authclient")),
		endpoints: cfg.Endpoints,
		closed:    make(chan struct{}),
	}

	storage := o.storage
	if storage == nil {
		var err error
		if storage, err = c.openStorage(ctx, cfg); err != nil {
			return nil, err
		}
	}
	if cfg.Session.EncryptionKey != "" {
		sealer, err := newSealer(cfg.Session.EncryptionKey)
		if err != nil {
			_ = c.runClosers()
			return nil, err
		}
		storage = session.NewEncryptedStorage(storage, sealer)
	}

	c.credentials = transport.NewCredentials()
	trOpts := []transport.Option{
		transport.WithCredentials(c.credentials),
		transport.WithLogger(o.logger),
	}
	if o.httpClient != nil {
		trOpts = append(trOpts, transport.WithHTTPClient(o.httpClient))
	}
	tr, err := transport.New(cfg.Transport, trOpts...)
	if err != nil {
		_ = c.runClosers()
		return nil, err
	}
	c.transport = tr

	c.store = session.NewStore(storage,
		session.WithKey(cfg.Session.Key),
		session.WithLogger(o.logger),
	)
	c.cookies = &cookieKeeper{
		storage:   storage,
		key:       c.store.Key() + ".cookies",
		transport: tr,
		logger:    c.logger,
	}

	c.lifecycle = lifecycle.New(tr, c.store,
		lifecycle.WithEndpoints(cfg.Endpoints),
		lifecycle.WithCredentials(c.credentials),
		lifecycle.WithLogger(o.logger),
	)
	c.endpoints = c.lifecycle.Endpoints()

	coordOpts := []reauth.Option{
		reauth.WithExcludedPaths(c.endpoints.AuthPaths()...),
		reauth.WithContext(o.ctx),
		reauth.WithLogger(o.logger),
	}
	if o.registerer != nil {
		coordOpts = append(coordOpts, reauth.WithMetrics(reauth.NewMetrics(o.registerer)))
	}
	c.coordinator = reauth.New(tr, &refresher{ctrl: c.lifecycle, store: c.store, cookies: c.cookies}, coordOpts...)

	snap := c.store.Load(ctx)
	if snap.IsAuthenticated() {
		c.cookies.restore(ctx)
		c.logger.DebugContext(ctx, "session restored", logger.UserID(snap.Identity.ID))
	}

	return c, nil
}

// NewFromEnv loads Config from the environment and builds a client
func NewFromEnv(ctx context.Context, opts ...Option) (*Client, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, opts...)
}

// Login authenticates and starts a session
func (c *Client) Login(ctx context.Context, email, password string) (*session.Identity, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	ctx, _ = requestid.Ensure(ctx)

	identity, err := c.lifecycle.Login(ctx, lifecycle.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	c.cookies.save(ctx)
	return identity, nil
}

// Register creates an account and returns its id. It does not log in.
func (c *Client) Register(ctx context.Context, req lifecycle.RegisterRequest) (string, error) {
	if c.isClosed() {
		return "", ErrClosed
	}
	ctx, _ = requestid.Ensure(ctx)
	return c.lifecycle.Register(ctx, req)
}

// Logout ends the session locally and, best-effort, on the server
func (c *Client) Logout(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}
	ctx, _ = requestid.Ensure(ctx)

	err := c.lifecycle.Logout(ctx)
	c.cookies.forget(ctx)
	return err
}

// Me fetches the current user's profile and updates the stored identity
func (c *Client) Me(ctx context.Context) (*session.Identity, error) {
	var body struct {
		User *session.Identity `json:"user"`
	}
	if err := c.GetJSON(ctx, c.endpoints.Me, &body); err != nil {
		return nil, err
	}
	if body.User == nil || body.User.ID == "" {
		return nil, lifecycle.ErrMalformedResponse
	}

	switch err := c.store.Update(ctx, body.User); {
	case err == nil, errors.Is(err, session.ErrNotAuthenticated):
	default:
		c.logger.WarnContext(ctx, "profile not persisted", logger.UserID(body.User.ID), logger.Error(err))
	}
	return body.User, nil
}

// Refresh renews the access token now, sharing any refresh already in flight.
// On failure the session is ended exactly as for a refresh triggered by a 401.
func (c *Client) Refresh(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}
	return c.coordinator.Refresh(ctx)
}

// Invalidate drops the local session without calling the server or signalling expiry
func (c *Client) Invalidate(ctx context.Context) {
	c.lifecycle.Invalidate(ctx)
	c.cookies.forget(ctx)
}

// Do sends req with automatic re-authentication
func (c *Client) Do(ctx context.Context, req transport.Request) (*transport.Response, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	return c.coordinator.Send(ctx, req)
}

// GetJSON performs GET path and decodes the JSON response into out (may be nil)
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	req, err := transport.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, req, out)
}

// PostJSON performs POST path with in encoded as JSON and decodes the response into out (may be nil)
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	req, err := transport.NewJSONRequest(http.MethodPost, path, in)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, req, out)
}

// Session returns the current session snapshot without I/O
func (c *Client) Session() session.Snapshot {
	return c.store.Current()
}

// TokenExpiry returns the expiry of the current access token, when known
func (c *Client) TokenExpiry() (time.Time, bool) {
	return c.credentials.ExpiresAt()
}

// Token reports the current access token's claims. ok is false when the
// client holds no token, e.g. right after a restart.
func (c *Client) Token() (info TokenInfo, ok bool) {
	if c.credentials.AccessToken() == "" {
		return TokenInfo{}, false
	}
	info.Subject = c.credentials.Subject()
	info.ExpiresAt, _ = c.credentials.ExpiresAt()
	info.Expired = c.credentials.Expired(time.Now())
	return info, true
}

// Healthy checks that the session storage is reachable. Only the redis
// backend has a remote dependency to check.
func (c *Client) Healthy(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}
	var errs []error
	for _, probe := range c.probes {
		errs = append(errs, probe(ctx))
	}
	return errors.Join(errs...)
}

// Expired subscribes to the terminal "session expired" signal.
// The subscription ends when ctx is cancelled or the client is closed.
func (c *Client) Expired(ctx context.Context) broadcast.Subscriber[lifecycle.Expired] {
	return c.lifecycle.Subscribe(ctx)
}

// Close abandons any in-flight refresh and releases resources.
// The persisted session is kept.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if n := c.coordinator.Waiting(); n > 0 {
			c.logger.Debug("closing with requests waiting on a refresh", logger.Waiters(n))
		}
		close(c.closed)
		err = errors.Join(
			c.coordinator.Close(),
			c.lifecycle.Close(),
			c.runClosers(),
		)
	})
	return err
}

func (c *Client) doJSON(ctx context.Context, req transport.Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.DecodeJSON(out)
}

func (c *Client) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Client) openStorage(ctx context.Context, cfg Config) (session.Storage, error) {
	switch cfg.Session.Backend {
	case session.BackendMemory, "":
		return session.NewMemoryStorage(), nil

	case session.BackendFile:
		return session.NewFileStorage(cfg.Session.Dir)

	case session.BackendRedis:
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, client.Close)
		c.probes = append(c.probes, redis.Healthcheck(client))
		return session.NewRedisStorage(client, cfg.Session.RedisPrefix, cfg.Session.RedisTTL), nil

	default:
		return nil, errors.Join(session.ErrUnknownBackend, errors.New(string(cfg.Session.Backend)))
	}
}

func (c *Client) runClosers() error {
	var errs []error
	for _, fn := range c.closers {
		errs = append(errs, fn())
	}
	c.closers = nil
	return errors.Join(errs...)
}

func newSealer(encodedKey string) (*secrets.Sealer, error) {
	key, err := secrets.ParseKey(encodedKey)
	if err != nil {
		return nil, err
	}
	return secrets.NewSealer(key, "authclient/session")
}

func newLogger(cfg Config) *slog.Logger {
	opts := []logger.Option{
		logger.WithEnvironment(cfg.Environment, cfg.ServiceName),
		logger.WithContextExtractors(requestid.LogAttr),
	}
	if cfg.LogLevel != "" {
		opts = append(opts, logger.WithLevel(logger.ParseLevel(cfg.LogLevel)))
	}
	if format, ok := logger.ParseFormat(cfg.LogFormat); ok {
		opts = append(opts, logger.WithFormat(format))
	}
	return logger.New(opts...)
}

// refresher keeps the persisted refresh cookie in step with the lifecycle outcome.
type refresher struct {
	ctrl    *lifecycle.Controller
	store   *session.Store
	cookies *cookieKeeper
}

func (r *refresher) Refresh(ctx context.Context) error {
	if err := r.ctrl.Refresh(ctx); err != nil {
		return err
	}
	r.cookies.save(ctx)

	// a logout racing the save must not leave a cookie record behind
	if !r.store.Current().IsAuthenticated() {
		r.cookies.forget(ctx)
	}
	return nil
}

func (r *refresher) OnRefreshFailure(ctx context.Context, cause error) {
	r.ctrl.OnRefreshFailure(ctx, cause)

	// a login that overlapped the refresh keeps its session and cookie
	if !r.store.Current().IsAuthenticated() {
		r.cookies.forget(ctx)
	}
}

var _ io.Closer = (*Client)(nil)
