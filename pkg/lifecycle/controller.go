package lifecycle

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/authclient/pkg/broadcast"
	"github.com/dmitrymomot/authclient/pkg/logger"
	"github.com/dmitrymomot/authclient/pkg/session"
	"github.com/dmitrymomot/authclient/pkg/transport"
)

// Expired is published once when the session ends because it could not be refreshed.
type Expired struct {
	At time.Time
}

// LoginRequest holds the user's credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest describes a new account
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type loginResponse struct {
	AccessToken string            `json:"access_token"`
	User        *session.Identity `json:"user"`
}

type refreshResponse struct {
	AccessToken string            `json:"access_token"`
	User        *session.Identity `json:"user,omitempty"`
}

type registerResponse struct {
	UserID string `json:"user_id"`
}

// Controller binds authentication outcomes to the session store.
// Login and refresh success populate it; refresh failure clears it and publishes
// one Expired event; logout clears it whether or not the server call succeeds.
//
// Controller implements reauth.Refresher.
type Controller struct {
	transport   transport.Transport
	store       *session.Store
	credentials *transport.Credentials
	endpoints   Endpoints
	logger      *slog.Logger
	now         func() time.Time

	expired         broadcast.Broadcaster[Expired]
	ownsBroadcaster bool

	// mu orders applying a refresh result against login and session end, so a
	// result is never applied to a session that ended while it was in flight.
	mu sync.Mutex

	// loginEpoch counts completed logins and logoutEpoch counts ended sessions
	// (logout, invalidation, refresh failure). refreshStart holds both as seen
	// by the latest refresh when it started.
	loginEpoch   atomic.Uint64
	logoutEpoch  atomic.Uint64
	refreshStart atomic.Pointer[epochs]
}

type epochs struct {
	login, logout uint64
}

// New creates a lifecycle controller. t must be the plain transport, not the
// re-authenticating coordinator: auth calls are never replayed.
func New(t transport.Transport, store *session.Store, opts ...Option) *Controller {
	c := &Controller{
		transport:       t,
		store:           store,
		endpoints:       DefaultEndpoints(),
		logger:          logger.Discard(),
		now:             time.Now,
		expired:         broadcast.NewMemoryBroadcaster[Expired](1),
		ownsBroadcaster: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logger.Component("lifecycle"))

	return c
}

// Endpoints returns the configured user service paths
func (c *Controller) Endpoints() Endpoints {
	return c.endpoints
}

// Login authenticates with email and password and starts a session.
// The server sets the refresh token cookie; the access token goes to the bearer carrier.
func (c *Controller) Login(ctx context.Context, creds LoginRequest) (*session.Identity, error) {
	if creds.Email == "" || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}

	req, err := transport.NewJSONRequest(http.MethodPost, c.endpoints.Login, creds)
	if err != nil {
		return nil, err
	}
	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return nil, err
	}

	var body loginResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return nil, err
	}
	if body.User == nil || body.User.ID == "" {
		return nil, ErrMalformedResponse
	}

	c.OnLoginSuccess(ctx, body.User, body.AccessToken)
	return body.User, nil
}

// OnLoginSuccess records a new session. A failure to persist is logged: the
// in-memory session is usable until the process exits.
func (c *Controller) OnLoginSuccess(ctx context.Context, identity *session.Identity, accessToken string) {
	c.mu.Lock()
	c.loginEpoch.Add(1)
	c.setToken(accessToken)
	err := c.store.Set(ctx, identity)
	c.mu.Unlock()

	if err != nil {
		c.logger.WarnContext(ctx, "session not persisted", logger.UserID(identity.ID), logger.Error(err))
	}
	c.logger.InfoContext(ctx, "logged in", logger.UserID(identity.ID))
}

// Refresh asks the server for a new access token using the refresh token cookie.
// A returned identity replaces the stored one; without one the store is untouched.
//
// A result that arrives after the session ended is dropped with ErrSessionEnded.
// After a newer login it is dropped too, but Refresh succeeds: that login's
// credentials are already in place.
func (c *Controller) Refresh(ctx context.Context) error {
	start := c.epochs()
	c.refreshStart.Store(&start)

	req, err := transport.NewRequest(http.MethodPost, c.endpoints.Refresh, nil)
	if err != nil {
		return err
	}
	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return err
	}

	var body refreshResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch now := c.epochs(); {
	case now.logout != start.logout:
		c.logger.InfoContext(ctx, "session ended during refresh, dropping new token")
		return ErrSessionEnded
	case now.login != start.login:
		c.logger.DebugContext(ctx, "newer login during refresh, keeping its token")
		return nil
	}

	if body.AccessToken != "" {
		c.setToken(body.AccessToken)
	}
	if body.User != nil && body.User.ID != "" {
		if err := c.store.Set(ctx, body.User); err != nil {
			c.logger.WarnContext(ctx, "refreshed session not persisted", logger.UserID(body.User.ID), logger.Error(err))
		}
	}

	return nil
}

// OnRefreshFailure ends the session and publishes one Expired event.
// It is skipped when a login or a session end happened while the failed
// refresh was in flight: the session it would end is already gone.
func (c *Controller) OnRefreshFailure(ctx context.Context, cause error) {
	c.mu.Lock()
	if start := c.refreshStart.Load(); start != nil && *start != c.epochs() {
		c.mu.Unlock()
		c.logger.InfoContext(ctx, "refresh failed after the session changed, nothing to expire", logger.Error(cause))
		return
	}
	c.endLocked(ctx)
	c.mu.Unlock()

	at := c.now()
	if err := c.expired.Broadcast(ctx, broadcast.Message[Expired]{Data: Expired{At: at}}); err != nil {
		c.logger.WarnContext(ctx, "failed to publish session expiry", logger.Error(err))
	}
	c.logger.InfoContext(ctx, "session expired", logger.Error(cause))
}

// Logout notifies the server and ends the local session.
// The local session is cleared even if the server call fails; that error is
// logged, not returned.
func (c *Controller) Logout(ctx context.Context) error {
	req, err := transport.NewRequest(http.MethodPost, c.endpoints.Logout, nil)
	if err != nil {
		return err
	}
	if _, err := c.transport.Send(ctx, req); err != nil {
		c.logger.WarnContext(ctx, "remote logout failed, clearing local session", logger.Error(err))
	}

	c.end(ctx)
	c.logger.InfoContext(ctx, "logged out")
	return nil
}

// Register creates an account and returns the new user id. It does not log in.
func (c *Controller) Register(ctx context.Context, r RegisterRequest) (string, error) {
	if r.Email == "" || r.Password == "" {
		return "", ErrInvalidCredentials
	}

	req, err := transport.NewJSONRequest(http.MethodPost, c.endpoints.Register, r)
	if err != nil {
		return "", err
	}
	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return "", err
	}

	var body registerResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return "", err
	}
	if body.UserID == "" {
		return "", ErrMalformedResponse
	}
	return body.UserID, nil
}

// Invalidate ends the local session without a server call or an expiry event.
func (c *Controller) Invalidate(ctx context.Context) {
	c.end(ctx)
}

// Subscribe returns a subscriber for session expiry events, closed with ctx
func (c *Controller) Subscribe(ctx context.Context) broadcast.Subscriber[Expired] {
	return c.expired.Subscribe(ctx)
}

// Close releases the expiry broadcaster if the controller created it
func (c *Controller) Close() error {
	if c.ownsBroadcaster {
		return c.expired.Close()
	}
	return nil
}

func (c *Controller) end(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLocked(ctx)
}

func (c *Controller) endLocked(ctx context.Context) {
	c.logoutEpoch.Add(1)
	c.setToken("")
	if err := c.store.Clear(ctx); err != nil {
		c.logger.WarnContext(ctx, "session record not removed", logger.Error(err))
	}
}

func (c *Controller) epochs() epochs {
	return epochs{login: c.loginEpoch.Load(), logout: c.logoutEpoch.Load()}
}

func (c *Controller) setToken(token string) {
	if c.credentials != nil {
		c.credentials.SetAccessToken(token)
	}
}
