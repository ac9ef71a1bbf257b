package lifecycle_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authclient/internal/authtest"
	"github.com/dmitrymomot/authclient/pkg/broadcast"
	"github.com/dmitrymomot/authclient/pkg/lifecycle"
	"github.com/dmitrymomot/authclient/pkg/session"
	"github.com/dmitrymomot/authclient/pkg/transport"
)

type fixture struct {
	srv   *authtest.Server
	tr    *transport.HTTPTransport
	creds *transport.Credentials
	store *session.Store
	ctrl  *lifecycle.Controller
}

func setup(t *testing.T, opts ...authtest.Option) fixture {
	t.Helper()

	srv := authtest.New(t, opts...)
	creds := transport.NewCredentials()

	cfg := transport.DefaultConfig()
	cfg.BaseURL = srv.URL
	tr, err := transport.New(cfg, transport.WithCredentials(creds))
	require.NoError(t, err)

	store := session.NewStore(session.NewMemoryStorage())
	ctrl := lifecycle.New(tr, store,
		lifecycle.WithCredentials(creds),
		lifecycle.WithClock(func() time.Time { return time.Unix(1700000000, 0) }),
	)
	t.Cleanup(func() { _ = ctrl.Close() })

	return fixture{srv: srv, tr: tr, creds: creds, store: store, ctrl: ctrl}
}

func TestController_Login(t *testing.T) {
	t.Parallel()

	f := setup(t)
	want := f.srv.AddUser("jane@example.com", "secret1", "Jane")

	identity, err := f.ctrl.Login(context.Background(), lifecycle.LoginRequest{Email: "jane@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, want, *identity)

	snap := f.store.Current()
	require.True(t, snap.IsAuthenticated())
	assert.Equal(t, want.ID, snap.Identity.ID)

	assert.NotEmpty(t, f.creds.AccessToken())
	assert.Equal(t, want.ID, f.creds.Subject())
	assert.False(t, f.creds.Expired(time.Now()))

	var names []string
	for _, c := range f.tr.Cookies() {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, authtest.RefreshCookie)
}

func TestController_LoginFailure(t *testing.T) {
	t.Parallel()

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		f.srv.AddUser("jane@example.com", "secret1", "Jane")

		_, err := f.ctrl.Login(context.Background(), lifecycle.LoginRequest{Email: "jane@example.com", Password: "nope123"})
		require.Error(t, err)
		assert.True(t, transport.IsStatus(err, http.StatusUnauthorized))

		var statusErr *transport.HTTPStatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, "Invalid email or password", statusErr.Message())
		assert.False(t, f.store.Current().IsAuthenticated())
	})

	t.Run("empty credentials", func(t *testing.T) {
		t.Parallel()
		f := setup(t)

		_, err := f.ctrl.Login(context.Background(), lifecycle.LoginRequest{Email: "jane@example.com"})
		assert.ErrorIs(t, err, lifecycle.ErrInvalidCredentials)
		assert.Zero(t, f.srv.LoginCalls())
	})
}

func TestController_Refresh(t *testing.T) {
	t.Parallel()

	t.Run("without identity leaves store untouched", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		f.srv.AddUser("jane@example.com", "secret1", "Jane")
		_, err := f.ctrl.Login(context.Background(), lifecycle.LoginRequest{Email: "jane@example.com", Password: "secret1"})
		require.NoError(t, err)

		before := f.store.Current()
		oldToken := f.creds.AccessToken()
		f.srv.RenameUser("jane@example.com", "Jane Doe")

		require.NoError(t, f.ctrl.Refresh(context.Background()))
		assert.Equal(t, before, f.store.Current())
		assert.NotEqual(t, oldToken, f.creds.AccessToken(), "access token replaced")
		assert.EqualValues(t, 1, f.srv.RefreshCalls())
	})

	t.Run("with identity replaces stored identity", func(t *testing.T) {
		t.Parallel()
		f := setup(t, authtest.WithRefreshUser())
		f.srv.AddUser("jane@example.com", "secret1", "Jane")
		_, err := f.ctrl.Login(context.Background(), lifecycle.LoginRequest{Email: "jane@example.com", Password: "secret1"})
		require.NoError(t, err)

		f.srv.RenameUser("jane@example.com", "Jane Doe")
		require.NoError(t, f.ctrl.Refresh(context.Background()))
		assert.Equal(t, "Jane Doe", f.store.Current().Identity.Name)
	})

	t.Run("rejected without cookie", func(t *testing.T) {
		t.Parallel()
		f := setup(t)

		err := f.ctrl.Refresh(context.Background())
		assert.True(t, transport.IsStatus(err, http.StatusUnauthorized))
	})
}

func TestController_OnRefreshFailure(t *testing.T) {
	t.Parallel()

	f := setup(t)
	f.srv.AddUser("jane@example.com", "secret1", "Jane")
	_, err := f.ctrl.Login(context.Background(), lifecycle.LoginRequest{Email: "jane@example.com", Password: "secret1"})
	require.NoError(t, err)

	sub := f.ctrl.Subscribe(context.Background())

	f.srv.FailRefresh(true)
	refreshErr := f.ctrl.Refresh(context.Background())
	require.Error(t, refreshErr)
	f.ctrl.OnRefreshFailure(context.Background(), refreshErr)

	assert.False(t, f.store.Current().IsAuthenticated())
	assert.Empty(t, f.creds.AccessToken())

	select {
	case msg := <-sub.Receive(context.Background()):
		assert.Equal(t, time.Unix(1700000000, 0), msg.Data.At)
	case <-time.After(time.Second):
		t.Fatal("expiry event not published")
	}

	select {
	case msg := <-sub.Receive(context.Background()):
		t.Fatalf("unexpected second event: %v", msg)
	default:
	}
}

func TestController_RefreshFailureAfterNewerLogin(t *testing.T) {
	t.Parallel()

	f := setup(t)
	f.srv.AddUser("jane@example.com", "secret1", "Jane")
	b := broadcast.NewMemoryBroadcaster[lifecycle.Expired](1)
	t.Cleanup(func() { _ = b.Close() })

	ctrl := lifecycle.New(f.tr, f.store, lifecycle.WithCredentials(f.creds), lifecycle.WithBroadcaster(b))
	sub := ctrl.Subscribe(context.Background())

	f.srv.FailRefresh(true)
	refreshErr := ctrl.Refresh(context.Background())
	require.Error(t, refreshErr)

	// login lands between the refresh failing and its reaction
	_, err := ctrl.Login(context.Background(), lifecycle.LoginRequest{Email: "jane@example.com", Password: "secret1"})
	require.NoError(t, err)

	ctrl.OnRefreshFailure(context.Background(), refreshErr)

	assert.True(t, f.store.Current().IsAuthenticated(), "newer login survives")
	assert.NotEmpty(t, f.creds.AccessToken())
	assert.Zero(t, b.Dropped())
	select {
	case msg := <-sub.Receive(context.Background()):
		t.Fatalf("unexpected expiry event: %v", msg)
	default:
	}

	require.NoError(t, ctrl.Close(), "foreign broadcaster is left open")
	assert.Equal(t, 1, b.Subscribers())
}

func TestController_Logout(t *testing.T) {
	t.Parallel()

	t.Run("clears session and cookie", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		f.srv.AddUser("jane@example.com", "secret1", "Jane")
		_, err := f.ctrl.Login(context.Background(), lifecycle.LoginRequest{Email: "jane@example.com", Password: "secret1"})
		require.NoError(t, err)

		require.NoError(t, f.ctrl.Logout(context.Background()))
		assert.False(t, f.store.Current().IsAuthenticated())
		assert.Empty(t, f.creds.AccessToken())
		assert.Empty(t, f.tr.Cookies())
		assert.EqualValues(t, 1, f.srv.LogoutCalls())

		err = f.ctrl.Refresh(context.Background())
		assert.True(t, transport.IsStatus(err, http.StatusUnauthorized))
	})

	t.Run("server unreachable still clears", func(t *testing.T) {
		t.Parallel()

		cfg := transport.DefaultConfig()
		cfg.BaseURL = "http://127.0.0.1:1"
		tr, err := transport.New(cfg)
		require.NoError(t, err)

		store := session.NewStore(session.NewMemoryStorage())
		require.NoError(t, store.Set(context.Background(), &session.Identity{ID: "u1"}))

		ctrl := lifecycle.New(tr, store)
		require.NoError(t, ctrl.Logout(context.Background()))
		assert.False(t, store.Current().IsAuthenticated())
	})
}

func TestController_Register(t *testing.T) {
	t.Parallel()

	f := setup(t)
	req := lifecycle.RegisterRequest{
		Email:    "new@example.com",
		Password: "secret1",
		Name:     "New",
		Phone:    "+100000",
		Role:     "customer",
	}

	id, err := f.ctrl.Register(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.False(t, f.store.Current().IsAuthenticated(), "register does not log in")

	_, err = f.ctrl.Register(context.Background(), req)
	assert.True(t, transport.IsStatus(err, http.StatusConflict))

	identity, err := f.ctrl.Login(context.Background(), lifecycle.LoginRequest{Email: req.Email, Password: req.Password})
	require.NoError(t, err)
	assert.Equal(t, id, identity.ID)
}

func TestController_Invalidate(t *testing.T) {
	t.Parallel()

	f := setup(t)
	f.srv.AddUser("jane@example.com", "secret1", "Jane")
	_, err := f.ctrl.Login(context.Background(), lifecycle.LoginRequest{Email: "jane@example.com", Password: "secret1"})
	require.NoError(t, err)
	sub := f.ctrl.Subscribe(context.Background())

	f.ctrl.Invalidate(context.Background())

	assert.False(t, f.store.Current().IsAuthenticated())
	assert.Zero(t, f.srv.LogoutCalls())
	select {
	case msg := <-sub.Receive(context.Background()):
		t.Fatalf("unexpected expiry event: %v", msg)
	default:
	}
}

func TestEndpoints(t *testing.T) {
	t.Parallel()

	e := lifecycle.DefaultEndpoints()
	assert.Equal(t, []string{"/api/users/login", "/api/users/refresh"}, e.AuthPaths())

	ctrl := lifecycle.New(nil, session.NewStore(session.NewMemoryStorage()),
		lifecycle.WithEndpoints(lifecycle.Endpoints{Login: "/auth/login"}))
	assert.Equal(t, "/auth/login", ctrl.Endpoints().Login)
	assert.Equal(t, e.Refresh, ctrl.Endpoints().Refresh)

}

func TestController_SessionEndedDuringRefresh(t *testing.T) {
	t.Parallel()

	t.Run("successful refresh is dropped", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		f.srv.AddUser("jane@example.com", "secret1", "Jane")
		_, err := f.ctrl.Login(context.Background(), lifecycle.LoginRequest{Email: "jane@example.com", Password: "secret1"})
		require.NoError(t, err)
		sub := f.ctrl.Subscribe(context.Background())

		release := f.srv.HoldRefresh()
		t.Cleanup(release)
		done := make(chan error, 1)
		go func() { done <- f.ctrl.Refresh(context.Background()) }()
		require.Eventually(t, func() bool { return f.srv.RefreshCalls() == 1 }, time.Second, time.Millisecond)

		f.ctrl.Invalidate(context.Background())
		release()

		refreshErr := <-done
		require.ErrorIs(t, refreshErr, lifecycle.ErrSessionEnded)
		assert.Empty(t, f.creds.AccessToken(), "bearer token stays cleared")
		assert.False(t, f.store.Current().IsAuthenticated())

		f.ctrl.OnRefreshFailure(context.Background(), refreshErr)
		select {
		case msg := <-sub.Receive(context.Background()):
			t.Fatalf("unexpected expiry event: %v", msg)
		default:
		}
	})

	t.Run("refresh rejected after logout", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		f.srv.AddUser("jane@example.com", "secret1", "Jane")
		_, err := f.ctrl.Login(context.Background(), lifecycle.LoginRequest{Email: "jane@example.com", Password: "secret1"})
		require.NoError(t, err)
		sub := f.ctrl.Subscribe(context.Background())

		release := f.srv.HoldRefresh()
		t.Cleanup(release)
		done := make(chan error, 1)
		go func() { done <- f.ctrl.Refresh(context.Background()) }()
		require.Eventually(t, func() bool { return f.srv.RefreshCalls() == 1 }, time.Second, time.Millisecond)

		require.NoError(t, f.ctrl.Logout(context.Background()))
		release()

		refreshErr := <-done
		require.Error(t, refreshErr)
		f.ctrl.OnRefreshFailure(context.Background(), refreshErr)

		assert.Empty(t, f.creds.AccessToken())
		select {
		case msg := <-sub.Receive(context.Background()):
			t.Fatalf("logout is not an expiry: %v", msg)
		default:
		}
	})
}
