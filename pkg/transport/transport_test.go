package transport_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authclient/pkg/requestid"
	"github.com/dmitrymomot/authclient/pkg/transport"
)

func newTransport(t *testing.T, srv *httptest.Server, opts ...transport.Option) *transport.HTTPTransport {
	t.Helper()
	cfg := transport.DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Timeout = 2 * time.Second
	tr, err := transport.New(cfg, opts...)
	require.NoError(t, err)
	return tr
}

func TestHTTPTransport_Send(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"method":       r.Method,
			"path":         r.URL.Path,
			"body":         string(body),
			"content_type": r.Header.Get("Content-Type"),
			"accept":       r.Header.Get("Accept"),
			"request_id":   r.Header.Get(requestid.Header),
			"user_agent":   r.Header.Get("User-Agent"),
		})
	}))
	defer srv.Close()

	tr := newTransport(t, srv)

	req, err := transport.NewJSONRequest(http.MethodPost, "/api/echo", map[string]string{"k": "v"})
	require.NoError(t, err)

	ctx := requestid.WithContext(context.Background(), "req-1")
	resp, err := tr.Send(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)

	var got map[string]string
	require.NoError(t, resp.DecodeJSON(&got))
	assert.Equal(t, http.MethodPost, got["method"])
	assert.Equal(t, "/api/echo", got["path"])
	assert.JSONEq(t, `{"k":"v"}`, got["body"])
	assert.Equal(t, "application/json", got["content_type"])
	assert.Equal(t, "application/json", got["accept"])
	assert.Equal(t, "req-1", got["request_id"])
	assert.Equal(t, "authclient", got["user_agent"])
}

func TestHTTPTransport_StatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid or expired token"}`))
	}))
	defer srv.Close()

	tr := newTransport(t, srv)
	req, err := transport.NewRequest(http.MethodGet, "/api/users/me", nil)
	require.NoError(t, err)

	resp, err := tr.Send(context.Background(), req)
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, transport.IsStatus(err, http.StatusUnauthorized))
	assert.False(t, transport.IsStatus(err, http.StatusForbidden))
	assert.False(t, transport.IsNetwork(err))

	var statusErr *transport.HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "invalid or expired token", statusErr.Message())
	assert.Contains(t, err.Error(), "401")
}

func TestHTTPTransport_NetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	tr := newTransport(t, srv)
	srv.Close()

	req, err := transport.NewRequest(http.MethodGet, "/anything", nil)
	require.NoError(t, err)

	_, err = tr.Send(context.Background(), req)
	require.Error(t, err)
	assert.True(t, transport.IsNetwork(err))
	assert.False(t, transport.IsStatus(err, http.StatusUnauthorized))
}

func TestHTTPTransport_CancelledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	tr := newTransport(t, srv)
	req, err := transport.NewRequest(http.MethodGet, "/slow", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = tr.Send(ctx, req)
	assert.True(t, transport.IsNetwork(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPTransport_AmbientCredentials(t *testing.T) {
	t.Parallel()

	var seenCookie, seenAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			http.SetCookie(w, &http.Cookie{Name: "refreshToken", Value: "r1", Path: "/", HttpOnly: true})
		default:
			if c, err := r.Cookie("refreshToken"); err == nil {
				seenCookie = c.Value
			}
			seenAuth = r.Header.Get("Authorization")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	creds := transport.NewCredentials()
	creds.SetAccessToken("opaque-token")
	tr := newTransport(t, srv, transport.WithCredentials(creds))

	login, _ := transport.NewRequest(http.MethodPost, "/login", nil)
	_, err := tr.Send(context.Background(), login)
	require.NoError(t, err)
	require.Len(t, tr.Cookies(), 1)

	next, _ := transport.NewRequest(http.MethodGet, "/next", nil)
	_, err = tr.Send(context.Background(), next)
	require.NoError(t, err)
	assert.Equal(t, "r1", seenCookie)
	assert.Equal(t, "Bearer opaque-token", seenAuth)

	explicit := next.WithHeader("Authorization", "Bearer explicit")
	_, err = tr.Send(context.Background(), explicit)
	require.NoError(t, err)
	assert.Equal(t, "Bearer explicit", seenAuth)
}

func TestHTTPTransport_ResponseBodyLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/exact":
			_, _ = w.Write([]byte(strings.Repeat("x", 20)))
		case "/denied":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(strings.Repeat("x", 100)))
		default:
			_, _ = w.Write([]byte(`{"user":{"id":"` + strings.Repeat("x", 40) + `"}}`))
		}
	}))
	t.Cleanup(srv.Close)

	cfg := transport.DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.MaxResponseBytes = 20
	tr, err := transport.New(cfg)
	require.NoError(t, err)

	t.Run("larger body fails", func(t *testing.T) {
		t.Parallel()
		req, _ := transport.NewRequest(http.MethodGet, "/big", nil)
		resp, err := tr.Send(context.Background(), req)
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, transport.ErrResponseTooLarge)
		assert.False(t, transport.IsNetwork(err))
	})

	t.Run("body at the limit is kept whole", func(t *testing.T) {
		t.Parallel()
		req, _ := transport.NewRequest(http.MethodGet, "/exact", nil)
		resp, err := tr.Send(context.Background(), req)
		require.NoError(t, err)
		assert.Len(t, resp.Body, 20)
	})

	t.Run("status error keeps its status", func(t *testing.T) {
		t.Parallel()
		req, _ := transport.NewRequest(http.MethodGet, "/denied", nil)
		_, err := tr.Send(context.Background(), req)
		assert.True(t, transport.IsStatus(err, http.StatusUnauthorized))

		var statusErr *transport.HTTPStatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Len(t, statusErr.Body, 20)
	})
}

func TestNew_InvalidBaseURL(t *testing.T) {
	t.Parallel()

	cfg := transport.DefaultConfig()
	cfg.BaseURL = "://bad"
	_, err := transport.New(cfg)
	assert.ErrorIs(t, err, transport.ErrInvalidRequest)
}
