// Package authtest runs an in-process fake of the user service for tests.
//
// It mirrors the real API surface: register, login (sets the refreshToken cookie
// and returns a signed HS256 access token), refresh (rotates the cookie), logout,
// and bearer-protected /me and /addresses routes. Knobs let tests expire every
// access token at once, fail or hold refresh calls, and count traffic.
package authtest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/authclient/pkg/session"
)

const (
	// RefreshCookie is the name of the HttpOnly refresh token cookie
	RefreshCookie = "refreshToken"

	// AddressesPath is a bearer-protected resource used to exercise replays
	AddressesPath = "/api/users/addresses"
)

type account struct {
	password  string
	identity  session.Identity
	addresses []Address
}

// Address is the protected resource served under AddressesPath
type Address struct {
	ID     string `json:"id"`
	Street string `json:"street"`
	City   string `json:"city"`
}

type accessClaims struct {
	Email      string `json:"email"`
	Role       string `json:"role"`
	Generation int64  `json:"gen"`
	jwt.RegisteredClaims
}

// Server is a fake user service backed by httptest.Server.
type Server struct {
	*httptest.Server

	secret    []byte
	accessTTL time.Duration

	mu       sync.Mutex
	accounts map[string]*account // by email
	refresh  map[string]string   // refresh token -> email
	gate     chan struct{}

	generation     atomic.Int64
	failRefresh    atomic.Bool
	refreshUser    atomic.Bool
	refreshCalls   atomic.Int64
	loginCalls     atomic.Int64
	logoutCalls    atomic.Int64
	protectedCalls atomic.Int64
	unauthorized   atomic.Int64
}

// Option configures the Server
type Option func(*Server)

// WithAccessTTL sets the lifetime of issued access tokens (default 15m)
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = ttl
	}
}

// WithRefreshUser makes refresh responses carry the user record
func WithRefreshUser() Option {
	return func(s *Server) {
		s.refreshUser.Store(true)
	}
}

// New starts a fake user service and stops it when the test ends.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := &Server{
		secret:    []byte(uuid.NewString()),
		accessTTL: 15 * time.Minute,
		accounts:  make(map[string]*account),
		refresh:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)

	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Post("/refresh", s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(s.checkAuth)
			r.Get("/me", s.handleMe)
			r.Get("/addresses", s.handleListAddresses)
			r.Post("/addresses", s.handleAddAddress)
		})
	})
	return r
}

// AddUser creates an account directly and returns its identity
func (s *Server) AddUser(email, password, name string) session.Identity {
	identity := session.Identity{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Role:      "customer",
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[email] = &account{password: password, identity: identity}

	return identity
}

// RenameUser changes the stored name, e.g. to observe a profile refresh
func (s *Server) RenameUser(email, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[email]; ok {
		a.identity.Name = name
	}
}

// ExpireAccessTokens invalidates every access token issued so far
func (s *Server) ExpireAccessTokens() {
	s.generation.Add(1)
}

// RevokeRefreshTokens invalidates every refresh token issued so far
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.refresh)
}

// FailRefresh makes refresh calls answer 401 while set
func (s *Server) FailRefresh(fail bool) {
	s.failRefresh.Store(fail)
}

// HoldRefresh blocks refresh handlers until the returned release func is called.
func (s *Server) HoldRefresh() (release func()) {
	gate := make(chan struct{})

	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gate == gate {
				s.gate = nil
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

// RefreshCalls returns the number of refresh requests received
func (s *Server) RefreshCalls() int64 { return s.refreshCalls.Load() }

// LoginCalls returns the number of login requests received
func (s *Server) LoginCalls() int64 { return s.loginCalls.Load() }

// LogoutCalls returns the number of logout requests received
func (s *Server) LogoutCalls() int64 { return s.logoutCalls.Load() }

// ProtectedCalls returns the number of requests that passed the bearer check
func (s *Server) ProtectedCalls() int64 { return s.protectedCalls.Load() }

// Unauthorized returns the number of protected requests rejected with 401
func (s *Server) Unauthorized() int64 { return s.unauthorized.Load() }

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Phone    string `json:"phone"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[req.Email]; exists {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}

	identity := session.Identity{
		ID:        uuid.NewString(),
		Email:     req.Email,
		Name:      req.Name,
		Phone:     req.Phone,
		Role:      req.Role,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	s.accounts[req.Email] = &account{password: req.Password, identity: identity}

	writeJSON(w, http.StatusCreated, map[string]string{"user_id": identity.ID})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.loginCalls.Add(1)

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	s.mu.Lock()
	a, ok := s.accounts[req.Email]
	if !ok || a.password != req.Password {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	identity := a.identity
	refreshToken := s.issueRefreshLocked(req.Email)
	s.mu.Unlock()

	access, err := s.issueAccess(identity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	setRefreshCookie(w, refreshToken)
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": access,
		"user":         identity,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	cookie, err := r.Cookie(RefreshCookie)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Refresh token not found")
		return
	}
	if s.failRefresh.Load() {
		writeError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	s.mu.Lock()
	email, ok := s.refresh[cookie.Value]
	a := s.accounts[email]
	if !ok || a == nil {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}
	delete(s.refresh, cookie.Value)
	identity := a.identity
	refreshToken := s.issueRefreshLocked(email)
	s.mu.Unlock()

	access, err := s.issueAccess(identity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	setRefreshCookie(w, refreshToken)
	body := map[string]any{"access_token": access}
	if s.refreshUser.Load() {
		body["user"] = identity
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.logoutCalls.Add(1)

	if cookie, err := r.Cookie(RefreshCookie); err == nil {
		s.mu.Lock()
		delete(s.refresh, cookie.Value)
		s.mu.Unlock()
	}

	http.SetCookie(w, &http.Cookie{Name: RefreshCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	a := s.accountFromRequest(r)
	if a == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	s.mu.Lock()
	identity := a.identity
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"user": identity})
}

func (s *Server) handleListAddresses(w http.ResponseWriter, r *http.Request) {
	a := s.accountFromRequest(r)
	if a == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	s.mu.Lock()
	addresses := append([]Address{}, a.addresses...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"addresses": addresses})
}

func (s *Server) handleAddAddress(w http.ResponseWriter, r *http.Request) {
	a := s.accountFromRequest(r)
	if a == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	var addr Address
	if err := json.NewDecoder(r.Body).Decode(&addr); err != nil || addr.Street == "" {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	addr.ID = uuid.NewString()

	s.mu.Lock()
	a.addresses = append(a.addresses, addr)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"address": addr})
}

type ctxKey struct{}

func (s *Server) checkAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			s.unauthorized.Add(1)
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			s.unauthorized.Add(1)
			writeError(w, http.StatusUnauthorized, "invalid Authorization format")
			return
		}

		claims, err := s.validateAccess(token)
		if err != nil {
			s.unauthorized.Add(1)
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		s.protectedCalls.Add(1)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims.Email)))
	})
}

func (s *Server) issueAccess(identity session.Identity) (string, error) {
	now := time.Now()
	claims := accessClaims{
		Email:      identity.Email,
		Role:       identity.Role,
		Generation: s.generation.Load(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) validateAccess(token string) (*accessClaims, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if claims.Generation != s.generation.Load() {
		return nil, errors.New("token generation revoked")
	}
	return &claims, nil
}

func (s *Server) issueRefreshLocked(email string) string {
	token := uuid.NewString()
	s.refresh[token] = email
	return token
}

func (s *Server) accountFromRequest(r *http.Request) *account {
	email, _ := r.Context().Value(ctxKey{}).(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[email]
}

func setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   5 * 24 * 60 * 60,
		HttpOnly: true,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
