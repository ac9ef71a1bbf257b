package transport

import (
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials holds the access token returned by login and refresh and attaches it
// to outgoing requests as a bearer token. The refresh token itself never passes
// through here: it lives in the cookie jar as an HttpOnly cookie.
//
// Tokens are parsed without verification only to learn their expiry and subject;
// the server remains the sole judge of validity.
type Credentials struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	subject   string
}

// NewCredentials returns an empty carrier
func NewCredentials() *Credentials {
	return &Credentials{}
}

// SetAccessToken replaces the current access token. An empty token resets the carrier.
func (c *Credentials) SetAccessToken(token string) {
	var claims jwt.RegisteredClaims
	var expiresAt time.Time
	var subject string

	if token != "" {
		if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil {
			if claims.ExpiresAt != nil {
				expiresAt = claims.ExpiresAt.Time
			}
			subject = claims.Subject
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.expiresAt = expiresAt
	c.subject = subject
}

// Reset forgets the access token
func (c *Credentials) Reset() {
	c.SetAccessToken("")
}

// AccessToken returns the current token or an empty string
func (c *Credentials) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Subject returns the "sub" claim of a JWT access token, if any
func (c *Credentials) Subject() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subject
}

// ExpiresAt returns the "exp" claim of a JWT access token.
// The boolean is false for opaque tokens and tokens without expiry.
func (c *Credentials) ExpiresAt() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expiresAt, !c.expiresAt.IsZero()
}

// Expired reports whether a known expiry lies before now.
// Tokens with unknown expiry are never reported as expired.
func (c *Credentials) Expired(now time.Time) bool {
	exp, ok := c.ExpiresAt()
	return ok && !now.Before(exp)
}

// apply sets the Authorization header unless the caller already set one
func (c *Credentials) apply(r *http.Request) {
	if c == nil || r.Header.Get("Authorization") != "" {
		return
	}
	if token := c.AccessToken(); token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}
