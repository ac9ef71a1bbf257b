package lifecycle

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/authclient/pkg/broadcast"
	"github.com/dmitrymomot/authclient/pkg/transport"
)

// Option is a functional option for configuring the Controller
type Option func(*Controller)

// WithEndpoints overrides the user service paths; empty fields keep their defaults
func WithEndpoints(e Endpoints) Option {
	return func(c *Controller) {
		c.endpoints = e.withDefaults()
	}
}

// WithCredentials sets the bearer carrier that receives access tokens from login and refresh
func WithCredentials(creds *transport.Credentials) Option {
	return func(c *Controller) {
		c.credentials = creds
	}
}

// WithBroadcaster publishes expiry events on b instead of a private in-memory broadcaster.
// The controller does not close a broadcaster it did not create.
func WithBroadcaster(b broadcast.Broadcaster[Expired]) Option {
	return func(c *Controller) {
		if b != nil {
			c.expired = b
			c.ownsBroadcaster = false
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock sets the time source used to stamp expiry events
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}
