package reauth

import (
	"context"
	"log/slog"
)

// Option is a functional option for configuring the Coordinator
type Option func(*Coordinator)

// WithExcludedPaths replaces the set of paths whose 401 never triggers a refresh.
// Use the login and refresh endpoint paths.
func WithExcludedPaths(paths ...string) Option {
	return func(c *Coordinator) {
		c.excluded = make(map[string]struct{}, len(paths))
		for _, p := range paths {
			if p != "" {
				c.excluded[cleanPath(p)] = struct{}{}
			}
		}
	}
}

// WithContext ties the coordinator to a parent lifetime, e.g. the owning
// application session. Cancelling it has the same effect as Close.
func WithContext(ctx context.Context) Option {
	return func(c *Coordinator) {
		if ctx != nil {
			c.parent = ctx
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enables Prometheus metrics
func WithMetrics(m *Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}
