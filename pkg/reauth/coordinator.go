package reauth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/authclient/pkg/async"
	"github.com/dmitrymomot/authclient/pkg/logger"
	"github.com/dmitrymomot/authclient/pkg/requestid"
	"github.com/dmitrymomot/authclient/pkg/transport"
)

// Refresher renews the ambient credential and reacts to an unrecoverable failure.
// pkg/lifecycle.Controller is the production implementation.
type Refresher interface {
	// Refresh calls the remote refresh endpoint and applies a successful result
	Refresh(ctx context.Context) error

	// OnRefreshFailure clears the session and signals expiry.
	// The coordinator calls it exactly once per failed refresh operation.
	OnRefreshFailure(ctx context.Context, cause error)
}

// Coordinator sends requests through a Transport and transparently recovers from
// expired credentials: a 401 triggers one shared refresh, after which the failed
// request is replayed once.
type Coordinator struct {
	transport transport.Transport
	refresher Refresher
	excluded  map[string]struct{}
	logger    *slog.Logger
	metrics   *Metrics

	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	// mu guards inflight; the check-and-populate in join happens under it
	mu       sync.Mutex
	inflight *async.Future[struct{}]
	waiting  atomic.Int64
}

// New creates a coordinator. Close it when the owning session is torn down.
func New(t transport.Transport, r Refresher, opts ...Option) *Coordinator {
	c := &Coordinator{
		transport: t,
		refresher: r,
		excluded:  make(map[string]struct{}),
		logger:    logger.Discard(),
		parent:    context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(c.parent)
	c.logger = c.logger.With(logger.Component("reauth"))

	return c
}

// Send performs req and, on a 401 from a non-auth endpoint, refreshes the credential
// and replays req exactly once. Safe for concurrent use.
func (c *Coordinator) Send(ctx context.Context, req transport.Request) (*transport.Response, error) {
	ctx, _ = requestid.Ensure(ctx)

	resp, err := c.transport.Send(ctx, req)
	if err == nil || !c.shouldReauth(req, err) {
		return resp, err
	}

	c.logger.DebugContext(ctx, "credential expired, waiting for refresh",
		logger.Method(req.Method()),
		logger.Path(req.Path()),
	)

	if err := c.awaitRefresh(ctx); err != nil {
		return nil, err
	}

	c.metrics.replayed()
	return c.transport.Send(ctx, req.Retry())
}

// Refresh renews the credential proactively. It joins a refresh already in flight
// instead of starting a second one, and fails like Send would on a failed refresh.
func (c *Coordinator) Refresh(ctx context.Context) error {
	ctx, _ = requestid.Ensure(ctx)
	return c.awaitRefresh(ctx)
}

// Close cancels an in-flight refresh; requests waiting on it settle with ErrClosed.
func (c *Coordinator) Close() error {
	c.cancel()
	return nil
}

// Waiting returns the number of requests currently waiting on a refresh
func (c *Coordinator) Waiting() int64 {
	return c.waiting.Load()
}

func (c *Coordinator) shouldReauth(req transport.Request, err error) bool {
	if !transport.IsStatus(err, http.StatusUnauthorized) {
		return false
	}
	if _, ok := c.excluded[cleanPath(req.Path())]; ok {
		return false
	}
	return !req.Retried()
}

func (c *Coordinator) awaitRefresh(ctx context.Context) error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}

	f := c.join()
	defer func() {
		c.waiting.Add(-1)
		c.metrics.waiting(-1)
	}()

	select {
	case <-f.Done():
		_, err := f.Result()
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrClosed
	}
}

// join returns the in-flight refresh, starting one if the slot is empty.
// A settled future is never reused: a 401 after settlement starts a new refresh.
func (c *Coordinator) join() *async.Future[struct{}] {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.waiting.Add(1)
	c.metrics.waiting(1)

	if c.inflight == nil || c.inflight.Settled() {
		c.inflight = async.Go(c.ctx, c.refresh)
	}
	return c.inflight
}

// refresh is the body of one shared refresh operation.
// The failure reaction runs here, before the future settles, so it runs once per
// operation and the session is already cleared when waiters observe the error.
func (c *Coordinator) refresh(ctx context.Context) (struct{}, error) {
	ctx, _ = requestid.Ensure(ctx)
	start := time.Now()

	err := c.refresher.Refresh(ctx)
	switch {
	case err == nil:
		c.metrics.refreshed(outcomeSuccess, time.Since(start))
		c.logger.InfoContext(ctx, "credential refreshed",
			logger.Duration(time.Since(start)),
			logger.Waiters(c.waiting.Load()),
		)
		return struct{}{}, nil

	case c.ctx.Err() != nil:
		c.metrics.refreshed(outcomeCanceled, time.Since(start))
		c.logger.DebugContext(ctx, "refresh abandoned, coordinator closed", logger.Error(err))
		return struct{}{}, errors.Join(ErrClosed, err)

	default:
		c.metrics.refreshed(outcomeFailure, time.Since(start))
		c.logger.WarnContext(ctx, "credential refresh failed, ending session",
			logger.Duration(time.Since(start)),
			logger.Waiters(c.waiting.Load()),
			logger.Error(err),
		)
		c.refresher.OnRefreshFailure(ctx, err)
		return struct{}{}, errors.Join(ErrRefreshFailed, err)
	}
}

// cleanPath makes "/api/users/refresh/", "api/users/refresh" and
// "/api//users/refresh" compare equal.
func cleanPath(p string) string {
	return path.Clean("/" + p)
}
