package async

import (
	"context"
	"fmt"
)

// Future is the pending result of a function started with Go.
// It settles once and every waiter sees the same value and error.
type Future[U any] struct {
	done chan struct{}
	val  U
	err  error
}

// Go runs fn in a new goroutine and returns its Future.
// fn is skipped when ctx is already done; a panic in fn becomes an error wrapping ErrPanic.
func Go[U any](ctx context.Context, fn func(context.Context) (U, error)) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}
	go f.run(ctx, fn)
	return f
}

func (f *Future[U]) run(ctx context.Context, fn func(context.Context) (U, error)) {
	defer close(f.done)
	defer func() {
		if r := recover(); r != nil {
			var zero U
			f.val, f.err = zero, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	if err := ctx.Err(); err != nil {
		f.err = err
		return
	}
	f.val, f.err = fn(ctx)
}

// Done is closed once the future has settled
func (f *Future[U]) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the result is available
func (f *Future[U]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result blocks until the future settles
func (f *Future[U]) Result() (U, error) {
	<-f.done
	return f.val, f.err
}

// Wait is Result bounded by ctx. Giving up does not stop the running function.
func (f *Future[U]) Wait(ctx context.Context) (U, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero U
		return zero, ctx.Err()
	}
}
