// Package async runs a function in its own goroutine and lets any number of
// goroutines wait for its one result.
//
// Go starts the function and returns a *Future at once. Waiters block on Result,
// bound the wait with Wait, or select on Done; Settled polls. The future settles
// exactly once, so the same pointer can be handed to every caller that needs the
// outcome:
//
//	f := async.Go(ctx, func(ctx context.Context) (Token, error) {
//	    return refresh(ctx)
//	})
//
//	// in any number of goroutines
//	tok, err := f.Wait(callerCtx)
//
// When ctx is already done the function is not called and the context error is
// the result. A panic is recovered and reported as an error wrapping ErrPanic.
package async
