package async

import "errors"

// ErrPanic marks a future whose function panicked
var ErrPanic = errors.New("async.panic")
