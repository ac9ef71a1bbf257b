package authclient

import "errors"

// ErrClosed is returned by calls on a closed client
var ErrClosed = errors.New("authclient.closed")
