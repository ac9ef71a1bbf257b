package reauth

import "errors"

var (
	// ErrRefreshFailed wraps the refresh error delivered to every request that waited on it
	ErrRefreshFailed = errors.New("reauth.refresh_failed")

	// ErrClosed indicates the coordinator was closed while a request waited for a refresh
	ErrClosed = errors.New("reauth.closed")
)
