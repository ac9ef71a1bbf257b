package lifecycle

import "errors"

var (
	// ErrMalformedResponse indicates the user service answered 2xx without the expected payload
	ErrMalformedResponse = errors.New("lifecycle.malformed_response")

	// ErrInvalidCredentials indicates an empty email or password
	ErrInvalidCredentials = errors.New("lifecycle.invalid_credentials")

	// ErrSessionEnded indicates a refresh whose session was ended while it was in flight
	ErrSessionEnded = errors.New("lifecycle.session_ended")
)
