package session

import (
	"errors"
	"fmt"
)

// ErrMissingCredentials is returned by Login when the server URL, email, or
// password is empty. No network request is made in that case.
var ErrMissingCredentials = errors.New("missing credentials")

// ErrLoginInFlight is returned when a login attempt is already pending.
var ErrLoginInFlight = errors.New("login already in progress")

// ErrTimeout is returned when the login probe exceeds its deadline.
var ErrTimeout = errors.New("request timed out")

// StatusError is a non-success HTTP response from the server, carrying the
// status code and the server-provided message body.
type StatusError struct {
	// Code is the HTTP status code.
	Code int
	// Message is the response body, trimmed.
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}
