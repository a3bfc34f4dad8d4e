// Package credstore persists the device credential record: the server base
// URL, the session cookie, and the remember-me cookie. It is the single
// durable key-value namespace the session layer depends on; handing it to
// the session manager as an interface keeps the storage mechanism (an
// encrypted file here, a plain map in tests) out of the credential logic.
package credstore

import (
	"context"
	"errors"
)

// Well-known keys of the credential record.
const (
	// ServerKey stores the base URL of the server the user logged in to.
	ServerKey = "server"
	// SessionKey stores the session cookie value.
	SessionKey = "KOMGA-SESSION"
	// RememberKey stores the remember-me cookie, encoded as
	// "value;expiresAtEpochMillis" when the server supplied an expiry.
	RememberKey = "komga-remember-me"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("credstore: key not found")

// Store is a durable key-value namespace for credential material.
type Store interface {
	// Get returns the stored value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
