package state

import (
	"context"
	"errors"
	"time"
)

// Store defines the interface for server-held state backends.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save persists a state payload under token until expiresAt.
	// An existing token is overwritten.
	Save(ctx context.Context, token string, data []byte, expiresAt time.Time) error

	// Load retrieves a payload by token.
	// Returns (nil, nil) if the token doesn't exist or has expired.
	Load(ctx context.Context, token string) ([]byte, error)

	// Delete removes a payload. Missing tokens are not an error.
	Delete(ctx context.Context, token string) error

	// Touch updates the expiration time without loading the payload.
	// Missing tokens are not an error.
	Touch(ctx context.Context, token string, expiresAt time.Time) error

	// Close releases any resources held by the store.
	Close() error
}

// ErrStoreClosed is returned when operations are attempted on a closed store.
var ErrStoreClosed = errors.New("state: store is closed")
