// Package session defines the server-side session store used by
// cookie-based authentication handlers. Implementations live in the
// memory and redis subpackages.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// Session is one server-side login session.
type Session struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists login sessions.
type Store interface {
	// Create starts a session for the given user, valid for ttl.
	Create(ctx context.Context, user string, ttl time.Duration) (*Session, error)

	// Get returns the session with the given id, or ErrNotFound when
	// it does not exist or has expired.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete ends the session with the given id. Deleting an unknown
	// session is not an error.
	Delete(ctx context.Context, id string) error
}
