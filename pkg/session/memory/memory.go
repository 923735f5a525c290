// Package memory provides an in-memory session store for testing and
// single-instance deployments. Sessions are lost when the process
// restarts.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/francescomari/portier/pkg/session"
)

// Store is an in-memory session store.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// Ensure Store implements session.Store at compile time.
var _ session.Store = (*Store)(nil)

// New creates an empty in-memory session store.
func New() *Store {
	return &Store{sessions: make(map[string]*session.Session)}
}

// Create starts a session for the given user.
func (s *Store) Create(_ context.Context, user string, ttl time.Duration) (*session.Session, error) {
	now := time.Now()
	sess := &session.Session{
		ID:        uuid.NewString(),
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = sess
	return sess, nil
}

// Get returns the session with the given id. Expired sessions are
// removed lazily.
func (s *Store) Get(_ context.Context, id string) (*session.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, session.ErrNotFound
	}

	if time.Now().After(sess.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, session.ErrNotFound
	}

	return sess, nil
}

// Delete ends the session with the given id.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Len returns the number of stored sessions, including expired ones
// not yet removed.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}
