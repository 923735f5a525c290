// Package redis provides a Redis-backed session store, sharing
// sessions across proxy instances. Expiry is enforced by Redis key
// TTLs.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/francescomari/portier/pkg/debug"
	"github.com/francescomari/portier/pkg/observability"
	"github.com/francescomari/portier/pkg/session"
)

// defaultPrefix namespaces session keys in a shared Redis.
const defaultPrefix = "portier:session"

// ErrUnavailable wraps Redis transport failures.
var ErrUnavailable = errors.New("session store unavailable")

// Config holds the Redis session store settings.
type Config struct {
	// Addr is the Redis host:port.
	Addr string

	// Password is the Redis password, empty for none.
	Password string

	// DB is the Redis database number.
	DB int

	// Prefix namespaces the session keys. Default: "portier:session".
	Prefix string
}

// Store is a Redis-backed session store.
type Store struct {
	client *redis.Client
	prefix string
}

// Ensure Store implements session.Store at compile time.
var _ session.Store = (*Store)(nil)

// New creates a session store connected to the configured Redis.
func New(cfg Config) *Store {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		prefix: prefix,
	}
}

// NewWithClient creates a session store on an existing client, useful
// for tests.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client, prefix: defaultPrefix}
}

func (s *Store) key(id string) string {
	return s.prefix + ":" + id
}

// Create starts a session for the given user.
func (s *Store) Create(ctx context.Context, user string, ttl time.Duration) (*session.Session, error) {
	now := time.Now()
	sess := &session.Session{
		ID:        uuid.NewString(),
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(sess.ID), data, ttl).Err(); err != nil {
		observability.SessionOpsTotal.WithLabelValues("create", "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	observability.SessionOpsTotal.WithLabelValues("create", "ok").Inc()
	debug.Trace("sessions", "session created", "id", sess.ID, "user", user, "ttl", ttl)
	return sess, nil
}

// Get returns the session with the given id. Expired sessions are
// gone from Redis and report ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*session.Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.SessionOpsTotal.WithLabelValues("get", "miss").Inc()
		return nil, session.ErrNotFound
	}
	if err != nil {
		observability.SessionOpsTotal.WithLabelValues("get", "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}

	observability.SessionOpsTotal.WithLabelValues("get", "ok").Inc()
	return &sess, nil
}

// Delete ends the session with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		observability.SessionOpsTotal.WithLabelValues("delete", "error").Inc()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	observability.SessionOpsTotal.WithLabelValues("delete", "ok").Inc()
	debug.Trace("sessions", "session deleted", "id", id)
	return nil
}

// Ping checks the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close releases the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
