package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/francescomari/portier/pkg/session"
)

func TestCreateAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	sess, err := s.Create(ctx, "alice", time.Hour)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("session has no id")
	}
	if sess.User != "alice" {
		t.Errorf("User = %q, want %q", sess.User, "alice")
	}

	got, err := s.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.User != "alice" {
		t.Errorf("User = %q, want %q", got.User, "alice")
	}
}

func TestGetUnknown(t *testing.T) {
	s := New()

	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestGetExpired(t *testing.T) {
	s := New()
	ctx := context.Background()

	sess, err := s.Create(ctx, "alice", -time.Second)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := s.Get(ctx, sess.ID); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	// The expired session is removed on access.
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	sess, err := s.Create(ctx, "alice", time.Hour)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, sess.ID); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}

	// Deleting again is not an error.
	if err := s.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}
