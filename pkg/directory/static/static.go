// Package static provides a fixed, in-memory user directory built
// from configuration. It suits small installations and tests; larger
// deployments use the postgres directory.
package static

import (
	"context"
	"fmt"

	"github.com/francescomari/portier/pkg/directory"
)

// Directory serves user records from a map built at construction.
// It is immutable and safe for concurrent use.
type Directory struct {
	users map[string]*directory.User
}

var _ directory.Lookup = (*Directory)(nil)

// New builds a directory from the given users. Duplicate names are an
// error. The users are copied; later changes to the slice do not
// affect the directory.
func New(users []directory.User) (*Directory, error) {
	m := make(map[string]*directory.User, len(users))
	for _, u := range users {
		if u.Name == "" {
			return nil, fmt.Errorf("user with empty name")
		}
		if _, ok := m[u.Name]; ok {
			return nil, fmt.Errorf("duplicate user %q", u.Name)
		}
		m[u.Name] = &u
	}
	return &Directory{users: m}, nil
}

// User returns the record for name, or directory.ErrUserNotFound.
func (d *Directory) User(ctx context.Context, name string) (*directory.User, error) {
	user, ok := d.users[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", directory.ErrUserNotFound, name)
	}
	return user, nil
}

// Len returns the number of users in the directory.
func (d *Directory) Len() int {
	return len(d.users)
}
