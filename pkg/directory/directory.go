// Package directory defines the user directory backing credential
// resolution. A Lookup retrieves user records by name; the Resolver
// checks extracted credentials against those records and produces the
// acting identity, including impersonation.
package directory

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/francescomari/portier/pkg/auth"
	"github.com/francescomari/portier/pkg/password"
)

// ErrUserNotFound is returned by lookups for unknown user names.
var ErrUserNotFound = errors.New("user not found")

// User is a directory entry.
type User struct {
	// Name is the login name, unique within the directory.
	Name string

	// PasswordHash is the PHC-encoded argon2id hash of the user's
	// password. Empty for users that only authenticate through
	// schemes that verify the secret themselves, such as bearer
	// tokens or API keys.
	PasswordHash string

	// Disabled blocks all authentication for the user, including
	// acting as an impersonation target.
	Disabled bool

	// Impersonators lists the user names allowed to act as this user.
	Impersonators []string

	// Attributes is arbitrary per-user data exposed on the resolved
	// identity, such as display names or role hints.
	Attributes map[string]string
}

// AllowsImpersonation reports whether by may act as this user.
func (u *User) AllowsImpersonation(by string) bool {
	return slices.Contains(u.Impersonators, by)
}

// Lookup retrieves users by name. Implementations return
// ErrUserNotFound for unknown names and wrap infrastructure failures
// in auth.ErrBackendUnavailable so the engine can tell a missing user
// from a broken backend.
type Lookup interface {
	User(ctx context.Context, name string) (*User, error)
}

// Resolver resolves extracted credentials against a user directory.
type Resolver struct {
	lookup Lookup
}

// NewResolver returns a resolver backed by the given directory.
func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

var _ auth.Resolver = (*Resolver)(nil)

// Resolve checks the credentials in info against the directory and
// returns the acting identity. Anonymous credentials pass through
// without a lookup. Credentials marked verified skip the password
// check; everything else must match the stored hash. An impersonation
// target must exist, be enabled, and list the authenticated user among
// its impersonators.
func (r *Resolver) Resolve(ctx context.Context, info auth.Info) (*auth.Identity, error) {
	creds := info.Credentials

	if info.Anonymous {
		return &auth.Identity{
			Principal: creds.User,
			Anonymous: true,
			AuthType:  creds.AuthType,
		}, nil
	}

	user, err := r.lookup.User(ctx, creds.User)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("%w: unknown user %q", auth.ErrInvalidCredentials, creds.User)
		}
		return nil, err
	}

	if user.Disabled {
		return nil, fmt.Errorf("%w: user %q is disabled", auth.ErrInvalidCredentials, user.Name)
	}

	if !creds.Verified {
		ok, err := password.Verify(creds.Password, user.PasswordHash)
		if err != nil || !ok {
			return nil, fmt.Errorf("%w: password mismatch for %q", auth.ErrInvalidCredentials, user.Name)
		}
	}

	id := &auth.Identity{
		Principal:  user.Name,
		AuthType:   creds.AuthType,
		Attributes: user.Attributes,
		Session:    user,
	}

	if info.Sudo != "" {
		target, err := r.lookup.User(ctx, info.Sudo)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return nil, fmt.Errorf("%w: unknown target %q", auth.ErrInvalidImpersonation, info.Sudo)
			}
			return nil, err
		}
		if target.Disabled {
			return nil, fmt.Errorf("%w: target %q is disabled", auth.ErrInvalidImpersonation, target.Name)
		}
		if !target.AllowsImpersonation(user.Name) {
			return nil, fmt.Errorf("%w: %q may not act as %q", auth.ErrInvalidImpersonation, user.Name, target.Name)
		}
		id.Principal = target.Name
		id.Impersonator = user.Name
		id.Attributes = target.Attributes
		id.Session = target
	}

	return id, nil
}
