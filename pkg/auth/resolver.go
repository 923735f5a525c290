package auth

import (
	"context"
	"errors"
)

// Resolver turns extracted authentication info into a concrete
// identity, or reports why it could not. Implementations may perform
// I/O and must honor the context deadline; the engine bounds each call
// with its configured resolve timeout.
//
// Failures are reported through the sentinel errors below, wrapped
// with additional detail where useful. The engine routes every failure
// into the challenge workflow and keeps the kind only for diagnostics.
type Resolver interface {
	Resolve(ctx context.Context, info Info) (*Identity, error)
}

// Sentinel errors for resolution failures.
var (
	// ErrInvalidCredentials is returned when the principal is unknown,
	// disabled, or the secret does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidImpersonation is returned when the requested
	// impersonation target does not exist or the authenticated user
	// is not allowed to act as it.
	ErrInvalidImpersonation = errors.New("impersonation not allowed")

	// ErrBackendUnavailable is returned when the identity backend
	// cannot be reached or times out.
	ErrBackendUnavailable = errors.New("identity backend unavailable")
)
