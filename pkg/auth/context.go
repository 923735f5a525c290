package auth

import "context"

// identityKey is a private type for the identity context key.
type identityKey struct{}

// reasonKey is a private type for the challenge reason context key.
type reasonKey struct{}

// SetIdentity stores the resolved identity in the context. A request
// carrying an identity skips the authentication workflow entirely.
func SetIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext retrieves the resolved identity.
// Returns nil if no identity is set.
func IdentityFromContext(ctx context.Context) *Identity {
	if v, ok := ctx.Value(identityKey{}).(*Identity); ok {
		return v
	}
	return nil
}

// SetReason records the diagnostic reason that sent a request into the
// challenge workflow. The engine sets it before invoking handler
// challenges so login pages can explain the failure.
func SetReason(ctx context.Context, reason string) context.Context {
	return context.WithValue(ctx, reasonKey{}, reason)
}

// ReasonFromContext retrieves the challenge reason, or an empty string.
func ReasonFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(reasonKey{}).(string); ok {
		return v
	}
	return ""
}
