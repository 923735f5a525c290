// Package auth implements a pluggable request-authentication engine.
//
// Credential extraction runs a chain of path-scoped handlers with
// four-outcome results: a handler returns Accept (credentials found),
// Deny (credentials present but rejected), Handled (the handler owns
// the response), or Abstain (does not apply). The most specific
// matching handler that does not abstain wins; a built-in basic-auth
// fallback and the configured anonymous identity close the chain.
//
// Extracted credentials pass through registered post-processors, an
// impersonation override (cookie or request parameter), and a pluggable
// Resolver that turns them into an Identity. Every failure along the
// way routes into the challenge workflow, which picks between protocol
// status codes and handler-issued challenges.
//
// The engine is exposed as HTTP middleware and keeps the resolved
// identity in the request context.
package auth
