package auth

import "net/http"

// Decision classifies the outcome of a credential extraction attempt.
type Decision int

const (
	// Abstain means the handler does not apply to this request.
	// The pipeline continues with the next handler.
	Abstain Decision = iota

	// Accept means the handler extracted credentials.
	Accept

	// Deny means the handler recognized the request but rejected the
	// credential material. The pipeline stops and a challenge follows.
	Deny

	// Handled means the handler is mid-handshake and has written the
	// response itself. The engine performs no further action.
	Handled
)

// String returns the lowercase name of the decision.
func (d Decision) String() string {
	switch d {
	case Abstain:
		return "abstain"
	case Accept:
		return "accept"
	case Deny:
		return "deny"
	case Handled:
		return "handled"
	}
	return "unknown"
}

// Credentials is the material a handler extracted from a request.
type Credentials struct {
	// User is the principal the credentials claim to be.
	User string

	// Password is the secret material, if any.
	Password string

	// AuthType names the scheme that produced the credentials
	// ("basic", "form", "bearer").
	AuthType string

	// Verified marks credentials whose secret the handler has already
	// proven, such as a live session or a validated token signature.
	// The resolver accepts the principal without a password check.
	Verified bool

	// Attributes carries handler-specific hints for the resolver.
	Attributes map[string]string
}

// Result is a handler's answer to an extraction attempt.
type Result struct {
	Decision Decision

	// Credentials is populated only when Decision is Accept.
	Credentials *Credentials

	// Reason describes a Deny in terms fit for logs and the j_reason
	// diagnostic.
	Reason string

	// Login marks an explicit login action, such as a submitted login
	// form. On success the handler's feedback hook is notified.
	Login bool
}

// Info is the authentication record threaded from extraction to
// resolution. Post-processors receive it by value and return a
// replacement; it is never mutated in place.
type Info struct {
	// Credentials as produced by extraction.
	Credentials *Credentials

	// Sudo is the impersonation target, when an override requested one.
	Sudo string

	// Login mirrors Result.Login.
	Login bool

	// Anonymous marks the synthesized fallback credentials.
	Anonymous bool
}

// Identity is the resolved acting identity of a request.
type Identity struct {
	// Principal is the effective user: the impersonation target when
	// impersonation is active, the authenticated user otherwise.
	Principal string

	// Impersonator is the authenticated user behind an active
	// impersonation, empty otherwise.
	Impersonator string

	// Anonymous marks the configured fallback identity.
	Anonymous bool

	// AuthType names the scheme that authenticated the request.
	AuthType string

	// Attributes carries resolver-specific data about the principal.
	Attributes map[string]string

	// Session is an optional resolver handle, opaque to the engine.
	Session any
}

// PathRule scopes a handler to a part of the request space. A rule
// matches when the request path starts with Prefix and, if HostPort is
// set, the request's Host header equals it exactly.
type PathRule struct {
	Prefix   string
	HostPort string
}

// Handler extracts credentials from requests and issues challenges.
//
// Extract receives the response writer because a handler may take over
// the exchange (Handled): multi-step schemes write their own interim
// response. Challenge asks the handler to request credentials from the
// client; it returns true when it wrote a challenge response.
type Handler interface {
	Extract(w http.ResponseWriter, r *http.Request) Result
	Challenge(w http.ResponseWriter, r *http.Request) bool
}

// Feedback lets a handler observe the outcome of resolving credentials
// it extracted. Handlers implement it in addition to Handler.
//
// Succeeded runs after a login-marked extraction resolved. Failed runs
// after any resolution failure; returning true means the handler wrote
// the response and no challenge should follow.
type Feedback interface {
	Succeeded(w http.ResponseWriter, r *http.Request, id *Identity)
	Failed(w http.ResponseWriter, r *http.Request, reason string) bool
}

// CredentialsDropper is implemented by handlers that can discard the
// client-side state they established, such as a session cookie.
type CredentialsDropper interface {
	Drop(w http.ResponseWriter, r *http.Request)
}

// PostProcessor inspects or rewrites extracted authentication info
// before resolution. Returning an error vetoes the request; the error
// text becomes the challenge reason.
type PostProcessor interface {
	Process(r *http.Request, info Info) (Info, error)
}
