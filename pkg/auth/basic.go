package auth

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// fallbackHandlerID identifies the built-in basic handler in logs and
// metrics.
const fallbackHandlerID = "basic"

// BasicHandler authenticates requests carrying an RFC 7617 basic
// authorization header and issues basic challenges.
//
// The engine uses one instance as its configurable fallback. It can
// also be registered like any other handler to scope basic auth to a
// path.
type BasicHandler struct {
	// Realm is advertised in challenges. Empty means the default realm.
	Realm string
}

var _ Handler = (*BasicHandler)(nil)

// Extract decodes the Authorization header. Requests without a basic
// header pass through; a present but malformed header is denied.
func (h *BasicHandler) Extract(_ http.ResponseWriter, r *http.Request) Result {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Result{Decision: Abstain}
	}

	scheme, rest, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "basic") {
		return Result{Decision: Abstain}
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(rest))
	if err != nil {
		return Result{Decision: Deny, Reason: "malformed authorization header"}
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok || user == "" {
		return Result{Decision: Deny, Reason: "malformed authorization header"}
	}

	return Result{
		Decision:    Accept,
		Credentials: &Credentials{User: user, Password: pass, AuthType: "basic"},
	}
}

// Challenge sends a 401 with a basic WWW-Authenticate header.
func (h *BasicHandler) Challenge(w http.ResponseWriter, _ *http.Request) bool {
	realm := h.Realm
	if realm == "" {
		realm = defaultRealm
	}
	w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", realm))
	w.WriteHeader(http.StatusUnauthorized)
	return true
}
