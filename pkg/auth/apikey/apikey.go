// Package apikey provides an authentication handler that validates
// static API keys carried in the X-API-Key header, using SHA-256
// hashing and constant-time comparison.
//
// API keys cannot be requested interactively, so the handler never
// issues a challenge; the engine falls through to the next handler in
// line.
package apikey

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"github.com/francescomari/portier/pkg/auth"
)

// headerName is the request header carrying the API key.
const headerName = "X-API-Key"

// Key is the configuration format for a single API key.
type Key struct {
	// Key is the plaintext key material.
	Key string

	// User is the principal the key authenticates as.
	User string
}

type keyEntry struct {
	hash [32]byte
	user string
}

// Handler validates API keys against a static key set.
type Handler struct {
	keys []keyEntry
}

var _ auth.Handler = (*Handler)(nil)

// New creates an API key handler from a list of keys. Keys are hashed
// immediately; plaintext keys are not stored.
func New(keys []Key) *Handler {
	h := &Handler{}
	for _, k := range keys {
		h.keys = append(h.keys, keyEntry{
			hash: sha256.Sum256([]byte(k.Key)),
			user: k.User,
		})
	}
	return h
}

// Extract validates the X-API-Key header. Requests without the header
// pass through; an unknown key is denied.
func (h *Handler) Extract(_ http.ResponseWriter, r *http.Request) auth.Result {
	key := r.Header.Get(headerName)
	if key == "" {
		return auth.Result{Decision: auth.Abstain}
	}

	keyHash := sha256.Sum256([]byte(key))

	for _, entry := range h.keys {
		if subtle.ConstantTimeCompare(keyHash[:], entry.hash[:]) == 1 {
			return auth.Result{
				Decision: auth.Accept,
				Credentials: &auth.Credentials{
					User:     entry.user,
					AuthType: "apikey",
					Verified: true,
				},
			}
		}
	}

	return auth.Result{Decision: auth.Deny, Reason: "unknown api key"}
}

// Challenge reports that API keys cannot be requested from the client.
func (h *Handler) Challenge(_ http.ResponseWriter, _ *http.Request) bool {
	return false
}
