// Package bearer provides an authentication handler that validates
// JWT bearer tokens, either against a shared HMAC secret or against a
// JWKS (JSON Web Key Set) endpoint.
//
// It supports configurable issuer, audience, and custom claim
// extraction for the subject and scopes.
package bearer

import (
	"crypto/rsa"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/francescomari/portier/pkg/auth"
)

// Config holds the bearer handler configuration. Exactly one of Secret
// and JWKSURL must be set.
type Config struct {
	// Secret enables HMAC validation (HS256/384/512) with this key.
	Secret string

	// JWKSURL enables RSA validation (RS256/384/512) with keys fetched
	// from this JSON Web Key Set endpoint.
	JWKSURL string

	// Issuer is the expected JWT issuer (iss claim). If empty, issuer is not validated.
	Issuer string

	// Audience is the expected JWT audience (aud claim). If empty, audience is not validated.
	Audience string

	// UserClaim is the JWT claim used as the principal. Default: "sub".
	UserClaim string

	// ScopesClaim is the JWT claim used for authorization scopes. Default: "scope".
	// The value can be a space-separated string or a JSON array.
	ScopesClaim string

	// Realm is advertised in challenges. Default: "Portier".
	Realm string

	// CacheTTL controls how long JWKS keys are cached. Default: 1 hour.
	CacheTTL time.Duration

	// HTTPClient allows injecting a custom HTTP client (useful for testing).
	// If nil, http.DefaultClient is used.
	HTTPClient *http.Client
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.UserClaim == "" {
		c.UserClaim = "sub"
	}
	if c.ScopesClaim == "" {
		c.ScopesClaim = "scope"
	}
	if c.Realm == "" {
		c.Realm = "Portier"
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 1 * time.Hour
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
}

// Handler validates JWT bearer tokens.
type Handler struct {
	config Config
	keys   *jwksCache // nil in HMAC mode
}

var _ auth.Handler = (*Handler)(nil)

// New creates a bearer handler with the given configuration.
func New(cfg Config) (*Handler, error) {
	if (cfg.Secret == "") == (cfg.JWKSURL == "") {
		return nil, fmt.Errorf("bearer: exactly one of secret and jwks url must be set")
	}
	cfg.applyDefaults()

	h := &Handler{config: cfg}
	if cfg.JWKSURL != "" {
		h.keys = &jwksCache{
			keys:    make(map[string]*rsa.PublicKey),
			ttl:     cfg.CacheTTL,
			jwksURL: cfg.JWKSURL,
			client:  cfg.HTTPClient,
		}
	}
	return h, nil
}

// Extract validates the bearer token in the Authorization header.
//
// Outcomes:
//   - Abstain: no Authorization header or not a Bearer scheme
//   - Deny: bearer token present but invalid (expired, wrong issuer, bad signature)
//   - Accept: valid token; credentials are marked verified so the
//     resolver skips the password check
func (h *Handler) Extract(_ http.ResponseWriter, r *http.Request) auth.Result {
	header := r.Header.Get("Authorization")
	if header == "" {
		return auth.Result{Decision: auth.Abstain}
	}

	scheme, tokenStr, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "bearer") {
		return auth.Result{Decision: auth.Abstain}
	}

	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return auth.Result{Decision: auth.Deny, Reason: "empty bearer token"}
	}

	token, err := jwtlib.Parse(tokenStr, h.keyFunc(r), h.parserOptions()...)
	if err != nil {
		slog.Debug("bearer token rejected", "error", err)
		return auth.Result{Decision: auth.Deny, Reason: "invalid bearer token"}
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok || !token.Valid {
		return auth.Result{Decision: auth.Deny, Reason: "invalid bearer token"}
	}

	subject := claimString(claims, h.config.UserClaim)
	if subject == "" {
		return auth.Result{Decision: auth.Deny, Reason: "token missing subject"}
	}

	creds := &auth.Credentials{
		User:     subject,
		AuthType: "bearer",
		Verified: true,
	}
	if scopes := extractScopes(claims, h.config.ScopesClaim); len(scopes) > 0 {
		creds.Attributes = map[string]string{"scopes": strings.Join(scopes, " ")}
	}

	return auth.Result{Decision: auth.Accept, Credentials: creds}
}

// Challenge sends a 401 with a bearer WWW-Authenticate header. The
// error attribute is included when a rejection reason is known.
func (h *Handler) Challenge(w http.ResponseWriter, r *http.Request) bool {
	value := fmt.Sprintf("Bearer realm=%q", h.config.Realm)
	if auth.ReasonFromContext(r.Context()) != "" {
		value += `, error="invalid_token"`
	}
	w.Header().Set("WWW-Authenticate", value)
	w.WriteHeader(http.StatusUnauthorized)
	return true
}

// keyFunc returns the key lookup for the configured validation mode.
func (h *Handler) keyFunc(r *http.Request) jwtlib.Keyfunc {
	if h.keys == nil {
		return func(token *jwtlib.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwtlib.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(h.config.Secret), nil
		}
	}

	return func(token *jwtlib.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwtlib.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("token missing kid header")
		}

		key, err := h.keys.key(r.Context(), kid)
		if err != nil {
			return nil, fmt.Errorf("fetching JWKS key for kid %q: %w", kid, err)
		}
		return key, nil
	}
}

// parserOptions builds JWT parser options based on the configuration.
func (h *Handler) parserOptions() []jwtlib.ParserOption {
	methods := []string{"HS256", "HS384", "HS512"}
	if h.keys != nil {
		methods = []string{"RS256", "RS384", "RS512"}
	}

	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods(methods),
	}

	if h.config.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(h.config.Issuer))
	}

	if h.config.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(h.config.Audience))
	}

	return opts
}

// claimString extracts a string value from JWT claims.
// Returns empty string if the claim is missing or not a string.
func claimString(claims jwtlib.MapClaims, key string) string {
	val, ok := claims[key]
	if !ok {
		return ""
	}
	s, ok := val.(string)
	if !ok {
		return ""
	}
	return s
}

// extractScopes extracts scopes from JWT claims.
// The scope claim can be either a space-separated string or a JSON array.
func extractScopes(claims jwtlib.MapClaims, key string) []string {
	val, ok := claims[key]
	if !ok {
		return nil
	}

	if s, ok := val.(string); ok {
		parts := strings.Fields(s)
		if len(parts) == 0 {
			return nil
		}
		return parts
	}

	if arr, ok := val.([]interface{}); ok {
		var scopes []string
		for _, item := range arr {
			if s, ok := item.(string); ok {
				scopes = append(scopes, s)
			}
		}
		if len(scopes) == 0 {
			return nil
		}
		return scopes
	}

	return nil
}
