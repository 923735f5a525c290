package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/francescomari/portier/pkg/observability"
)

// Request parameter names understood by the engine.
const (
	// validateParameter short-circuits the workflow: credentials are
	// checked and acknowledged (or refused) without any challenge.
	validateParameter = "j_validate"
)

// reasonHeader carries the challenge reason on engine-authored
// responses for clients that never see a login page.
const reasonHeader = "X-Reason"

const defaultRealm = "Portier"

// Config holds the engine settings.
type Config struct {
	// Realm is advertised in basic challenges. Default: "Portier".
	Realm string

	// BasicFallback enables the built-in basic-auth handler as the
	// last extraction and challenge step.
	BasicFallback bool

	// AnonymousUser and AnonymousPassword are the credentials
	// synthesized when no handler produced any.
	AnonymousUser     string
	AnonymousPassword string

	// SudoCookie is the impersonation cookie name.
	// Default: "sling.sudo".
	SudoCookie string

	// SudoParameter is the impersonation request parameter name.
	// Default: "sudo".
	SudoParameter string

	// SudoDisabled turns impersonation handling off entirely.
	SudoDisabled bool

	// ResolveTimeout bounds a single resolver call. Default: 10s.
	ResolveTimeout time.Duration
}

// defaults fills empty fields with their default values.
func (c *Config) defaults() {
	if c.Realm == "" {
		c.Realm = defaultRealm
	}
	if c.AnonymousUser == "" {
		c.AnonymousUser = "anonymous"
	}
	if c.SudoCookie == "" {
		c.SudoCookie = "sling.sudo"
	}
	if c.SudoParameter == "" {
		c.SudoParameter = "sudo"
	}
	if c.ResolveTimeout == 0 {
		c.ResolveTimeout = 10 * time.Second
	}
}

// Engine drives the authentication workflow: extraction,
// post-processing, impersonation, resolution, and the challenge path.
type Engine struct {
	cfg      Config
	registry *Registry
	resolver Resolver
	fallback *BasicHandler
	log      *slog.Logger
}

// New creates an engine. The resolver is required; a nil registry gets
// replaced by an empty one and a nil logger by slog.Default().
func New(cfg Config, reg *Registry, res Resolver, log *slog.Logger) (*Engine, error) {
	if res == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if reg == nil {
		reg = NewRegistry()
	}
	if log == nil {
		log = slog.Default()
	}
	cfg.defaults()

	return &Engine{
		cfg:      cfg,
		registry: reg,
		resolver: res,
		fallback: &BasicHandler{Realm: cfg.Realm},
		log:      log,
	}, nil
}

// Registry returns the handler registry the engine reads from.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Authenticate determines the acting identity for the request.
//
// On success it returns the request with the identity attached to its
// context and true. False means the response has already been written:
// a handler took over the exchange, a challenge went out, or a
// validation request was acknowledged.
func (e *Engine) Authenticate(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	return e.run(w, r, false)
}

// Login behaves like Authenticate but does not accept the anonymous
// outcome: a request without credentials is challenged.
func (e *Engine) Login(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	return e.run(w, r, true)
}

// Middleware wraps a handler so that it only runs for requests the
// engine resolved to an identity.
func (e *Engine) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r2, ok := e.Authenticate(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r2)
	})
}

// Logout asks every matching handler that can drop credentials to do
// so, clears the impersonation cookie, and responds 204. Droppers must
// not write the response body; they only adjust client-side state.
func (e *Engine) Logout(w http.ResponseWriter, r *http.Request) {
	snap := e.registry.Snapshot()

	for _, entry := range snap.Match(r) {
		if d, ok := entry.Handler.(CredentialsDropper); ok {
			d.Drop(w, r)
		}
	}

	if !e.cfg.SudoDisabled {
		if _, err := r.Cookie(e.cfg.SudoCookie); err == nil {
			http.SetCookie(w, &http.Cookie{
				Name:     e.cfg.SudoCookie,
				Value:    "",
				Path:     "/",
				MaxAge:   -1,
				HttpOnly: true,
			})
		}
	}

	e.log.Debug("credentials dropped", "path", r.URL.Path)
	w.WriteHeader(http.StatusNoContent)
}

// run is the dispatcher state machine shared by Authenticate and Login.
func (e *Engine) run(w http.ResponseWriter, r *http.Request, requireCredentials bool) (*http.Request, bool) {
	// A pre-set identity short-circuits the whole workflow.
	if id := IdentityFromContext(r.Context()); id != nil {
		return r, true
	}

	snap := e.registry.Snapshot()
	ex := e.extract(w, r, snap)

	switch ex.Decision {
	case Handled:
		// The handler owns the response.
		e.log.Debug("handler took over the exchange",
			"handler", ex.HandlerID, "path", r.URL.Path)
		observability.AuthenticationsTotal.WithLabelValues("handled", ex.HandlerID).Inc()
		return nil, false

	case Deny:
		e.log.Warn("credentials rejected",
			"handler", ex.HandlerID, "path", r.URL.Path, "reason", ex.Reason)
		observability.AuthenticationsTotal.WithLabelValues("denied", ex.HandlerID).Inc()
		e.challenge(w, r, snap, ex.Reason)
		return nil, false
	}

	if ex.Credentials == nil {
		e.log.Error("handler accepted without credentials", "handler", ex.HandlerID)
		observability.AuthenticationsTotal.WithLabelValues("failed", ex.HandlerID).Inc()
		e.challenge(w, r, snap, "internal authentication error")
		return nil, false
	}

	info := Info{
		Credentials: ex.Credentials,
		Login:       ex.Login,
		Anonymous:   ex.Anonymous,
	}

	info, err := runPostProcessors(r, snap, info)
	if err != nil {
		e.log.Warn("authentication info rejected",
			"user", info.Credentials.User, "path", r.URL.Path, "error", err)
		observability.AuthenticationsTotal.WithLabelValues("rejected", ex.HandlerID).Inc()
		e.challenge(w, r, snap, err.Error())
		return nil, false
	}

	// Impersonation applies to real credentials only, never to the
	// synthesized anonymous ones.
	if !info.Anonymous {
		info = e.resolveSudo(r, info)
	}

	id, err := e.resolve(r.Context(), info)
	if err != nil {
		reason := failureReason(err)
		e.log.Warn("identity resolution failed",
			"user", info.Credentials.User, "sudo", info.Sudo, "path", r.URL.Path, "error", err)
		observability.AuthenticationsTotal.WithLabelValues("failed", ex.HandlerID).Inc()

		if ex.Feedback != nil && ex.Feedback.Failed(w, r, reason) {
			return nil, false
		}
		e.challenge(w, r, snap, reason)
		return nil, false
	}

	if id.Anonymous {
		if requireCredentials {
			observability.AuthenticationsTotal.WithLabelValues("denied", ex.HandlerID).Inc()
			e.challenge(w, r, snap, "authentication required")
			return nil, false
		}
		e.log.Debug("request continues anonymously", "path", r.URL.Path)
		observability.AuthenticationsTotal.WithLabelValues("anonymous", ex.HandlerID).Inc()
		return r.WithContext(SetIdentity(r.Context(), id)), true
	}

	// Success side effects, in this order: impersonation cookie,
	// login feedback, identity attachment, validation acknowledgement.
	e.refreshSudoCookie(w, r, id)

	if ex.Feedback != nil && info.Login {
		ex.Feedback.Succeeded(w, r, id)
	}

	r = r.WithContext(SetIdentity(r.Context(), id))

	e.log.Debug("authentication succeeded",
		"principal", id.Principal, "impersonator", id.Impersonator,
		"auth_type", id.AuthType, "path", r.URL.Path)
	observability.AuthenticationsTotal.WithLabelValues("succeeded", ex.HandlerID).Inc()

	if isValidateRequest(r) {
		w.WriteHeader(http.StatusOK)
		return nil, false
	}

	return r, true
}

// resolve calls the resolver under the configured timeout and maps a
// deadline exhaustion to ErrBackendUnavailable.
func (e *Engine) resolve(ctx context.Context, info Info) (*Identity, error) {
	if e.cfg.ResolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ResolveTimeout)
		defer cancel()
	}

	start := time.Now()
	id, err := e.resolver.Resolve(ctx, info)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	observability.ResolveDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: resolve timed out after %s", ErrBackendUnavailable, e.cfg.ResolveTimeout)
		}
		return nil, err
	}
	if id == nil {
		return nil, fmt.Errorf("%w: resolver returned no identity", ErrInvalidCredentials)
	}
	return id, nil
}

// failureReason maps a resolution error to a stable diagnostic string.
// Internal detail stays in the logs.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid credentials"
	case errors.Is(err, ErrInvalidImpersonation):
		return "impersonation not allowed"
	case errors.Is(err, ErrBackendUnavailable):
		return "identity backend unavailable"
	}
	return err.Error()
}

// isValidateRequest reports whether the request only wants its
// credentials checked. Only the query and an already parsed form body
// are consulted; the engine never reads the body itself.
func isValidateRequest(r *http.Request) bool {
	if r.URL.Query().Get(validateParameter) == "true" {
		return true
	}
	if r.PostForm != nil && r.PostForm.Get(validateParameter) == "true" {
		return true
	}
	return false
}
