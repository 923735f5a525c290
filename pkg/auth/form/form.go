// Package form implements form-based login backed by a session store.
//
// A POST to the login path carrying j_username and j_password is an
// explicit login. On success the handler opens a session and hands the
// client a session cookie; later requests authenticate through that
// cookie alone. Challenges redirect to the login page, carrying the
// original resource and the failure reason as query parameters.
package form

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/francescomari/portier/pkg/auth"
	"github.com/francescomari/portier/pkg/session"
)

const (
	usernameParameter = "j_username"
	passwordParameter = "j_password"
	reasonParameter   = "j_reason"
	resourceParameter = "resource"

	defaultLoginPath  = "/login"
	defaultCookieName = "portier.session"
	defaultTTL        = 12 * time.Hour
)

// Config holds the form handler settings.
type Config struct {
	// LoginPath is the path of the login page and login action
	// (default: /login).
	LoginPath string

	// CookieName is the name of the session cookie (default:
	// portier.session).
	CookieName string

	// TTL is the session lifetime (default: 12h).
	TTL time.Duration

	// Secure marks the session cookie as HTTPS-only.
	Secure bool
}

func (c *Config) defaults() {
	if c.LoginPath == "" {
		c.LoginPath = defaultLoginPath
	}
	if c.CookieName == "" {
		c.CookieName = defaultCookieName
	}
	if c.TTL == 0 {
		c.TTL = defaultTTL
	}
}

// Handler authenticates requests through login forms and session
// cookies.
type Handler struct {
	config Config
	store  session.Store
}

var (
	_ auth.Handler            = (*Handler)(nil)
	_ auth.Feedback           = (*Handler)(nil)
	_ auth.CredentialsDropper = (*Handler)(nil)
)

// New creates a form handler persisting sessions in store.
func New(config Config, store session.Store) (*Handler, error) {
	if store == nil {
		return nil, errors.New("form: session store is required")
	}
	config.defaults()
	return &Handler{config: config, store: store}, nil
}

// Extract recognizes login form submissions and session cookies.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) auth.Result {
	if r.Method == http.MethodPost && r.URL.Path == h.config.LoginPath {
		return h.extractLogin(w, r)
	}

	cookie, err := r.Cookie(h.config.CookieName)
	if err != nil {
		return auth.Result{Decision: auth.Abstain}
	}

	sess, err := h.store.Get(r.Context(), cookie.Value)
	if errors.Is(err, session.ErrNotFound) {
		h.clearCookie(w)
		return auth.Result{Decision: auth.Deny, Reason: "session expired"}
	}
	if err != nil {
		// Keep the cookie: the session may still exist once the
		// store recovers.
		slog.Warn("session lookup failed", "error", err)
		return auth.Result{Decision: auth.Deny, Reason: "session unavailable"}
	}

	return auth.Result{
		Decision: auth.Accept,
		Credentials: &auth.Credentials{
			User:       sess.User,
			AuthType:   "form",
			Verified:   true,
			Attributes: map[string]string{"session": sess.ID},
		},
	}
}

// extractLogin handles a POST to the login path.
func (h *Handler) extractLogin(w http.ResponseWriter, r *http.Request) auth.Result {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return auth.Result{Decision: auth.Handled}
	}

	user := r.PostForm.Get(usernameParameter)
	pass := r.PostForm.Get(passwordParameter)
	if user == "" || pass == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return auth.Result{Decision: auth.Handled}
	}

	return auth.Result{
		Decision: auth.Accept,
		Credentials: &auth.Credentials{
			User:     user,
			Password: pass,
			AuthType: "form",
		},
		Login: true,
	}
}

// Challenge redirects to the login page, carrying the original
// resource and the failure reason. Requests for the login page itself
// are left alone so the page can render.
func (h *Handler) Challenge(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet && r.URL.Path == h.config.LoginPath {
		return false
	}

	h.redirectToLogin(w, r, r.URL.RequestURI(), auth.ReasonFromContext(r.Context()))
	return true
}

// Succeeded opens a session for the authenticated user and sets the
// session cookie. The engine calls it after a successful login.
func (h *Handler) Succeeded(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	// Sessions track the authenticated user, not the impersonation
	// target; impersonation travels in its own cookie.
	user := id.Principal
	if id.Impersonator != "" {
		user = id.Impersonator
	}

	sess, err := h.store.Create(r.Context(), user, h.config.TTL)
	if err != nil {
		slog.Error("creating session", "user", user, "error", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.config.CookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Failed sends a failed login back to the login page with the reason.
// Other failures fall through to the regular challenge.
func (h *Handler) Failed(w http.ResponseWriter, r *http.Request, reason string) bool {
	if r.Method != http.MethodPost || r.URL.Path != h.config.LoginPath {
		return false
	}

	h.redirectToLogin(w, r, r.PostForm.Get(resourceParameter), reason)
	return true
}

// Drop closes the session and clears the cookie.
func (h *Handler) Drop(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.config.CookieName)
	if err != nil {
		return
	}

	if err := h.store.Delete(r.Context(), cookie.Value); err != nil {
		slog.Warn("deleting session", "error", err)
	}

	h.clearCookie(w)
}

func (h *Handler) redirectToLogin(w http.ResponseWriter, r *http.Request, resource, reason string) {
	query := url.Values{}
	if resource != "" && resource != h.config.LoginPath {
		query.Set(resourceParameter, resource)
	}
	if reason != "" {
		query.Set(reasonParameter, reason)
	}

	target := h.config.LoginPath
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.config.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
