package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

// fakeHandler is a scriptable handler for tests. Extract always
// returns the configured result; Challenge writes a 401 when told to.
type fakeHandler struct {
	result     Result
	challenges bool

	extractCount   int
	challengeCount int
}

func (h *fakeHandler) Extract(_ http.ResponseWriter, _ *http.Request) Result {
	h.extractCount++
	return h.result
}

func (h *fakeHandler) Challenge(w http.ResponseWriter, _ *http.Request) bool {
	h.challengeCount++
	if h.challenges {
		w.Header().Set("WWW-Authenticate", `Fake realm="test"`)
		w.WriteHeader(http.StatusUnauthorized)
	}
	return h.challenges
}

// feedbackHandler adds the feedback hooks to fakeHandler.
type feedbackHandler struct {
	fakeHandler

	consumeFailure bool
	succeededCount int
	failedReason   string
}

func (h *feedbackHandler) Succeeded(_ http.ResponseWriter, _ *http.Request, _ *Identity) {
	h.succeededCount++
}

func (h *feedbackHandler) Failed(w http.ResponseWriter, _ *http.Request, reason string) bool {
	h.failedReason = reason
	if h.consumeFailure {
		w.WriteHeader(http.StatusSeeOther)
	}
	return h.consumeFailure
}

// dropperHandler adds credential dropping to fakeHandler.
type dropperHandler struct {
	fakeHandler

	dropCount int
}

func (h *dropperHandler) Drop(_ http.ResponseWriter, _ *http.Request) {
	h.dropCount++
}

// resolverFunc adapts a function to the Resolver interface.
type resolverFunc func(ctx context.Context, info Info) (*Identity, error)

func (f resolverFunc) Resolve(ctx context.Context, info Info) (*Identity, error) {
	return f(ctx, info)
}

// testResolver resolves the fixed account alice/secret, grants alice
// impersonation of bob, and passes anonymous info through.
func testResolver() Resolver {
	return resolverFunc(func(_ context.Context, info Info) (*Identity, error) {
		if info.Anonymous {
			return &Identity{
				Principal: info.Credentials.User,
				Anonymous: true,
				AuthType:  info.Credentials.AuthType,
			}, nil
		}
		if info.Credentials.User != "alice" {
			return nil, fmt.Errorf("%w: unknown user", ErrInvalidCredentials)
		}
		if !info.Credentials.Verified && info.Credentials.Password != "secret" {
			return nil, fmt.Errorf("%w: password mismatch", ErrInvalidCredentials)
		}
		if info.Sudo != "" {
			if info.Sudo != "bob" {
				return nil, fmt.Errorf("%w: %q", ErrInvalidImpersonation, info.Sudo)
			}
			return &Identity{
				Principal:    info.Sudo,
				Impersonator: info.Credentials.User,
				AuthType:     info.Credentials.AuthType,
			}, nil
		}
		return &Identity{
			Principal: info.Credentials.User,
			AuthType:  info.Credentials.AuthType,
		}, nil
	})
}

func newTestEngine(t *testing.T, cfg Config, reg *Registry, res Resolver) *Engine {
	t.Helper()
	if res == nil {
		res = testResolver()
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e, err := New(cfg, reg, res, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestNewRequiresResolver(t *testing.T) {
	if _, err := New(Config{}, nil, nil, nil); err == nil {
		t.Fatal("expected error for nil resolver")
	}
}

func TestConfigDefaults(t *testing.T) {
	e := newTestEngine(t, Config{}, nil, nil)

	if e.cfg.Realm != "Portier" {
		t.Errorf("Realm = %q, want %q", e.cfg.Realm, "Portier")
	}
	if e.cfg.AnonymousUser != "anonymous" {
		t.Errorf("AnonymousUser = %q, want %q", e.cfg.AnonymousUser, "anonymous")
	}
	if e.cfg.SudoCookie != "sling.sudo" {
		t.Errorf("SudoCookie = %q, want %q", e.cfg.SudoCookie, "sling.sudo")
	}
	if e.cfg.SudoParameter != "sudo" {
		t.Errorf("SudoParameter = %q, want %q", e.cfg.SudoParameter, "sudo")
	}
	if e.cfg.ResolveTimeout != 10*time.Second {
		t.Errorf("ResolveTimeout = %v, want %v", e.cfg.ResolveTimeout, 10*time.Second)
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	reg := NewRegistry()
	h := &fakeHandler{result: Result{
		Decision:    Accept,
		Credentials: &Credentials{User: "alice", Password: "secret", AuthType: "test"},
	}}
	reg.Register("test", h)

	e := newTestEngine(t, Config{}, reg, nil)

	req := httptest.NewRequest("GET", "/app/page", nil)
	rec := httptest.NewRecorder()

	r2, ok := e.Authenticate(rec, req)
	if !ok {
		t.Fatalf("Authenticate failed: status=%d body=%q", rec.Code, rec.Body.String())
	}

	id := IdentityFromContext(r2.Context())
	if id == nil {
		t.Fatal("no identity in request context")
	}
	if id.Principal != "alice" {
		t.Errorf("Principal = %q, want %q", id.Principal, "alice")
	}
	if id.Anonymous {
		t.Error("identity unexpectedly anonymous")
	}
	if id.AuthType != "test" {
		t.Errorf("AuthType = %q, want %q", id.AuthType, "test")
	}
}

func TestAuthenticatePresetIdentity(t *testing.T) {
	reg := NewRegistry()
	h := &fakeHandler{result: Result{Decision: Deny, Reason: "should not run"}}
	reg.Register("test", h)

	e := newTestEngine(t, Config{}, reg, nil)

	req := httptest.NewRequest("GET", "/app/page", nil)
	req = req.WithContext(SetIdentity(req.Context(), &Identity{Principal: "preset"}))
	rec := httptest.NewRecorder()

	r2, ok := e.Authenticate(rec, req)
	if !ok {
		t.Fatal("Authenticate failed for preset identity")
	}
	if h.extractCount != 0 {
		t.Errorf("extraction ran %d times, want 0", h.extractCount)
	}
	if id := IdentityFromContext(r2.Context()); id == nil || id.Principal != "preset" {
		t.Errorf("identity = %+v, want preset", id)
	}
}

func TestAuthenticateHandledStops(t *testing.T) {
	reg := NewRegistry()
	h := &fakeHandler{result: Result{Decision: Handled}}
	reg.Register("test", h)

	e := newTestEngine(t, Config{}, reg, nil)

	req := httptest.NewRequest("GET", "/app/page", nil)
	rec := httptest.NewRecorder()

	if _, ok := e.Authenticate(rec, req); ok {
		t.Fatal("Authenticate succeeded for a handled exchange")
	}
	// The engine must not add anything on top of the handler's response.
	if rec.Header().Get("WWW-Authenticate") != "" {
		t.Error("engine issued a challenge after Handled")
	}
}

func TestAuthenticateDenyChallenges(t *testing.T) {
	reg := NewRegistry()
	h := &fakeHandler{result: Result{Decision: Deny, Reason: "bad token"}}
	reg.Register("test", h)

	e := newTestEngine(t, Config{BasicFallback: true}, reg, nil)

	req := httptest.NewRequest("GET", "/app/page", nil)
	rec := httptest.NewRecorder()

	if _, ok := e.Authenticate(rec, req); ok {
		t.Fatal("Authenticate succeeded for denied credentials")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if got := rec.Header().Get("X-Reason"); got != "bad token" {
		t.Errorf("X-Reason = %q, want %q", got, "bad token")
	}
}

func TestAuthenticateAcceptWithoutCredentials(t *testing.T) {
	reg := NewRegistry()
	reg.Register("broken", &fakeHandler{result: Result{Decision: Accept}})

	e := newTestEngine(t, Config{}, reg, nil)

	req := httptest.NewRequest("GET", "/app/page", nil)
	rec := httptest.NewRecorder()

	if _, ok := e.Authenticate(rec, req); ok {
		t.Fatal("Authenticate succeeded on a credential-less accept")
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestAuthenticateAnonymous(t *testing.T) {
	e := newTestEngine(t, Config{}, NewRegistry(), nil)

	req := httptest.NewRequest("GET", "/app/page", nil)
	rec := httptest.NewRecorder()

	r2, ok := e.Authenticate(rec, req)
	if !ok {
		t.Fatalf("Authenticate failed: status=%d", rec.Code)
	}

	id := IdentityFromContext(r2.Context())
	if id == nil || !id.Anonymous {
		t.Fatalf("identity = %+v, want anonymous", id)
	}
	if id.Principal != "anonymous" {
		t.Errorf("Principal = %q, want %q", id.Principal, "anonymous")
	}
}

func TestLoginRejectsAnonymous(t *testing.T) {
	e := newTestEngine(t, Config{BasicFallback: true}, NewRegistry(), nil)

	req := httptest.NewRequest("GET", "/app/page", nil)
	rec := httptest.NewRecorder()

	if _, ok := e.Login(rec, req); ok {
		t.Fatal("Login succeeded without credentials")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if got := rec.Header().Get("X-Reason"); got != "authentication required" {
		t.Errorf("X-Reason = %q, want %q", got, "authentication required")
	}
}

func TestLoginAcceptsCredentials(t *testing.T) {
	e := newTestEngine(t, Config{BasicFallback: true}, NewRegistry(), nil)

	req := httptest.NewRequest("GET", "/app/page", nil)
	req.SetBasicAuth("alice", "secret")
	rec := httptest.NewRecorder()

	r2, ok := e.Login(rec, req)
	if !ok {
		t.Fatalf("Login failed: status=%d", rec.Code)
	}
	if id := IdentityFromContext(r2.Context()); id == nil || id.Principal != "alice" {
		t.Errorf("identity = %+v, want alice", id)
	}
}

func TestAuthenticateResolutionFailure(t *testing.T) {
	e := newTestEngine(t, Config{BasicFallback: true}, NewRegistry(), nil)

	req := httptest.NewRequest("GET", "/app/page", nil)
	req.SetBasicAuth("alice", "wrong")
	rec := httptest.NewRecorder()

	if _, ok := e.Authenticate(rec, req); ok {
		t.Fatal("Authenticate succeeded with a wrong password")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if got := rec.Header().Get("X-Reason"); got != "invalid credentials" {
		t.Errorf("X-Reason = %q, want %q", got, "invalid credentials")
	}
}

func TestAuthenticateFeedbackConsumesFailure(t *testing.T) {
	reg := NewRegistry()
	h := &feedbackHandler{
		fakeHandler: fakeHandler{result: Result{
			Decision:    Accept,
			Credentials: &Credentials{User: "alice", Password: "wrong", AuthType: "test"},
			Login:       true,
		}},
		consumeFailure: true,
	}
	reg.Register("test", h)

	e := newTestEngine(t, Config{BasicFallback: true}, reg, nil)

	req := httptest.NewRequest("POST", "/app/login", nil)
	rec := httptest.NewRecorder()

	if _, ok := e.Authenticate(rec, req); ok {
		t.Fatal("Authenticate succeeded with a wrong password")
	}
	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if h.failedReason != "invalid credentials" {
		t.Errorf("failure reason = %q, want %q", h.failedReason, "invalid credentials")
	}
	if rec.Header().Get("WWW-Authenticate") != "" {
		t.Error("challenge issued although feedback consumed the failure")
	}
}

func TestAuthenticateFeedbackDeclinesFailure(t *testing.T) {
	reg := NewRegistry()
	h := &feedbackHandler{
		fakeHandler: fakeHandler{result: Result{
			Decision:    Accept,
			Credentials: &Credentials{User: "nobody", AuthType: "test"},
		}},
	}
	reg.Register("test", h)

	e := newTestEngine(t, Config{BasicFallback: true}, reg, nil)

	req := httptest.NewRequest("GET", "/app/page", nil)
	rec := httptest.NewRecorder()

	if _, ok := e.Authenticate(rec, req); ok {
		t.Fatal("Authenticate succeeded for an unknown user")
	}
	if h.failedReason != "invalid credentials" {
		t.Errorf("failure reason = %q, want %q", h.failedReason, "invalid credentials")
	}
	// The handler declined, so the regular challenge went out.
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthenticateFeedbackSucceededOnLogin(t *testing.T) {
	tests := []struct {
		name          string
		login         bool
		wantSucceeded int
	}{
		{name: "login extraction", login: true, wantSucceeded: 1},
		{name: "regular extraction", login: false, wantSucceeded: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			h := &feedbackHandler{
				fakeHandler: fakeHandler{result: Result{
					Decision:    Accept,
					Credentials: &Credentials{User: "alice", Password: "secret", AuthType: "test"},
					Login:       tt.login,
				}},
			}
			reg.Register("test", h)

			e := newTestEngine(t, Config{}, reg, nil)

			req := httptest.NewRequest("POST", "/app/login", nil)
			rec := httptest.NewRecorder()

			if _, ok := e.Authenticate(rec, req); !ok {
				t.Fatalf("Authenticate failed: status=%d", rec.Code)
			}
			if h.succeededCount != tt.wantSucceeded {
				t.Errorf("Succeeded ran %d times, want %d", h.succeededCount, tt.wantSucceeded)
			}
		})
	}
}

func TestAuthenticateValidateRequest(t *testing.T) {
	e := newTestEngine(t, Config{BasicFallback: true}, NewRegistry(), nil)

	req := httptest.NewRequest("GET", "/app/page?j_validate=true", nil)
	req.SetBasicAuth("alice", "secret")
	rec := httptest.NewRecorder()

	if _, ok := e.Authenticate(rec, req); ok {
		t.Fatal("validation request continued past the engine")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
}

func TestAuthenticateValidateRequestFailure(t *testing.T) {
	e := newTestEngine(t, Config{BasicFallback: true}, NewRegistry(), nil)

	req := httptest.NewRequest("GET", "/app/page?j_validate=true", nil)
	req.SetBasicAuth("alice", "wrong")
	rec := httptest.NewRecorder()

	if _, ok := e.Authenticate(rec, req); ok {
		t.Fatal("validation request succeeded with a wrong password")
	}
	// Validation requests are refused outright, never challenged.
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if rec.Header().Get("WWW-Authenticate") != "" {
		t.Error("challenge issued for a validation request")
	}
	if got := rec.Header().Get("X-Reason"); got != "invalid credentials" {
		t.Errorf("X-Reason = %q, want %q", got, "invalid credentials")
	}
}

func TestAuthenticateAnonymousValidate(t *testing.T) {
	e := newTestEngine(t, Config{}, NewRegistry(), nil)

	req := httptest.NewRequest("GET", "/app/page?j_validate=true", nil)
	rec := httptest.NewRecorder()

	// Without credentials there is nothing to acknowledge; the request
	// continues anonymously.
	if _, ok := e.Authenticate(rec, req); !ok {
		t.Fatalf("anonymous validation request blocked: status=%d", rec.Code)
	}
}

func TestAuthenticateResolveTimeout(t *testing.T) {
	stuck := resolverFunc(func(ctx context.Context, _ Info) (*Identity, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	e := newTestEngine(t, Config{ResolveTimeout: 10 * time.Millisecond}, NewRegistry(), stuck)

	req := httptest.NewRequest("GET", "/app/page", nil)
	rec := httptest.NewRecorder()

	if _, ok := e.Authenticate(rec, req); ok {
		t.Fatal("Authenticate succeeded although the resolver hung")
	}
	if got := rec.Header().Get("X-Reason"); got != "identity backend unavailable" {
		t.Errorf("X-Reason = %q, want %q", got, "identity backend unavailable")
	}
}

func TestAuthenticateResolverReturnsNothing(t *testing.T) {
	empty := resolverFunc(func(_ context.Context, _ Info) (*Identity, error) {
		return nil, nil
	})

	e := newTestEngine(t, Config{}, NewRegistry(), empty)

	req := httptest.NewRequest("GET", "/app/page", nil)
	rec := httptest.NewRecorder()

	if _, ok := e.Authenticate(rec, req); ok {
		t.Fatal("Authenticate succeeded without an identity")
	}
	if got := rec.Header().Get("X-Reason"); got != "invalid credentials" {
		t.Errorf("X-Reason = %q, want %q", got, "invalid credentials")
	}
}

// TestImpersonationRoundTrip walks an impersonation session: start it
// with the request parameter, keep it alive through the cookie, end it
// with the disable value.
func TestImpersonationRoundTrip(t *testing.T) {
	e := newTestEngine(t, Config{BasicFallback: true}, NewRegistry(), nil)

	// Step 1: parameter starts the impersonation, cookie gets written.
	req := httptest.NewRequest("GET", "/app/page?sudo=bob", nil)
	req.SetBasicAuth("alice", "secret")
	rec := httptest.NewRecorder()

	r2, ok := e.Authenticate(rec, req)
	if !ok {
		t.Fatalf("impersonation request failed: status=%d", rec.Code)
	}
	id := IdentityFromContext(r2.Context())
	if id.Principal != "bob" || id.Impersonator != "alice" {
		t.Fatalf("identity = %+v, want bob impersonated by alice", id)
	}

	var sudoCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "sling.sudo" {
			sudoCookie = c
		}
	}
	if sudoCookie == nil {
		t.Fatal("no sling.sudo cookie written")
	}
	if sudoCookie.Value != "bob" {
		t.Errorf("cookie value = %q, want %q", sudoCookie.Value, "bob")
	}

	// Step 2: the cookie alone keeps the impersonation active, and the
	// engine does not rewrite an up-to-date cookie.
	req = httptest.NewRequest("GET", "/app/other", nil)
	req.SetBasicAuth("alice", "secret")
	req.AddCookie(&http.Cookie{Name: "sling.sudo", Value: sudoCookie.Value})
	rec = httptest.NewRecorder()

	r2, ok = e.Authenticate(rec, req)
	if !ok {
		t.Fatalf("cookie impersonation request failed: status=%d", rec.Code)
	}
	id = IdentityFromContext(r2.Context())
	if id.Principal != "bob" || id.Impersonator != "alice" {
		t.Fatalf("identity = %+v, want bob impersonated by alice", id)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Errorf("cookie rewritten although current: %v", rec.Result().Cookies())
	}

	// Step 3: the disable value ends the impersonation and clears the
	// cookie.
	req = httptest.NewRequest("GET", "/app/page?sudo=-", nil)
	req.SetBasicAuth("alice", "secret")
	req.AddCookie(&http.Cookie{Name: "sling.sudo", Value: sudoCookie.Value})
	rec = httptest.NewRecorder()

	r2, ok = e.Authenticate(rec, req)
	if !ok {
		t.Fatalf("disable request failed: status=%d", rec.Code)
	}
	id = IdentityFromContext(r2.Context())
	if id.Principal != "alice" || id.Impersonator != "" {
		t.Fatalf("identity = %+v, want plain alice", id)
	}

	var cleared *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "sling.sudo" {
			cleared = c
		}
	}
	if cleared == nil {
		t.Fatal("stale sling.sudo cookie not cleared")
	}
	if cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Errorf("cookie = %+v, want cleared", cleared)
	}
}

func TestAuthenticateImpersonationRejected(t *testing.T) {
	e := newTestEngine(t, Config{BasicFallback: true}, NewRegistry(), nil)

	req := httptest.NewRequest("GET", "/app/page?sudo=mallory", nil)
	req.SetBasicAuth("alice", "secret")
	rec := httptest.NewRecorder()

	if _, ok := e.Authenticate(rec, req); ok {
		t.Fatal("Authenticate succeeded for a forbidden impersonation")
	}
	if got := rec.Header().Get("X-Reason"); got != "impersonation not allowed" {
		t.Errorf("X-Reason = %q, want %q", got, "impersonation not allowed")
	}
}

func TestLogout(t *testing.T) {
	reg := NewRegistry()
	h := &dropperHandler{}
	reg.Register("test", h)

	e := newTestEngine(t, Config{}, reg, nil)

	req := httptest.NewRequest("POST", "/app/logout", nil)
	req.AddCookie(&http.Cookie{Name: "sling.sudo", Value: "bob"})
	rec := httptest.NewRecorder()

	e.Logout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if h.dropCount != 1 {
		t.Errorf("Drop ran %d times, want 1", h.dropCount)
	}

	var cleared *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "sling.sudo" {
			cleared = c
		}
	}
	if cleared == nil || cleared.MaxAge >= 0 {
		t.Errorf("sudo cookie not cleared on logout: %+v", cleared)
	}
}

func TestMiddleware(t *testing.T) {
	e := newTestEngine(t, Config{BasicFallback: true}, NewRegistry(), nil)

	var gotPrincipal string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := IdentityFromContext(r.Context()); id != nil {
			gotPrincipal = id.Principal
		}
		w.WriteHeader(http.StatusOK)
	})

	handler := e.Middleware(next)

	req := httptest.NewRequest("GET", "/app/page", nil)
	req.SetBasicAuth("alice", "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotPrincipal != "alice" {
		t.Errorf("principal seen by next handler = %q, want %q", gotPrincipal, "alice")
	}

	// A failed authentication never reaches the next handler.
	gotPrincipal = ""
	req = httptest.NewRequest("GET", "/app/page", nil)
	req.SetBasicAuth("alice", "wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if gotPrincipal != "" {
		t.Error("next handler ran for an unauthenticated request")
	}
}

func TestIsValidateRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/app/page?j_validate=true", nil)
	if !isValidateRequest(req) {
		t.Error("query parameter not recognized")
	}

	req = httptest.NewRequest("POST", "/app/login", nil)
	req.PostForm = url.Values{"j_validate": {"true"}}
	if !isValidateRequest(req) {
		t.Error("parsed form parameter not recognized")
	}

	req = httptest.NewRequest("GET", "/app/page?j_validate=1", nil)
	if isValidateRequest(req) {
		t.Error("non-true value recognized")
	}

	req = httptest.NewRequest("GET", "/app/page", nil)
	if isValidateRequest(req) {
		t.Error("absent parameter recognized")
	}
}

func TestFailureReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "invalid credentials",
			err:  fmt.Errorf("%w: password mismatch", ErrInvalidCredentials),
			want: "invalid credentials",
		},
		{
			name: "invalid impersonation",
			err:  fmt.Errorf("%w: %q", ErrInvalidImpersonation, "bob"),
			want: "impersonation not allowed",
		},
		{
			name: "backend unavailable",
			err:  fmt.Errorf("%w: connect refused", ErrBackendUnavailable),
			want: "identity backend unavailable",
		},
		{
			name: "plain error",
			err:  fmt.Errorf("boom"),
			want: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := failureReason(tt.err); got != tt.want {
				t.Errorf("failureReason() = %q, want %q", got, tt.want)
			}
		})
	}
}
