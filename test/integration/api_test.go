package integration

import (
	"net/http"
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// mintToken signs a token with the shared test secret.
func mintToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testBearerSecret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

// getWithToken sends a GET request with a bearer token.
func getWithToken(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req := newRequest(t, http.MethodGet, url)
	req.Header.Set("Authorization", "Bearer "+token)
	return do(t, req)
}

func TestBearerTokenOnAPIPath(t *testing.T) {
	token := mintToken(t, jwtlib.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	resp := getWithToken(t, testEnv.BaseURL()+"/api/data", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	echo := echoFrom(t, resp)
	if echo.User != "alice" {
		t.Errorf("user = %q, want %q", echo.User, "alice")
	}
	if echo.AuthType != "bearer" {
		t.Errorf("auth_type = %q, want %q", echo.AuthType, "bearer")
	}
}

func TestBearerTokenExpired(t *testing.T) {
	token := mintToken(t, jwtlib.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	resp := getWithToken(t, testEnv.BaseURL()+"/api/data", token)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	challenge := resp.Header.Get("WWW-Authenticate")
	if !strings.HasPrefix(challenge, "Bearer ") {
		t.Errorf("WWW-Authenticate = %q, want a bearer challenge", challenge)
	}
	if !strings.Contains(challenge, `error="invalid_token"`) {
		t.Errorf("WWW-Authenticate = %q, want an invalid_token error", challenge)
	}
}

func TestBearerUnknownSubject(t *testing.T) {
	// A valid signature is not enough: the subject must exist in the
	// directory.
	token := mintToken(t, jwtlib.MapClaims{
		"sub": "mallory",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	resp := getWithToken(t, testEnv.BaseURL()+"/api/data", token)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("WWW-Authenticate"); !strings.HasPrefix(got, "Bearer ") {
		t.Errorf("WWW-Authenticate = %q, want a bearer challenge", got)
	}
}

func TestBearerIgnoredOutsideAPIPaths(t *testing.T) {
	token := mintToken(t, jwtlib.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	// The bearer handler is registered for /api/ only, so the token is
	// ignored here and the request continues anonymously.
	resp := getWithToken(t, testEnv.BaseURL()+"/app", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	echo := echoFrom(t, resp)
	if echo.User != "anonymous" {
		t.Errorf("user = %q, want %q", echo.User, "anonymous")
	}
}

func TestBearerSudo(t *testing.T) {
	token := mintToken(t, jwtlib.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	resp := getWithToken(t, testEnv.BaseURL()+"/api/data?sudo=bob", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	echo := echoFrom(t, resp)
	if echo.User != "bob" {
		t.Errorf("user = %q, want %q", echo.User, "bob")
	}
	if echo.Impersonator != "alice" {
		t.Errorf("impersonator = %q, want %q", echo.Impersonator, "alice")
	}
}

func TestAPIKeyAuthenticates(t *testing.T) {
	req := newRequest(t, http.MethodGet, testEnv.BaseURL()+"/api/data")
	req.Header.Set("X-API-Key", testAPIKey)

	resp := do(t, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	echo := echoFrom(t, resp)
	if echo.User != "alice" {
		t.Errorf("user = %q, want %q", echo.User, "alice")
	}
	if echo.AuthType != "apikey" {
		t.Errorf("auth_type = %q, want %q", echo.AuthType, "apikey")
	}
}

func TestUnknownAPIKey(t *testing.T) {
	req := newRequest(t, http.MethodGet, testEnv.BaseURL()+"/api/data")
	req.Header.Set("X-API-Key", "not-a-key")

	resp := do(t, req)
	defer resp.Body.Close()

	// API keys cannot be requested interactively; the bearer handler
	// issues the challenge for /api/ paths.
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("WWW-Authenticate"); !strings.HasPrefix(got, "Bearer ") {
		t.Errorf("WWW-Authenticate = %q, want a bearer challenge", got)
	}
}
