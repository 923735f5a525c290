package auth

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"time"
)

// ErrTooManyLogins is returned by LoginLimiter when a client exceeds
// the configured number of login attempts inside one window.
var ErrTooManyLogins = errors.New("too many login attempts")

// LoginLimiter is a post-processor that throttles explicit login
// attempts per client address with an in-memory sliding window.
// Requests carrying previously established credentials pass through
// untouched.
type LoginLimiter struct {
	max    int
	window time.Duration

	mu       sync.Mutex
	counters map[string]*counter
}

type counter struct {
	count    int
	windowAt time.Time
}

// NewLoginLimiter creates a limiter allowing max login attempts per
// client within the given window.
func NewLoginLimiter(max int, window time.Duration) *LoginLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &LoginLimiter{
		max:      max,
		window:   window,
		counters: make(map[string]*counter),
	}
}

var _ PostProcessor = (*LoginLimiter)(nil)

// Process counts the login attempt and vetoes the request when the
// client address is over the limit.
func (l *LoginLimiter) Process(r *http.Request, info Info) (Info, error) {
	if !info.Login || l.max <= 0 {
		return info, nil
	}

	key := clientAddr(r)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	c, ok := l.counters[key]
	if !ok || now.Sub(c.windowAt) >= l.window {
		// New window.
		l.counters[key] = &counter{count: 1, windowAt: now}
		return info, nil
	}

	c.count++
	if c.count > l.max {
		return info, ErrTooManyLogins
	}

	return info, nil
}

// clientAddr extracts the client host from the request, falling back
// to the raw remote address when it has no port.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
