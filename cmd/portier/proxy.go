package main

import (
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"net/http/httputil"
	"net/url"
	"slices"
	"strings"

	"github.com/francescomari/portier/pkg/auth"
	"github.com/francescomari/portier/pkg/config"
	"github.com/francescomari/portier/pkg/debug"
)

// Identity headers forwarded to the upstream. Inbound values are
// always stripped so clients cannot spoof them.
const (
	userHeader         = "X-Forwarded-User"
	authTypeHeader     = "X-Forwarded-Auth-Type"
	impersonatorHeader = "X-Forwarded-Impersonator"
)

// newProxy builds the reverse proxy for the configured upstream. The
// resolved identity travels to the upstream in X-Forwarded-* headers.
func newProxy(cfg config.UpstreamConfig) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing upstream URL: %w", err)
	}

	return &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(target)
			r.SetXForwarded()
			if cfg.PreserveHost {
				r.Out.Host = r.In.Host
			}
			setIdentityHeaders(r)
			debug.Log("proxy", "forwarding request",
				"method", r.In.Method, "path", r.In.URL.Path,
				"upstream", r.Out.URL.Host, "user", r.Out.Header.Get(userHeader))
			if debug.TraceIsEnabled("proxy") {
				debug.Raw("proxy", outboundSummary(r.Out))
			}
		},
		// Flush streamed upstream responses as they arrive.
		FlushInterval: -1,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("proxying request", "path", r.URL.Path, "error", err)
			w.WriteHeader(http.StatusBadGateway)
		},
	}, nil
}

// outboundSummary renders the outgoing request line and headers for
// trace output. Header values are truncated: they can carry
// credentials.
func outboundSummary(r *http.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", r.Method, r.URL)
	for _, name := range slices.Sorted(maps.Keys(r.Header)) {
		for _, value := range r.Header[name] {
			fmt.Fprintf(&b, "%s: %s\n", name, debug.Truncate(value, 80))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func setIdentityHeaders(r *httputil.ProxyRequest) {
	r.Out.Header.Del(userHeader)
	r.Out.Header.Del(authTypeHeader)
	r.Out.Header.Del(impersonatorHeader)

	id := auth.IdentityFromContext(r.In.Context())
	if id == nil {
		return
	}

	r.Out.Header.Set(userHeader, id.Principal)
	if id.AuthType != "" {
		r.Out.Header.Set(authTypeHeader, id.AuthType)
	}
	if id.Impersonator != "" {
		r.Out.Header.Set(impersonatorHeader, id.Impersonator)
	}
}
