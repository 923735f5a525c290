package auth

import (
	"net/http"

	"github.com/francescomari/portier/pkg/observability"
)

// challenge asks the client for credentials. Handlers that matched the
// request get the first shot; the basic fallback and a plain 403 close
// the gaps. Validation requests and AJAX requests are never challenged
// interactively because their callers cannot render a login page.
func (e *Engine) challenge(w http.ResponseWriter, r *http.Request, snap *Snapshot, reason string) {
	r = r.WithContext(SetReason(r.Context(), reason))

	if isValidateRequest(r) {
		observability.ChallengesTotal.WithLabelValues("forbidden").Inc()
		e.deny(w, reason)
		return
	}

	// No User-Agent means no browser on the other end. Basic is the
	// only challenge such a client can answer.
	if r.Header.Get("User-Agent") == "" {
		if e.cfg.BasicFallback {
			observability.ChallengesTotal.WithLabelValues("unauthorized").Inc()
			setReasonHeader(w, reason)
			e.fallback.Challenge(w, r)
			return
		}
		observability.ChallengesTotal.WithLabelValues("forbidden").Inc()
		e.deny(w, reason)
		return
	}

	if isAjaxRequest(r) {
		observability.ChallengesTotal.WithLabelValues("forbidden").Inc()
		e.deny(w, reason)
		return
	}

	for _, entry := range snap.Match(r) {
		if entry.Handler.Challenge(w, r) {
			e.log.Debug("challenge issued",
				"handler", entry.ID, "path", r.URL.Path, "reason", reason)
			observability.ChallengesTotal.WithLabelValues("handler").Inc()
			return
		}
	}

	if e.cfg.BasicFallback {
		observability.ChallengesTotal.WithLabelValues("basic").Inc()
		setReasonHeader(w, reason)
		e.fallback.Challenge(w, r)
		return
	}

	e.log.Error("no authentication handler can issue a challenge",
		"path", r.URL.Path, "reason", reason)
	observability.ChallengesTotal.WithLabelValues("unhandled").Inc()
	e.deny(w, reason)
}

// deny refuses the request outright with a 403.
func (e *Engine) deny(w http.ResponseWriter, reason string) {
	setReasonHeader(w, reason)
	http.Error(w, "Forbidden", http.StatusForbidden)
}

func setReasonHeader(w http.ResponseWriter, reason string) {
	if reason != "" {
		w.Header().Set(reasonHeader, reason)
	}
}

// isAjaxRequest detects script-issued requests that would break on an
// interactive login redirect.
func isAjaxRequest(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}
