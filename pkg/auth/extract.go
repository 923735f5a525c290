package auth

import "net/http"

// extraction is the adopted pipeline outcome plus the bookkeeping the
// dispatcher needs: which handler produced it and its feedback hook.
type extraction struct {
	Result
	HandlerID string
	Feedback  Feedback
	Anonymous bool
}

// extract runs the credential extraction pipeline: ask the matching
// handlers in specificity order, fall back to built-in basic auth, and
// finally synthesize the configured anonymous credentials. The first
// handler that does not abstain decides the outcome.
func (e *Engine) extract(w http.ResponseWriter, r *http.Request, snap *Snapshot) extraction {
	for _, entry := range snap.Match(r) {
		res := entry.Handler.Extract(w, r)
		if res.Decision == Abstain {
			continue
		}
		ex := extraction{Result: res, HandlerID: entry.ID}
		if fb, ok := entry.Handler.(Feedback); ok {
			ex.Feedback = fb
		}
		return ex
	}

	if e.cfg.BasicFallback {
		if res := e.fallback.Extract(w, r); res.Decision != Abstain {
			return extraction{Result: res, HandlerID: fallbackHandlerID}
		}
	}

	return extraction{
		Result: Result{
			Decision: Accept,
			Credentials: &Credentials{
				User:     e.cfg.AnonymousUser,
				Password: e.cfg.AnonymousPassword,
				AuthType: "anonymous",
			},
		},
		HandlerID: "anonymous",
		Anonymous: true,
	}
}
