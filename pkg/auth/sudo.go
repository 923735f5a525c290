package auth

import (
	"net/http"
	"net/url"
)

// sudoDisableValue is the request parameter value that forces
// impersonation off regardless of any cookie.
const sudoDisableValue = "-"

// resolveSudo reads the impersonation override from the request and,
// when a usable target remains, attaches it to the info. The request
// parameter takes precedence over the cookie, including the disable
// value. Targets equal to the authenticated user are ignored.
func (e *Engine) resolveSudo(r *http.Request, info Info) Info {
	if e.cfg.SudoDisabled {
		return info
	}

	target := e.currentSudo(r)
	if v := r.URL.Query().Get(e.cfg.SudoParameter); v != "" {
		target = v
	}
	if target == sudoDisableValue {
		target = ""
	}

	if target != "" && target != info.Credentials.User {
		info.Sudo = target
	}
	return info
}

// currentSudo returns the impersonation target carried by the cookie,
// or an empty string.
func (e *Engine) currentSudo(r *http.Request) string {
	c, err := r.Cookie(e.cfg.SudoCookie)
	if err != nil || c.Value == "" {
		return ""
	}
	v, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return v
}

// refreshSudoCookie keeps the impersonation cookie in line with the
// resolved identity: written when impersonation is active and the
// cookie is stale, cleared when impersonation ended but a cookie is
// still around.
func (e *Engine) refreshSudoCookie(w http.ResponseWriter, r *http.Request, id *Identity) {
	if e.cfg.SudoDisabled {
		return
	}

	current := e.currentSudo(r)
	switch {
	case id.Impersonator != "":
		if current != id.Principal {
			http.SetCookie(w, &http.Cookie{
				Name:     e.cfg.SudoCookie,
				Value:    url.QueryEscape(id.Principal),
				Path:     "/",
				HttpOnly: true,
			})
		}
	case current != "":
		http.SetCookie(w, &http.Cookie{
			Name:     e.cfg.SudoCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
	}
}
