package main

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/francescomari/portier/pkg/auth"
)

//go:embed templates/login.html
var templateFiles embed.FS

var loginTemplate = template.Must(template.ParseFS(templateFiles, "templates/login.html"))

// loginPageHandler renders the login form. The resource and j_reason
// query parameters carry the original destination and the last
// failure, if any.
func loginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := struct {
			Resource string
			Reason   string
		}{
			Resource: r.URL.Query().Get("resource"),
			Reason:   r.URL.Query().Get("j_reason"),
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := loginTemplate.Execute(w, data); err != nil {
			slog.Error("rendering login page", "error", err)
		}
	}
}

// loginActionHandler runs the submitted credentials through the
// engine. On success the client is sent back to the resource it
// originally requested; any failure response has already been written
// by the engine.
func loginActionHandler(engine *auth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r, ok := engine.Login(w, r)
		if !ok {
			return
		}

		http.Redirect(w, r, safeResource(r.PostFormValue("resource")), http.StatusSeeOther)
	}
}

// safeResource keeps login redirects on this host. Anything that is
// not a local absolute path falls back to the root.
func safeResource(resource string) string {
	if !strings.HasPrefix(resource, "/") || strings.HasPrefix(resource, "//") {
		return "/"
	}
	return resource
}
