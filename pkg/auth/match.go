package auth

import (
	"net/http"
	"strings"
)

// Matches reports whether the rule applies to the request.
func (p PathRule) Matches(r *http.Request) bool {
	if p.HostPort != "" && r.Host != p.HostPort {
		return false
	}
	return strings.HasPrefix(r.URL.Path, p.Prefix)
}

// Match returns the handlers applicable to the request, most specific
// first. A handler registered under several matching rules appears
// once, at its most specific position.
func (s *Snapshot) Match(r *http.Request) []Entry {
	var out []Entry
	var seen map[string]bool

	for _, e := range s.entries {
		if !e.Rule.Matches(r) || seen[e.ID] {
			continue
		}
		if seen == nil {
			seen = make(map[string]bool)
		}
		seen[e.ID] = true
		out = append(out, e)
	}

	return out
}
