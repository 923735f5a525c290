package auth

import "net/http"

// runPostProcessors feeds the info through every registered
// post-processor in registration order. The first veto stops the
// chain; the returned error text becomes the challenge reason.
func runPostProcessors(r *http.Request, snap *Snapshot, info Info) (Info, error) {
	for _, p := range snap.Processors() {
		next, err := p.Process(r, info)
		if err != nil {
			return info, err
		}
		info = next
	}
	return info, nil
}
