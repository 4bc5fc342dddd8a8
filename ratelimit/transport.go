package ratelimit

import "net/http"

// Transport wraps an http.RoundTripper so that every request made through
// it takes one permit first. When patterns are given, only requests whose
// host and path match one of them are limited; see [MatchURL].
func (l *Limiter) Transport(base http.RoundTripper, patterns ...string) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &transport{limiter: l, base: base, patterns: patterns}
}

// transport implements http.RoundTripper and waits for a permit before
// forwarding requests to the underlying transport.
type transport struct {
	limiter  *Limiter
	base     http.RoundTripper
	patterns []string
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limited(req) {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	return t.base.RoundTrip(req)
}

func (t *transport) limited(req *http.Request) bool {
	if len(t.patterns) == 0 {
		return true
	}
	for _, p := range t.patterns {
		if MatchURL(req.URL, p) {
			return true
		}
	}
	return false
}
