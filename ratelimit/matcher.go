package ratelimit

import (
	"net/url"
	"path"
	"strings"
)

// MatchURL reports whether the host and path of u match pattern.
//
// Supported patterns:
//   - "api.airtable.com/*" matches any path on that host
//   - "api.airtable.com/v0/meta/*" matches only metadata endpoints
//   - "api.airtable.com/v0/*/Tasks" matches one segment per "*"
//   - "*" matches everything
func MatchURL(u *url.URL, pattern string) bool {
	if pattern == "*" {
		return true
	}
	hostPath := strings.TrimRight(u.Host+u.Path, "/")
	pattern = strings.TrimRight(pattern, "/")

	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if hostPath == prefix || strings.HasPrefix(hostPath, prefix+"/") {
			return true
		}
	}
	ok, err := path.Match(pattern, hostPath)
	return err == nil && ok
}
