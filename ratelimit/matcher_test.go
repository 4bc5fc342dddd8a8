package ratelimit

import (
	"net/url"
	"testing"
)

func TestMatchURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		pattern string
		want    bool
	}{
		{"wildcard host match", "https://api.airtable.com/v0/appX/Tasks", "api.airtable.com/*", true},
		{"wildcard host root", "https://api.airtable.com/", "api.airtable.com/*", true},
		{"wildcard sub-path", "https://api.airtable.com/v0/meta/bases", "api.airtable.com/v0/meta/*", true},
		{"wildcard does not match different path", "https://api.airtable.com/v0/appX/Tasks", "api.airtable.com/v0/meta/*", false},
		{"single segment star", "https://api.airtable.com/v0/appX/Tasks", "api.airtable.com/v0/*/Tasks", true},
		{"single segment star does not cross slash", "https://api.airtable.com/v0/appX/Tasks/recY", "api.airtable.com/v0/*/Tasks", false},
		{"exact match", "https://api.example.com/v1/specific", "api.example.com/v1/specific", true},
		{"exact no match", "https://api.example.com/v1/other", "api.example.com/v1/specific", false},
		{"different host", "https://api.github.com/repos", "api.airtable.com/*", false},
		{"host prefix is not a match", "https://api.airtable.com.evil.net/v0", "api.airtable.com/*", false},
		{"match all", "https://anything.example.org/x/y", "*", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.url)
			if err != nil {
				t.Fatal(err)
			}
			if got := MatchURL(u, tt.pattern); got != tt.want {
				t.Errorf("MatchURL(%q, %q) = %v, want %v", tt.url, tt.pattern, got, tt.want)
			}
		})
	}
}
