package crawler

import (
	"net/url"
	"testing"
)

// TestMatchPattern tests glob pattern matching on URL paths.
func TestMatchPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		// Prefix patterns with /*
		{"admin prefix match", "/admin/*", "/admin/dashboard", true},
		{"admin prefix exact", "/admin/*", "/admin", true},
		{"admin prefix no match", "/admin/*", "/user/profile", false},
		{"admin prefix partial no match", "/admin/*", "/administrator", false},
		{"nested admin", "/admin/*", "/admin/users/edit", true},

		// Extension patterns with *.
		{"pdf extension", "*.pdf", "/docs/file.pdf", true},
		{"pdf extension nested", "*.pdf", "/a/b/c/report.pdf", true},
		{"pdf extension no match", "*.pdf", "/docs/file.txt", false},

		// Exact match patterns
		{"exact match", "/logout", "/logout", true},
		{"exact no match", "/logout", "/login", false},

		// Wildcards
		{"wildcard middle", "/api/v?/users", "/api/v1/users", true},
		{"wildcard middle no match", "/api/v?/users", "/api/v10/users", false},
		{"bare file pattern", "report-*.csv", "/exports/report-2024.csv", true},
		{"trailing star", "/logout*", "/logout-all", true},

		// Root path
		{"root path", "/", "/", true},
		{"root no match prefix", "/admin/*", "/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := matchPattern(tt.pattern, tt.path)
			if got != tt.want {
				t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}

// TestShouldCrawlPath tests ignore and follow pattern precedence.
func TestShouldCrawlPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		path   string
		ignore []string
		follow []string
		want   bool
	}{
		{"no patterns allows all", "/any/path", nil, nil, true},
		{"ignored path", "/admin/users", []string{"/admin/*"}, nil, false},
		{"follow match", "/api/v1", nil, []string{"/api/*"}, true},
		{"follow miss", "/private", nil, []string{"/api/*", "/public/*"}, false},
		{"ignore beats follow", "/api/internal/secret", []string{"/api/internal/*"}, []string{"/api/*"}, false},
		{"empty path treated as root", "", nil, []string{"/"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := shouldCrawlPath(tt.path, tt.ignore, tt.follow); got != tt.want {
				t.Errorf("shouldCrawlPath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

// TestLinkFilterAllows tests host and scheme restrictions.
func TestLinkFilterAllows(t *testing.T) {
	t.Parallel()

	f := linkFilter{host: "site.test", ignorePatterns: []string{"*.pdf"}}

	tests := []struct {
		target string
		want   bool
	}{
		{"https://site.test/page", true},
		{"http://SITE.TEST/page", true},
		{"https://site.test:8443/page", true},
		{"https://other.test/page", false},
		{"https://sub.site.test/page", false},
		{"mailto:info@site.test", false},
		{"ftp://site.test/file", false},
		{"https://site.test/file.pdf", false},
		{"://invalid", false},
	}

	for _, tt := range tests {
		if got := f.allows(tt.target); got != tt.want {
			t.Errorf("allows(%q) = %v, want %v", tt.target, got, tt.want)
		}
	}
}

// TestIsSameHost tests host comparison with and without ports.
func TestIsSameHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		host   string
		target string
		want   bool
	}{
		{"same host", "site.test", "http://site.test/page", true},
		{"different case", "site.test", "http://SITE.TEST/page", true},
		{"different host", "site.test", "http://other.test/page", false},
		{"port in seed must match", "127.0.0.1:8080", "http://127.0.0.1:8080/a", true},
		{"other port rejected", "127.0.0.1:8080", "http://127.0.0.1:9090/a", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			u, err := url.Parse(tt.target)
			if err != nil {
				t.Fatalf("parse %q: %v", tt.target, err)
			}
			if got := isSameHost(tt.host, u); got != tt.want {
				t.Errorf("isSameHost(%q, %q) = %v, want %v", tt.host, tt.target, got, tt.want)
			}
		})
	}
}
