package crawler

import (
	"net/url"
	"path/filepath"
	"strings"
)

// linkFilter decides which discovered links may enter the frontier.
// Only links on the seed's host are followed, subject to the ignore and
// follow path patterns.
type linkFilter struct {
	// host is the seed host, compared case-insensitively.
	host string

	// ignorePatterns are glob patterns of paths never crawled.
	ignorePatterns []string

	// followPatterns, when set, restrict crawling to matching paths.
	followPatterns []string
}

// allows reports whether targetURL should be crawled.
//
// Logic:
//  1. Non-HTTP URLs and other hosts are rejected
//  2. If the path matches any ignore pattern, skip it
//  3. If follow patterns are set and the path matches none, skip it
//  4. Otherwise, crawl it
func (f linkFilter) allows(targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if !isSameHost(f.host, u) {
		return false
	}
	return shouldCrawlPath(u.Path, f.ignorePatterns, f.followPatterns)
}

// isSameHost checks whether u points at the given host.
// A port is only significant when host carries one.
func isSameHost(host string, u *url.URL) bool {
	if strings.EqualFold(u.Host, host) {
		return true
	}
	if strings.Contains(host, ":") {
		return false
	}
	return strings.EqualFold(u.Hostname(), host)
}

// shouldCrawlPath applies ignore and follow patterns to a URL path.
// Ignore patterns take precedence over follow patterns.
func shouldCrawlPath(path string, ignorePatterns, followPatterns []string) bool {
	if path == "" {
		path = "/"
	}

	for _, pattern := range ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(followPatterns) == 0 {
		return true
	}
	for _, pattern := range followPatterns {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//   - a trailing /* to match a whole subtree
//
// Examples:
//   - "/admin/*" matches "/admin", "/admin/users/edit"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?/users" matches "/api/v1/users"
func matchPattern(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}

	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") && !strings.ContainsAny(ext, "*?[/") {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}

	// Bare file patterns such as "report-*.csv" apply to the last segment.
	if strings.ContainsAny(pattern, "*?") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}

	return false
}
