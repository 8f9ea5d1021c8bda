package crawler

import (
	"net/url"
	"strings"
	"sync"
)

// VisitedSet records every URL that has been enqueued or fetched.
// TryMark is the only deduplication point of a crawl.
type VisitedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewVisitedSet creates an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[string]struct{})}
}

// TryMark inserts the normalized URL if it is absent and reports whether
// it did. Callers may only enqueue or fetch a URL after TryMark returned true.
func (v *VisitedSet) TryMark(pageURL string) bool {
	key := NormalizeURL(pageURL)

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.seen[key]; ok {
		return false
	}
	v.seen[key] = struct{}{}
	return true
}

// Contains reports whether the URL has been marked.
func (v *VisitedSet) Contains(pageURL string) bool {
	key := NormalizeURL(pageURL)

	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.seen[key]
	return ok
}

// Len returns the number of marked URLs.
func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}

// NormalizeURL returns the form of a URL used for deduplication and as the
// key of crawl results.
//
// Design decision: We normalize URLs because:
//  1. Same page can have different URL representations
//  2. Fragment (#anchor) doesn't change content
//  3. Scheme and host are case-insensitive
func NormalizeURL(pageURL string) string {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return pageURL
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	// http://example.com and http://example.com/ are the same page
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
