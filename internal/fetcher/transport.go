package fetcher

import "net/http"

// headerInjectingTransport wraps an http.RoundTripper to inject
// custom headers and cookies into every request.
//
// Design decision: We use a RoundTripper rather than setting headers in
// Fetch because:
//  1. Redirected requests carry the same credentials
//  2. The site configuration is applied once, where the client is built
//  3. Fetch stays independent of per-site settings
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}

// withSiteCredentials wraps the client's transport when a cookie or
// headers are configured. The client is copied, never modified.
func withSiteCredentials(client *http.Client, cookie string, headers map[string]string) *http.Client {
	if cookie == "" && len(headers) == 0 {
		return client
	}

	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	wrapped := *client
	wrapped.Transport = &headerInjectingTransport{
		base:    base,
		cookie:  cookie,
		headers: headers,
	}
	return &wrapped
}
