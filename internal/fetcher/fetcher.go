package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/webxtract/internal/model"
)

// Default fetcher settings.
const (
	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize int64 = 10 * 1024 * 1024 // 10MB

	// DefaultTimeout is the per-fetch timeout.
	DefaultTimeout = 30 * time.Second

	// maxRedirects limits redirect chains.
	maxRedirects = 10
)

// ProxyChecker verifies that a proxy is usable before crawling starts.
// tor.Client implements it.
type ProxyChecker interface {
	Check(ctx context.Context) error
}

// HTTPFetcher fetches pages over HTTP and converts them to markdown.
// It implements crawler.PageFetcher and crawler.Starter.
type HTTPFetcher struct {
	// client performs the requests. It may route through Tor.
	client *http.Client

	// userAgent is the User-Agent header to use.
	userAgent string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// timeout bounds each fetch, including reading the body.
	timeout time.Duration

	// cookie and headers are injected into every request.
	cookie  string
	headers map[string]string

	// proxy is checked by Start when set.
	proxy ProxyChecker

	logger *slog.Logger
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithHTTPClient sets the HTTP client, for example one routed through Tor.
func WithHTTPClient(client *http.Client) Option {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) Option {
	return func(f *HTTPFetcher) {
		f.maxBodySize = size
	}
}

// WithTimeout sets the per-fetch timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.timeout = d
	}
}

// WithSiteCredentials sets a raw cookie string (e.g., "session_id=abc123")
// and extra headers sent with every request.
func WithSiteCredentials(cookie string, headers map[string]string) Option {
	return func(f *HTTPFetcher) {
		f.cookie = cookie
		f.headers = headers
	}
}

// WithProxyChecker sets the proxy verified by Start.
func WithProxyChecker(p ProxyChecker) Option {
	return func(f *HTTPFetcher) {
		f.proxy = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *HTTPFetcher) {
		f.logger = logger
	}
}

// New creates an HTTPFetcher.
func New(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		timeout:     DefaultTimeout,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = newDefaultClient()
	}
	f.client = withSiteCredentials(f.client, f.cookie, f.headers)

	return f
}

// newDefaultClient creates a direct HTTP client with a cookie jar, so
// session cookies set by the site are kept during the crawl.
func newDefaultClient() *http.Client {
	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Jar: jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// Start verifies the proxy, if one is configured.
func (f *HTTPFetcher) Start(ctx context.Context) error {
	if f.proxy == nil {
		return nil
	}
	if err := f.proxy.Check(ctx); err != nil {
		return fmt.Errorf("proxy check failed: %w", err)
	}
	f.logger.Debug("proxy check passed")
	return nil
}

// Fetch retrieves pageURL and builds its outcome.
//
// Transport errors, non-2xx responses and unreadable bodies produce an
// outcome with Success = false. An error is returned only for a URL that
// cannot be requested at all.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string, cfg model.FetchConfig) (*model.PageFetchOutcome, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	outcome := &model.PageFetchOutcome{
		URL: pageURL,
		Links: model.LinkSet{
			Internal: make([]model.Link, 0),
			External: make([]model.Link, 0),
		},
	}

	resp, err := f.client.Do(req)
	if err != nil {
		outcome.ErrorMessage = err.Error()
		return outcome, nil
	}
	defer resp.Body.Close()

	outcome.StatusCode = resp.StatusCode
	if resp.Request != nil && resp.Request.URL != nil {
		// Links are resolved against the final URL after redirects.
		base = resp.Request.URL
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		outcome.ErrorMessage = fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		return outcome, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		outcome.ErrorMessage = fmt.Sprintf("failed to read response body: %v", err)
		return outcome, nil
	}
	outcome.Success = true

	if !isHTML(resp.Header.Get("Content-Type"), body) {
		f.logger.Debug("skipping non-HTML content", "url", pageURL, "content_type", resp.Header.Get("Content-Type"))
		return outcome, nil
	}

	f.extract(outcome, body, base, cfg)
	return outcome, nil
}

// extract fills links and markdown from an HTML body.
func (f *HTTPFetcher) extract(outcome *model.PageFetchOutcome, body []byte, base *url.URL, cfg model.FetchConfig) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		outcome.MarkdownError = fmt.Sprintf("failed to parse HTML: %v", err)
		return
	}

	outcome.Title = documentTitle(doc)
	cleanDocument(doc, cfg.ExcludedTags, cfg.RemoveOverlayElements)
	outcome.Links = extractLinks(doc, base, cfg)

	raw, fit, err := pageMarkdown(doc, base, cfg.ContentFilter)
	if err != nil {
		outcome.MarkdownError = err.Error()
		return
	}
	outcome.RawMarkdown = raw
	outcome.FitMarkdown = fit
}

// pageMarkdown converts the cleaned document into raw and fit markdown.
func pageMarkdown(doc *goquery.Document, base *url.URL, filter model.ContentFilter) (raw, fit string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("markdown conversion failed: %v", r)
		}
	}()

	var root *html.Node
	if body := doc.Find("body"); len(body.Nodes) > 0 {
		root = body.Nodes[0]
	} else if len(doc.Nodes) > 0 {
		root = doc.Nodes[0]
	}
	if root == nil {
		return "", "", nil
	}

	blocks := convertHTML(root, base)
	raw, err = renderMarkdown(blocks)
	if err != nil {
		return "", "", err
	}

	var cleanedHTML string
	if filter == model.ContentFilterReadability {
		cleanedHTML, err = doc.Html()
		if err != nil {
			return "", "", fmt.Errorf("failed to serialize cleaned document: %w", err)
		}
	}

	fitted, err := fitBlocks(filter, blocks, cleanedHTML, base)
	if err != nil {
		return "", "", err
	}
	fit, err = renderMarkdown(fitted)
	if err != nil {
		return "", "", err
	}
	return raw, fit, nil
}

// isHTML reports whether a response is an HTML document.
// Responses without a Content-Type are sniffed.
func isHTML(contentType string, body []byte) bool {
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "text/html") || strings.Contains(contentType, "application/xhtml")
}
