package crawler

import (
	"context"

	"github.com/nao1215/webxtract/internal/model"
)

// PageFetcher turns a URL into page content plus extracted links.
//
// Fetch returns an error only when no outcome could be produced at all.
// An unreachable page or a non-2xx response is normally reported as an
// outcome with Success = false. Both cases are recorded as a failed page.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string, cfg model.FetchConfig) (*model.PageFetchOutcome, error)
}

// Starter is implemented by page fetchers that need initialization before
// the first fetch, such as a browser runtime or a proxy connection check.
// A Start error aborts the crawl with ErrSetup.
type Starter interface {
	Start(ctx context.Context) error
}

// FetcherFunc adapts an ordinary function to the PageFetcher interface.
type FetcherFunc func(ctx context.Context, pageURL string, cfg model.FetchConfig) (*model.PageFetchOutcome, error)

// Fetch calls f(ctx, pageURL, cfg).
func (f FetcherFunc) Fetch(ctx context.Context, pageURL string, cfg model.FetchConfig) (*model.PageFetchOutcome, error) {
	return f(ctx, pageURL, cfg)
}
