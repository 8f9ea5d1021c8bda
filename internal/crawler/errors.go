package crawler

import (
	"errors"
	"fmt"
)

// Sentinel errors for crawl setup.
var (
	// ErrSetup is returned when the page fetcher cannot be initialized.
	// Nothing is crawled and no report is produced.
	ErrSetup = errors.New("page fetcher setup failed")

	// ErrInvalidSeed is returned when the seed URL cannot be crawled.
	ErrInvalidSeed = errors.New("invalid seed URL")

	// ErrNoFetcher is returned when the orchestrator has no page fetcher.
	ErrNoFetcher = errors.New("no page fetcher configured")
)

// FetchError describes a failed fetch of a single page.
// It is recorded in the page result and never aborts the crawl.
type FetchError struct {
	// URL is the page that could not be fetched.
	URL string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}
