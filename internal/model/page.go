package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Link is an anchor found on a page.
// The JSON shape matches the url_text entries of the site content export.
type Link struct {
	// Text is the trimmed anchor text, or the href when the anchor has none.
	Text string `json:"text"`

	// Href is the absolute target URL.
	Href string `json:"href"`
}

// PageResult is the crawler's record for one fetched URL.
// Exactly one PageResult exists per URL that reached the fetcher.
//
// Design decision: We keep both raw and fit markdown because:
//  1. The export format only carries fit markdown
//  2. The database keeps the raw form for later re-filtering
//  3. The length of both is reported while crawling
type PageResult struct {
	// URL is the frontier URL that was fetched.
	URL string `json:"url"`

	// Depth is the link distance from the seed.
	Depth int `json:"depth"`

	// Success is false when the fetch failed.
	Success bool `json:"success"`

	// StatusCode is the HTTP status returned for the page.
	StatusCode int `json:"status_code,omitempty"`

	// Title is the document title.
	Title string `json:"title,omitempty"`

	// Content is the fit markdown of the page.
	// Empty when the fetch failed or markdown extraction failed.
	Content string `json:"content"`

	// RawMarkdown is the unfiltered markdown of the page.
	RawMarkdown string `json:"raw_markdown,omitempty"`

	// Links are the internal links found on the page, in document order.
	Links []Link `json:"links"`

	// ExternalLinks are the links leaving the site that the fetcher kept.
	ExternalLinks []Link `json:"external_links,omitempty"`

	// Error is the fetch failure message when Success is false.
	Error string `json:"error,omitempty"`

	// Warning records a markdown extraction failure on a successful fetch.
	Warning string `json:"warning,omitempty"`

	// ContentHash is the SHA-256 of Content, empty when there is no content.
	ContentHash string `json:"content_hash,omitempty"`

	// FetchedAt is when the fetch completed.
	FetchedAt time.Time `json:"fetched_at"`
}

// ComputeHash calculates and sets the SHA-256 hash of the page content.
func (p *PageResult) ComputeHash() {
	if p.Content == "" {
		p.ContentHash = ""
		return
	}

	hash := sha256.Sum256([]byte(p.Content))
	p.ContentHash = hex.EncodeToString(hash[:])
}

// NewPageResult builds a PageResult from a fetcher outcome.
// A markdown failure keeps the page successful but empties its content.
func NewPageResult(url string, depth int, outcome *PageFetchOutcome) *PageResult {
	result := &PageResult{
		URL:       url,
		Depth:     depth,
		Links:     make([]Link, 0),
		FetchedAt: time.Now(),
	}
	if outcome == nil {
		result.Error = "fetcher returned no result"
		return result
	}

	result.Success = outcome.Success
	result.StatusCode = outcome.StatusCode
	result.Title = outcome.Title
	if !outcome.Success {
		result.Error = outcome.ErrorMessage
		if result.Error == "" {
			result.Error = "unknown fetch error"
		}
		return result
	}

	if outcome.MarkdownError != "" {
		result.Warning = outcome.MarkdownError
	} else {
		result.Content = outcome.FitMarkdown
		result.RawMarkdown = outcome.RawMarkdown
	}
	result.Links = append(result.Links, outcome.Links.Internal...)
	if len(outcome.Links.External) > 0 {
		result.ExternalLinks = append([]Link(nil), outcome.Links.External...)
	}
	result.ComputeHash()

	return result
}

// NewFailedPageResult builds a failed PageResult from a fetch error.
func NewFailedPageResult(url string, depth int, err error) *PageResult {
	msg := "unknown fetch error"
	if err != nil {
		msg = err.Error()
	}
	return &PageResult{
		URL:       url,
		Depth:     depth,
		Links:     make([]Link, 0),
		Error:     msg,
		FetchedAt: time.Now(),
	}
}
