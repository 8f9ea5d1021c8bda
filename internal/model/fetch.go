package model

import (
	"fmt"
	"strings"
)

// ContentFilter selects how the fetcher reduces a page to its "fit" markdown.
type ContentFilter string

const (
	// ContentFilterNone keeps the whole cleaned document.
	ContentFilterNone ContentFilter = "none"

	// ContentFilterPruning drops blocks with little text or dense link lists.
	ContentFilterPruning ContentFilter = "pruning"

	// ContentFilterReadability keeps only the main article as detected by readability.
	ContentFilterReadability ContentFilter = "readability"
)

// ParseContentFilter converts a user supplied name into a ContentFilter.
// The empty string maps to ContentFilterPruning.
func ParseContentFilter(name string) (ContentFilter, error) {
	switch ContentFilter(strings.ToLower(strings.TrimSpace(name))) {
	case "", ContentFilterPruning:
		return ContentFilterPruning, nil
	case ContentFilterNone:
		return ContentFilterNone, nil
	case ContentFilterReadability:
		return ContentFilterReadability, nil
	default:
		return "", fmt.Errorf("unknown content filter %q (expected none, pruning or readability)", name)
	}
}

// String returns the filter name.
func (f ContentFilter) String() string {
	return string(f)
}

// FetchConfig holds the per-page options handed to the page fetcher.
type FetchConfig struct {
	// ExcludedTags are HTML elements removed before content extraction.
	ExcludedTags []string `json:"excluded_tags,omitempty"`

	// RemoveOverlayElements discards popups, modals and cookie banners.
	RemoveOverlayElements bool `json:"remove_overlay_elements"`

	// ExcludeExternalLinks drops links that leave the page's host.
	ExcludeExternalLinks bool `json:"exclude_external_links"`

	// ExcludeSocialMediaLinks drops links to known social media sites.
	ExcludeSocialMediaLinks bool `json:"exclude_social_media_links"`

	// ContentFilter selects the fit markdown strategy.
	ContentFilter ContentFilter `json:"content_filter"`
}

// DefaultFetchConfig returns the fetch options of the site content export:
// navigation chrome stripped, overlays removed, only internal links kept,
// pruning filter.
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		ExcludedTags:            []string{"nav", "footer", "aside"},
		RemoveOverlayElements:   true,
		ExcludeExternalLinks:    true,
		ExcludeSocialMediaLinks: true,
		ContentFilter:           ContentFilterPruning,
	}
}

// LinkSet groups the links extracted from a page by classification.
type LinkSet struct {
	// Internal links point to the same host as the page.
	Internal []Link `json:"internal"`

	// External links point elsewhere.
	External []Link `json:"external"`
}

// PageFetchOutcome is what a page fetcher returns for a single URL.
type PageFetchOutcome struct {
	// URL is the fetched URL (after redirects when the fetcher follows them).
	URL string `json:"url"`

	// Success is false when the page could not be retrieved.
	Success bool `json:"success"`

	// StatusCode is the HTTP status, 0 if no response was received.
	StatusCode int `json:"status_code,omitempty"`

	// Title is the document title, if any.
	Title string `json:"title,omitempty"`

	// RawMarkdown is the markdown of the whole cleaned document.
	RawMarkdown string `json:"raw_markdown,omitempty"`

	// FitMarkdown is the markdown after the content filter.
	FitMarkdown string `json:"fit_markdown,omitempty"`

	// MarkdownError is set when the page was fetched but markdown
	// generation failed. The page still counts as fetched.
	MarkdownError string `json:"markdown_error,omitempty"`

	// Links are the classified links found on the page.
	Links LinkSet `json:"links"`

	// ErrorMessage explains why Success is false.
	ErrorMessage string `json:"error_message,omitempty"`
}
