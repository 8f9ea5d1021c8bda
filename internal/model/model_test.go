package model

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

// TestCrawlBudgetValidate tests budget validation.
func TestCrawlBudgetValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		budget CrawlBudget
		want   error
	}{
		{"valid budget", CrawlBudget{MaxDepth: 2, MaxPages: 10, Concurrency: 2}, nil},
		{"zero depth is valid", CrawlBudget{MaxDepth: 0, MaxPages: 1, Concurrency: 1}, nil},
		{"negative depth", CrawlBudget{MaxDepth: -1, MaxPages: 1, Concurrency: 1}, ErrNegativeDepth},
		{"zero pages", CrawlBudget{MaxDepth: 1, MaxPages: 0, Concurrency: 1}, ErrNonPositivePages},
		{"zero concurrency", CrawlBudget{MaxDepth: 1, MaxPages: 1, Concurrency: 0}, ErrNonPositiveConcurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.budget.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

// TestParseContentFilter tests content filter parsing.
func TestParseContentFilter(t *testing.T) {
	t.Parallel()

	t.Run("empty defaults to pruning", func(t *testing.T) {
		t.Parallel()
		f, err := ParseContentFilter("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f != ContentFilterPruning {
			t.Errorf("expected pruning, got %q", f)
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		t.Parallel()
		f, err := ParseContentFilter(" Readability ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f != ContentFilterReadability {
			t.Errorf("expected readability, got %q", f)
		}
	})

	t.Run("unknown filter returns error", func(t *testing.T) {
		t.Parallel()
		if _, err := ParseContentFilter("bm25"); err == nil {
			t.Error("expected error for unknown filter")
		}
	})
}

// TestNewPageResult tests conversion from fetch outcomes.
func TestNewPageResult(t *testing.T) {
	t.Parallel()

	t.Run("successful outcome keeps internal links and fit markdown", func(t *testing.T) {
		t.Parallel()

		outcome := &PageFetchOutcome{
			URL:         "https://example.com/",
			Success:     true,
			StatusCode:  200,
			FitMarkdown: "# Home",
			RawMarkdown: "# Home\n\nnav",
			Links: LinkSet{
				Internal: []Link{{Text: "About", Href: "https://example.com/about"}},
				External: []Link{{Text: "Other", Href: "https://other.com/"}},
			},
		}

		result := NewPageResult("https://example.com/", 0, outcome)
		if !result.Success {
			t.Fatal("expected success")
		}
		if result.Content != "# Home" {
			t.Errorf("expected fit markdown content, got %q", result.Content)
		}
		if len(result.Links) != 1 || result.Links[0].Href != "https://example.com/about" {
			t.Errorf("expected only internal links, got %v", result.Links)
		}
		if result.ContentHash == "" {
			t.Error("expected content hash to be computed")
		}
	})

	t.Run("markdown failure keeps page successful with empty content", func(t *testing.T) {
		t.Parallel()

		outcome := &PageFetchOutcome{
			Success:       true,
			FitMarkdown:   "ignored",
			MarkdownError: "converter exploded",
			Links: LinkSet{
				Internal: []Link{{Text: "a", Href: "https://example.com/a"}},
			},
		}

		result := NewPageResult("https://example.com/", 1, outcome)
		if !result.Success {
			t.Fatal("expected success")
		}
		if result.Content != "" {
			t.Errorf("expected empty content, got %q", result.Content)
		}
		if result.Warning != "converter exploded" {
			t.Errorf("expected warning to be recorded, got %q", result.Warning)
		}
		if len(result.Links) != 1 {
			t.Errorf("expected links to be kept, got %d", len(result.Links))
		}
	})

	t.Run("failed outcome records error", func(t *testing.T) {
		t.Parallel()

		result := NewPageResult("https://example.com/c", 1, &PageFetchOutcome{ErrorMessage: "HTTP 500"})
		if result.Success {
			t.Fatal("expected failure")
		}
		if result.Error != "HTTP 500" {
			t.Errorf("expected error message, got %q", result.Error)
		}
		if result.Links == nil {
			t.Error("expected non-nil links slice")
		}
	})

	t.Run("nil outcome is a failure", func(t *testing.T) {
		t.Parallel()

		result := NewPageResult("https://example.com/", 0, nil)
		if result.Success || result.Error == "" {
			t.Errorf("expected failure with message, got %+v", result)
		}
	})
}

// TestCrawlReportAddResult tests result aggregation.
func TestCrawlReportAddResult(t *testing.T) {
	t.Parallel()

	t.Run("rejects duplicate URLs", func(t *testing.T) {
		t.Parallel()

		r := NewCrawlReport("https://example.com/", CrawlBudget{MaxDepth: 1, MaxPages: 5, Concurrency: 1})
		if !r.AddResult(&PageResult{URL: "https://example.com/", Success: true}) {
			t.Fatal("expected first insert to succeed")
		}
		if r.AddResult(&PageResult{URL: "https://example.com/", Success: true}) {
			t.Error("expected duplicate insert to be rejected")
		}
		if r.PagesCrawled != 1 {
			t.Errorf("expected 1 page crawled, got %d", r.PagesCrawled)
		}
	})

	t.Run("counts only successful results", func(t *testing.T) {
		t.Parallel()

		r := NewCrawlReport("s", CrawlBudget{})
		r.AddResult(&PageResult{URL: "a", Success: true})
		r.AddResult(&PageResult{URL: "b", Success: false})
		r.AddResult(&PageResult{URL: "c", Success: true})

		if r.PagesCrawled != 2 {
			t.Errorf("expected 2 pages crawled, got %d", r.PagesCrawled)
		}
		if len(r.Successful()) != 2 || len(r.Failed()) != 1 {
			t.Errorf("unexpected split: %d successful, %d failed", len(r.Successful()), len(r.Failed()))
		}
		if got := r.Order; len(got) != 3 || got[0] != "a" || got[2] != "c" {
			t.Errorf("expected completion order a,b,c, got %v", got)
		}
	})

	t.Run("safe for concurrent use", func(t *testing.T) {
		t.Parallel()

		r := NewCrawlReport("s", CrawlBudget{})
		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				r.AddResult(&PageResult{URL: string(rune('a' + i%26)), Success: true})
			}()
		}
		wg.Wait()

		if r.Len() != 26 {
			t.Errorf("expected 26 unique results, got %d", r.Len())
		}
		if r.PagesCrawled != 26 {
			t.Errorf("expected 26 pages crawled, got %d", r.PagesCrawled)
		}
	})
}

// TestCrawlReportDuration tests duration computation.
func TestCrawlReportDuration(t *testing.T) {
	t.Parallel()

	r := NewCrawlReport("s", CrawlBudget{})
	if r.Duration() != 0 {
		t.Error("expected zero duration before the crawl finishes")
	}

	r.StartedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r.FinishedAt = r.StartedAt.Add(3 * time.Second)
	if r.Duration() != 3*time.Second {
		t.Errorf("expected 3s, got %v", r.Duration())
	}
}

// TestPhaseString tests phase names and JSON encoding.
func TestPhaseString(t *testing.T) {
	t.Parallel()

	if PhaseDraining.String() != "draining" {
		t.Errorf("unexpected name %q", PhaseDraining.String())
	}
	if Phase(42).String() != "unknown" {
		t.Errorf("expected unknown for out of range phase")
	}

	data, err := json.Marshal(struct {
		P Phase `json:"p"`
	}{PhaseDone})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"p":"done"}` {
		t.Errorf("unexpected JSON %s", data)
	}
}
