package model

import (
	"sort"
	"sync"
	"time"
)

// Phase is the lifecycle state of a crawl run.
type Phase int

const (
	// PhaseSeeding means the seed entry is being pushed.
	PhaseSeeding Phase = iota
	// PhaseRunning means workers are fetching pages.
	PhaseRunning
	// PhaseDraining means no new fetches are admitted; in-flight ones finish.
	PhaseDraining
	// PhaseCancelling means idle workers are being stopped.
	PhaseCancelling
	// PhaseDone means results are final.
	PhaseDone
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case PhaseSeeding:
		return "seeding"
	case PhaseRunning:
		return "running"
	case PhaseDraining:
		return "draining"
	case PhaseCancelling:
		return "cancelling"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// CrawlReport is the aggregated result of one crawl run.
//
// While the crawl runs, workers add results through AddResult, which is
// safe for concurrent use. Once the crawler hands the report back it is
// read-only and the exported fields may be accessed directly.
type CrawlReport struct {
	// RunID identifies the run once it has been stored.
	RunID string `json:"run_id,omitempty"`

	// Seed is the starting URL.
	Seed string `json:"seed"`

	// Budget is the budget the crawl ran with.
	Budget CrawlBudget `json:"budget"`

	// StartedAt is when seeding began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the crawl reached PhaseDone.
	FinishedAt time.Time `json:"finished_at"`

	// PagesCrawled counts results with Success = true.
	PagesCrawled int `json:"pages_crawled"`

	// Results maps each fetched URL to its result.
	Results map[string]*PageResult `json:"results"`

	// Order lists the result keys in completion order.
	Order []string `json:"order"`

	// Drained is true when the crawl ended because no work was left.
	Drained bool `json:"drained"`

	// BudgetExhausted is true when the crawl ended at MaxPages.
	BudgetExhausted bool `json:"budget_exhausted"`

	// Cancelled is true when the caller's context ended the crawl early.
	Cancelled bool `json:"cancelled"`

	// Phase is the final lifecycle phase.
	Phase Phase `json:"phase"`

	// ErrorMessage records a crawl level error, if any.
	ErrorMessage string `json:"error,omitempty"`

	mu sync.Mutex
}

// NewCrawlReport creates an empty report for a seed and budget.
func NewCrawlReport(seed string, budget CrawlBudget) *CrawlReport {
	return &CrawlReport{
		Seed:    seed,
		Budget:  budget,
		Results: make(map[string]*PageResult),
		Order:   make([]string, 0),
	}
}

// AddResult records a page result. It returns false, leaving the report
// untouched, when a result for the same URL already exists.
func (r *CrawlReport) AddResult(result *PageResult) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Results == nil {
		r.Results = make(map[string]*PageResult)
	}
	if _, exists := r.Results[result.URL]; exists {
		return false
	}
	r.Results[result.URL] = result
	r.Order = append(r.Order, result.URL)
	if result.Success {
		r.PagesCrawled++
	}
	return true
}

// Len returns the number of recorded results.
func (r *CrawlReport) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Results)
}

// Successful returns the successful results in completion order.
func (r *CrawlReport) Successful() []*PageResult {
	return r.filter(true)
}

// Failed returns the failed results in completion order.
func (r *CrawlReport) Failed() []*PageResult {
	return r.filter(false)
}

func (r *CrawlReport) filter(success bool) []*PageResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*PageResult, 0, len(r.Order))
	for _, u := range r.Order {
		if res := r.Results[u]; res != nil && res.Success == success {
			out = append(out, res)
		}
	}
	return out
}

// URLs returns the result keys sorted lexically.
func (r *CrawlReport) URLs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	urls := make([]string, 0, len(r.Results))
	for u := range r.Results {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// Duration returns how long the crawl ran.
func (r *CrawlReport) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
