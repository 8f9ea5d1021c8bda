package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/nao1215/webxtract/internal/model"
)

// Default crawl settings, matching the site content extractor this tool
// replaces.
const (
	// DefaultMaxDepth is the default link distance from the seed.
	DefaultMaxDepth = 3

	// DefaultMaxPages is the default number of pages to crawl.
	DefaultMaxPages = 20

	// DefaultConcurrency is the default number of workers.
	DefaultConcurrency = 5
)

// PageCallback is called after every page result is recorded.
// pagesCrawled is the number of successful pages so far.
// Callbacks run on worker goroutines and may be called concurrently.
type PageCallback func(result *model.PageResult, pagesCrawled int)

// Orchestrator runs bounded breadth-first crawls with a pool of workers.
//
// Design decision: We separate the orchestrator from the page fetcher
// because:
//  1. Rendering and markdown extraction are replaceable collaborators
//  2. Traversal, deduplication and budgets can be tested with an in-memory graph
//  3. The same orchestrator runs over plain HTTP or through Tor
//
// An Orchestrator holds configuration only. Every call to Run creates its
// own frontier, visited set and counters, so independent crawls can run
// concurrently on the same Orchestrator.
type Orchestrator struct {
	fetcher PageFetcher

	// budget bounds depth, page count and worker count.
	budget model.CrawlBudget

	// fetchConcurrency limits simultaneous fetches across all workers.
	// It may be lower than the worker count to be polite to the target.
	fetchConcurrency int

	// delay is the minimum interval between fetch starts.
	delay time.Duration

	// fetchConfig is handed to the fetcher for every page.
	fetchConfig model.FetchConfig

	// ignorePatterns are URL path patterns to skip during crawling.
	ignorePatterns []string

	// followPatterns restrict crawling to matching paths when set.
	followPatterns []string

	logger   *slog.Logger
	callback PageCallback
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the seed page, 1 = seed plus linked pages, etc.
func WithMaxDepth(depth int) Option {
	return func(o *Orchestrator) {
		o.budget.MaxDepth = depth
	}
}

// WithMaxPages sets the maximum number of successfully fetched pages.
func WithMaxPages(maxPages int) Option {
	return func(o *Orchestrator) {
		o.budget.MaxPages = maxPages
	}
}

// WithConcurrency sets the number of workers polling the frontier.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		o.budget.Concurrency = n
	}
}

// WithBudget sets depth, page and worker limits at once.
func WithBudget(b model.CrawlBudget) Option {
	return func(o *Orchestrator) {
		o.budget = b
	}
}

// WithFetchConcurrency limits how many fetches run at the same time.
// Zero or a negative value means one fetch per worker.
func WithFetchConcurrency(n int) Option {
	return func(o *Orchestrator) {
		o.fetchConcurrency = n
	}
}

// WithDelay sets the minimum interval between fetch starts.
func WithDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.delay = d
	}
}

// WithFetchConfig sets the options handed to the page fetcher.
func WithFetchConfig(cfg model.FetchConfig) Option {
	return func(o *Orchestrator) {
		o.fetchConfig = cfg
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
func WithIgnorePatterns(patterns []string) Option {
	return func(o *Orchestrator) {
		o.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only URLs matching at least one pattern are crawled.
// The seed is always fetched.
func WithFollowPatterns(patterns []string) Option {
	return func(o *Orchestrator) {
		o.followPatterns = patterns
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithPageCallback registers a function called after each page result.
func WithPageCallback(cb PageCallback) Option {
	return func(o *Orchestrator) {
		o.callback = cb
	}
}

// NewOrchestrator creates an Orchestrator that fetches pages with fetcher.
func NewOrchestrator(fetcher PageFetcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher: fetcher,
		budget: model.CrawlBudget{
			MaxDepth:    DefaultMaxDepth,
			MaxPages:    DefaultMaxPages,
			Concurrency: DefaultConcurrency,
		},
		fetchConfig: model.DefaultFetchConfig(),
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Budget returns the configured crawl budget.
func (o *Orchestrator) Budget() model.CrawlBudget {
	return o.budget
}

// crawlState is the shared mutable state of one run.
type crawlState struct {
	report   *model.CrawlReport
	frontier *Frontier
	visited  *VisitedSet
	budget   *pageBudget
	filter   linkFilter
	limiter  *rate.Limiter
	fetchSem *semaphore.Weighted

	// stopping is the cooperative stop flag checked by workers.
	stopping atomic.Bool
}

// Run crawls from seed and returns the aggregated report.
//
// The crawl moves through Seeding, Running, Draining, Cancelling and Done.
// It ends when the frontier drains, when MaxPages pages have been fetched
// successfully, or when ctx is cancelled. Fetches already in progress are
// always allowed to finish so their results are kept.
//
// Per-page failures are recorded in the report and never returned. Run
// returns a nil report only when the crawl could not start: an invalid
// budget or seed, or a fetcher whose Start method fails (ErrSetup). When
// ctx is cancelled the partial report is returned together with ctx.Err().
func (o *Orchestrator) Run(ctx context.Context, seed string) (*model.CrawlReport, error) {
	if o.fetcher == nil {
		return nil, ErrNoFetcher
	}
	if err := o.budget.Validate(); err != nil {
		return nil, err
	}

	start, err := ParseSeed(seed)
	if err != nil {
		return nil, err
	}

	if starter, ok := o.fetcher.(Starter); ok {
		if err := starter.Start(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSetup, err)
		}
	}

	seedURL := NormalizeURL(start.String())
	report := model.NewCrawlReport(seedURL, o.budget)
	report.StartedAt = time.Now()

	st := o.newCrawlState(report, start)
	o.setPhase(report, model.PhaseSeeding)
	st.visited.TryMark(seedURL)
	st.frontier.Push(Entry{URL: seedURL, Depth: 0})

	// Wake workers blocked on the frontier or the budget when the caller
	// gives up. In-flight fetches are not interrupted.
	stop := context.AfterFunc(ctx, func() {
		st.budget.close()
		st.frontier.Close()
	})
	defer stop()

	var g errgroup.Group
	for i := range o.budget.Concurrency {
		g.Go(func() error {
			o.worker(ctx, st, i)
			return nil
		})
	}
	o.setPhase(report, model.PhaseRunning)

	select {
	case <-st.frontier.Drained():
	case <-st.budget.Exhausted():
	case <-ctx.Done():
	}

	o.setPhase(report, model.PhaseDraining)
	o.logger.Debug("waiting for in-flight fetches", "seed", seedURL, "in_flight", st.frontier.InFlight())
	st.budget.close()
	st.budget.waitIdle()

	o.setPhase(report, model.PhaseCancelling)
	st.stopping.Store(true)
	st.frontier.Close()
	_ = g.Wait()

	report.FinishedAt = time.Now()
	report.Drained = st.frontier.IsDrained()
	report.BudgetExhausted = st.budget.isExhausted()
	// Drained and BudgetExhausted exclude each other: the commit that uses
	// the last page closes the frontier before its entry is released.
	report.Cancelled = ctx.Err() != nil && !report.Drained && !report.BudgetExhausted
	o.setPhase(report, model.PhaseDone)

	o.logger.Info("crawl finished",
		"seed", seedURL,
		"pages_crawled", report.PagesCrawled,
		"results", report.Len(),
		"discarded", st.frontier.Discarded(),
		"drained", report.Drained,
		"budget_exhausted", report.BudgetExhausted,
		"duration", report.Duration(),
	)

	if report.Cancelled {
		report.ErrorMessage = ctx.Err().Error()
		return report, ctx.Err()
	}
	return report, nil
}

func (o *Orchestrator) newCrawlState(report *model.CrawlReport, start *url.URL) *crawlState {
	fetchConcurrency := o.fetchConcurrency
	if fetchConcurrency <= 0 {
		fetchConcurrency = o.budget.Concurrency
	}

	var limiter *rate.Limiter
	if o.delay > 0 {
		limiter = rate.NewLimiter(rate.Every(o.delay), 1)
	}

	frontier := NewFrontier()
	budget := newPageBudget(o.budget.MaxPages)
	budget.onExhausted = frontier.Close

	return &crawlState{
		report:   report,
		frontier: frontier,
		visited:  NewVisitedSet(),
		budget:   budget,
		filter: linkFilter{
			host:           start.Host,
			ignorePatterns: o.ignorePatterns,
			followPatterns: o.followPatterns,
		},
		limiter:  limiter,
		fetchSem: semaphore.NewWeighted(int64(fetchConcurrency)),
	}
}

func (o *Orchestrator) setPhase(report *model.CrawlReport, phase model.Phase) {
	report.Phase = phase
	o.logger.Debug("crawl phase", "seed", report.Seed, "phase", phase.String())
}

// ParseSeed validates a seed URL and defaults a missing scheme to http.
func ParseSeed(seed string) (*url.URL, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return nil, fmt.Errorf("%w: empty URL", ErrInvalidSeed)
	}
	if !strings.Contains(seed, "://") {
		seed = "http://" + seed
	}

	u, err := url.Parse(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidSeed, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidSeed, seed)
	}
	return u, nil
}
