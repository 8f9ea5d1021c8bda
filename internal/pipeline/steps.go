package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nao1215/webxtract/internal/config"
	"github.com/nao1215/webxtract/internal/crawler"
	"github.com/nao1215/webxtract/internal/database"
	"github.com/nao1215/webxtract/internal/fetcher"
	"github.com/nao1215/webxtract/internal/model"
	"github.com/nao1215/webxtract/internal/tor"
)

// CrawlStep crawls the job's seed and stores the report in the job.
//
// Site overrides from the configuration file are applied per seed host:
// cookie and headers go to the fetcher, depth and page budget to the
// crawl budget, excluded tags to the fetch config, and path patterns to
// the link filter.
type CrawlStep struct {
	cfg *config.Config

	// client routes requests through Tor when set.
	client *http.Client

	// proxy is checked before the first fetch when set.
	proxy fetcher.ProxyChecker

	// pageFetcher replaces the HTTP fetcher when set.
	pageFetcher crawler.PageFetcher

	callback crawler.PageCallback
	logger   *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlHTTPClient sets the HTTP client used for every page, for
// example one routed through Tor. Onion seeds are refused without it.
func WithCrawlHTTPClient(client *http.Client) CrawlStepOption {
	return func(s *CrawlStep) {
		s.client = client
	}
}

// WithCrawlProxyChecker sets a proxy that must answer before crawling.
func WithCrawlProxyChecker(p fetcher.ProxyChecker) CrawlStepOption {
	return func(s *CrawlStep) {
		s.proxy = p
	}
}

// WithCrawlFetcher sets the page fetcher. Site credentials are not
// applied to a fetcher set this way.
func WithCrawlFetcher(f crawler.PageFetcher) CrawlStepOption {
	return func(s *CrawlStep) {
		s.pageFetcher = f
	}
}

// WithCrawlCallback registers a function called after every page result.
func WithCrawlCallback(cb crawler.PageCallback) CrawlStepOption {
	return func(s *CrawlStep) {
		s.callback = cb
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a crawl step for cfg.
func NewCrawlStep(cfg *config.Config, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		cfg:    cfg,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step.
//
// A cancelled crawl is not an error here: the partial report is kept in
// the job and the pipeline decides what still runs.
func (s *CrawlStep) Do(ctx context.Context, job *Job) error {
	seed, err := crawler.ParseSeed(job.Seed)
	if err != nil {
		return err
	}

	if tor.IsOnionHost(seed.Host) {
		if err := tor.ValidateOnionHost(seed.Host); err != nil {
			return fmt.Errorf("%w: %w", crawler.ErrInvalidSeed, err)
		}
		if s.client == nil && s.pageFetcher == nil {
			return tor.ErrTorRequired
		}
	}

	site := s.cfg.SiteConfig(seed.Host)

	fetchCfg, err := s.cfg.FetchConfig()
	if err != nil {
		return err
	}
	if len(site.ExcludedTags) > 0 {
		fetchCfg.ExcludedTags = append([]string(nil), site.ExcludedTags...)
	}

	budget := s.cfg.Budget()
	if site.Depth != nil {
		budget.MaxDepth = *site.Depth
	}
	if site.MaxPages > 0 {
		budget.MaxPages = site.MaxPages
	}

	opts := []crawler.Option{
		crawler.WithBudget(budget),
		crawler.WithFetchConcurrency(s.cfg.FetchConcurrency),
		crawler.WithDelay(s.cfg.Delay),
		crawler.WithFetchConfig(fetchCfg),
		crawler.WithLogger(s.logger),
	}
	if len(site.IgnorePatterns) > 0 {
		opts = append(opts, crawler.WithIgnorePatterns(site.IgnorePatterns))
	}
	if len(site.FollowPatterns) > 0 {
		opts = append(opts, crawler.WithFollowPatterns(site.FollowPatterns))
	}
	if s.callback != nil {
		opts = append(opts, crawler.WithPageCallback(s.callback))
	}

	orchestrator := crawler.NewOrchestrator(s.newFetcher(site), opts...)
	report, err := orchestrator.Run(ctx, seed.String())
	if report != nil {
		job.Report = report
	}
	if err != nil {
		if report != nil && ctx.Err() != nil {
			s.logger.Warn("crawl cancelled, keeping partial results",
				"seed", report.Seed,
				"pages_crawled", report.PagesCrawled,
			)
			return nil
		}
		return err
	}

	return nil
}

func (s *CrawlStep) newFetcher(site config.SiteConfig) crawler.PageFetcher {
	if s.pageFetcher != nil {
		return s.pageFetcher
	}

	opts := []fetcher.Option{
		fetcher.WithUserAgent(s.cfg.UserAgent),
		fetcher.WithMaxBodySize(s.cfg.MaxBodySize),
		fetcher.WithTimeout(s.cfg.Timeout),
		fetcher.WithLogger(s.logger),
	}
	if s.client != nil {
		opts = append(opts, fetcher.WithHTTPClient(s.client))
	}
	if s.proxy != nil {
		opts = append(opts, fetcher.WithProxyChecker(s.proxy))
	}
	if site.Cookie != "" || len(site.Headers) > 0 {
		opts = append(opts, fetcher.WithSiteCredentials(site.Cookie, site.Headers))
	}

	return fetcher.New(opts...)
}

// ReportStore persists crawl reports. database.CrawlDB implements it.
type ReportStore interface {
	SaveCrawlReport(ctx context.Context, report *model.CrawlReport) (string, error)
}

var _ ReportStore = (*database.CrawlDB)(nil)

// PersistStep stores the job's report, assigning it a run ID.
// It also runs after cancellation, so partial crawls are kept.
type PersistStep struct {
	store  ReportStore
	logger *slog.Logger
}

// PersistStepOption configures a PersistStep.
type PersistStepOption func(*PersistStep)

// WithPersistLogger sets a custom logger for the persist step.
func WithPersistLogger(logger *slog.Logger) PersistStepOption {
	return func(s *PersistStep) {
		s.logger = logger
	}
}

// NewPersistStep creates a step that saves reports to store.
func NewPersistStep(store ReportStore, opts ...PersistStepOption) *PersistStep {
	s := &PersistStep{
		store:  store,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// RunsAfterCancel reports that partial reports are stored too.
func (s *PersistStep) RunsAfterCancel() bool {
	return true
}

// Do executes the persist step.
func (s *PersistStep) Do(ctx context.Context, job *Job) error {
	if job.Report == nil {
		s.logger.Debug("nothing to save", "seed", job.Seed)
		return nil
	}

	runID, err := s.store.SaveCrawlReport(ctx, job.Report)
	if err != nil {
		return fmt.Errorf("failed to save crawl report: %w", err)
	}

	s.logger.Info("crawl report saved",
		"seed", job.Seed,
		"run_id", runID,
		"pages", job.Report.Len(),
	)
	return nil
}

// DefaultPipeline creates the standard pipeline: crawl, then persist when
// store is non-nil.
func DefaultPipeline(cfg *config.Config, store ReportStore, pipelineOpts []Option, crawlOpts ...CrawlStepOption) *Pipeline {
	p := New(pipelineOpts...)
	steps := []Step{NewCrawlStep(cfg, crawlOpts...)}
	if store != nil {
		steps = append(steps, NewPersistStep(store, WithPersistLogger(p.logger)))
	}
	p.AddSteps(steps...)
	return p
}
