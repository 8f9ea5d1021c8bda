package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/webxtract/internal/config"
	"github.com/nao1215/webxtract/internal/crawler"
	"github.com/nao1215/webxtract/internal/database"
	"github.com/nao1215/webxtract/internal/model"
	"github.com/nao1215/webxtract/internal/pipeline"
	"github.com/nao1215/webxtract/internal/report"
	"github.com/nao1215/webxtract/internal/tor"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>...",
		Short: "Crawl websites and extract their pages as markdown",
		Long: `Crawl fetches pages breadth-first from each seed URL, following links on the
same host, until the depth limit is reached, the page budget is used up or
no links are left.

Every fetched page is converted to markdown. The filtered ("fit") markdown
and the internal links of each page are written to site_content.json:

  {"<url>": {"url_text": [{"text": "...", "href": "..."}], "fit_markdown": "..."}}

Examples:
  # Crawl a site with the default budget (depth 3, 20 pages, 5 workers)
  webxtract crawl https://docs.example.com/

  # Deeper crawl with a larger budget and one request per second
  webxtract crawl -d 5 -p 200 --delay 1s https://docs.example.com/

  # Crawl several sites, two at a time
  webxtract crawl -b 2 https://a.example.com/ https://b.example.com/

  # Keep only the main article of each page
  webxtract crawl --filter readability https://blog.example.com/

  # Crawl an onion site through an embedded Tor daemon
  webxtract crawl --tor http://exampleonion.onion/

  # Print the full crawl report as JSON
  webxtract crawl --json https://docs.example.com/`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCrawlCmd,
	}

	// Budget flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link distance from the seed (0 = seed page only)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of successfully fetched pages per seed")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of crawl workers")

	// Politeness flags
	cmd.Flags().Int("fetch-concurrency", 0,
		"Maximum simultaneous fetches (0 = same as --concurrency)")
	cmd.Flags().Duration("delay", 0,
		"Minimum interval between fetch starts (e.g., 500ms)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page fetch")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")

	// Extraction flags
	cmd.Flags().String("filter", config.DefaultContentFilter,
		"Fit markdown strategy: none, pruning or readability")
	cmd.Flags().StringSlice("exclude-tags", config.DefaultExcludedTags,
		"HTML elements removed before extraction")
	cmd.Flags().Bool("keep-overlays", false,
		"Keep popups, modals and cookie banners")
	cmd.Flags().Bool("keep-external-links", false,
		"Record links to other hosts (they are never followed)")
	cmd.Flags().Bool("keep-social-links", false,
		"Record links to social media sites")

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputFile,
		"Site content JSON file (empty to disable)")
	cmd.Flags().BoolP("json", "j", false,
		"Print the full crawl report as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the crawl summary as Markdown (mutually exclusive with --json)")
	cmd.Flags().StringP("report-file", "r", "",
		"Write the crawl summary to this file (stdout keeps a plain text summary)")
	cmd.Flags().BoolP("quiet", "q", false,
		"Do not print per-page progress")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of seeds crawled concurrently")

	// Tor flags
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and crawl through it")
	cmd.Flags().StringP("tor-proxy", "e", "",
		"Crawl through an external Tor SOCKS5 proxy (e.g., 127.0.0.1:9050)")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Storage flags
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .webxtract in current or home directory)")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the crawl history database")
	cmd.Flags().Bool("no-db", false,
		"Do not store the crawl in the history database")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := newCrawlOutput(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, quiet)
	return runCrawl(ctx, cfg, logger, out)
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.FetchConcurrency, err = flags.GetInt("fetch-concurrency"); err != nil {
		return nil, err
	}
	if cfg.Delay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.ContentFilter, err = flags.GetString("filter"); err != nil {
		return nil, err
	}
	if cfg.ExcludedTags, err = flags.GetStringSlice("exclude-tags"); err != nil {
		return nil, err
	}
	if cfg.KeepOverlays, err = flags.GetBool("keep-overlays"); err != nil {
		return nil, err
	}
	if cfg.KeepExternalLinks, err = flags.GetBool("keep-external-links"); err != nil {
		return nil, err
	}
	if cfg.KeepSocialLinks, err = flags.GetBool("keep-social-links"); err != nil {
		return nil, err
	}
	if cfg.OutputFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report-file"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.UseTor, err = flags.GetBool("tor"); err != nil {
		return nil, err
	}
	if cfg.TorProxyAddress, err = flags.GetString("tor-proxy"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.LogJSON = getLogJSONFlag(cmd)

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	// An explicitly given config file must exist; otherwise a missing file
	// just means no site overrides.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}

	cfg.Seeds = args

	return cfg, nil
}

// checkSeeds rejects unusable seeds before any network activity.
// Onion seeds must have a valid v3 address and need Tor.
func checkSeeds(cfg *config.Config) error {
	for _, seed := range cfg.Seeds {
		u, err := crawler.ParseSeed(seed)
		if err != nil {
			return err
		}
		if !tor.IsOnionHost(u.Host) {
			continue
		}
		if err := tor.ValidateOnionHost(u.Host); err != nil {
			return fmt.Errorf("invalid onion seed %q: %w", seed, err)
		}
		if !cfg.UsesTor() {
			return fmt.Errorf("%s: %w", seed, tor.ErrTorRequired)
		}
	}
	return nil
}

// runCrawl crawls every seed and writes the outputs.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, out *crawlOutput) error {
	if err := checkSeeds(cfg); err != nil {
		return err
	}

	logger.Info("starting crawl",
		"seeds", len(cfg.Seeds),
		"max_depth", cfg.MaxDepth,
		"max_pages", cfg.MaxPages,
		"concurrency", cfg.Concurrency,
		"batch", cfg.BatchSize,
		"tor", cfg.UsesTor(),
	)

	var store pipeline.ReportStore
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		store = db
		logger.Debug("database opened", "path", db.Path())
	}

	crawlOpts := []pipeline.CrawlStepOption{
		pipeline.WithCrawlLogger(logger),
		pipeline.WithCrawlCallback(out.page),
	}

	if cfg.UsesTor() {
		client, stopTor, err := connectTor(ctx, cfg, logger, out.progress)
		if err != nil {
			return err
		}
		defer stopTor()
		crawlOpts = append(crawlOpts,
			pipeline.WithCrawlHTTPClient(client.NewHTTPClient()),
			pipeline.WithCrawlProxyChecker(client),
		)
	}

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			return pipeline.DefaultPipeline(cfg, store, []pipeline.Option{pipeline.WithLogger(logger)}, crawlOpts...)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	startTime := time.Now()
	jobs, batchErr := bp.ProcessBatch(ctx, cfg.Seeds)

	reports := make([]*model.CrawlReport, 0, len(jobs))
	var failures []error
	for _, job := range jobs {
		if job.Report != nil {
			reports = append(reports, job.Report)
			continue
		}
		if job.Err != nil && !errors.Is(job.Err, context.Canceled) {
			out.errorf("Crawl error for %s: %v\n", job.Seed, job.Err)
			failures = append(failures, fmt.Errorf("%s: %w", job.Seed, job.Err))
		}
	}

	if err := writeSummaries(cfg, reports, out.summary()); err != nil {
		logger.Error("failed to write crawl summary", "error", err)
	}

	if err := writeSiteContent(cfg, reports, out, time.Since(startTime)); err != nil {
		return err
	}

	if batchErr != nil {
		return fmt.Errorf("crawl interrupted, partial results kept: %w", batchErr)
	}
	return errors.Join(failures...)
}

// writeSiteContent writes the JSON sink and the closing totals.
func writeSiteContent(cfg *config.Config, reports []*model.CrawlReport, out *crawlOutput, elapsed time.Duration) error {
	total := 0
	for _, r := range reports {
		total += r.PagesCrawled
	}
	out.progressf("\n✅ Crawled %d page(s) in %s\n", total, elapsed.Round(time.Millisecond))

	if cfg.OutputFile == "" {
		return nil
	}
	out.progressf("✅ Writing structured data to: %s\n", cfg.OutputFile)
	if err := report.SaveSiteContent(cfg.OutputFile, report.NewSiteContent(reports...)); err != nil {
		return fmt.Errorf("failed to write site content: %w", err)
	}
	return nil
}

// connectTor returns a client for the configured Tor route and a function
// that releases it.
func connectTor(ctx context.Context, cfg *config.Config, logger *slog.Logger, progress io.Writer) (*tor.Client, func(), error) {
	if cfg.TorProxyAddress != "" {
		client, err := tor.NewClient(cfg.TorProxyAddress, cfg.Timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
		}
		logger.Info("using external Tor proxy", "address", client.ProxyAddress())
		return client, func() {}, nil
	}

	fmt.Fprintln(progress, "Starting embedded Tor daemon...")
	fmt.Fprintf(progress, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embedded := tor.NewEmbeddedTor(tor.WithStartupTimeout(cfg.TorStartupTimeout))
	if err := embedded.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}
	stop := func() {
		logger.Info("stopping embedded Tor daemon")
		if err := embedded.Stop(); err != nil {
			logger.Error("failed to stop embedded Tor", "error", err)
		}
	}

	client, err := embedded.NewClient(cfg.Timeout)
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
	}

	fmt.Fprintf(progress, "Embedded Tor daemon started, SOCKS proxy: %s\n\n", embedded.SocksAddr())
	return client, stop, nil
}

// writeSummaries writes the summary of every report in the requested format.
// With a report file, the file gets the requested format and stdout, when
// not nil, still gets the plain text summary.
func writeSummaries(cfg *config.Config, reports []*model.CrawlReport, stdout io.Writer) error {
	if cfg.ReportFile == "" {
		if stdout == nil {
			return nil
		}
		return writeReports(summaryWriter(cfg, stdout), reports)
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports may quote page content behind a login.
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	writers := []report.Writer{summaryWriter(cfg, f)}
	if stdout != nil {
		writers = append(writers, report.NewSimpleWriter(stdout, report.WithVerbose(cfg.Verbose)))
	}
	return writeReports(report.NewMultiWriter(writers...), reports)
}

func writeReports(w report.Writer, reports []*model.CrawlReport) error {
	for _, r := range reports {
		if _, err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// summaryWriter picks the report writer for the configured format.
func summaryWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}

// crawlOutput routes the user facing output of a crawl.
//
// Progress lines go to stdout, unless a JSON or Markdown summary is
// printed there, in which case they go to stderr so stdout stays parseable.
type crawlOutput struct {
	mu       sync.Mutex
	progress io.Writer
	report   io.Writer
	errOut   io.Writer
	quiet    bool

	reportFile bool
}

func newCrawlOutput(stdout, stderr io.Writer, cfg *config.Config, quiet bool) *crawlOutput {
	progress := stdout
	if cfg.ReportFile == "" && (cfg.JSONReport || cfg.MarkdownReport) {
		progress = stderr
	}
	return &crawlOutput{
		progress: progress,
		report:   stdout,
		errOut:   stderr,
		quiet:    quiet,

		reportFile: cfg.ReportFile != "",
	}
}

// page prints the progress line of one page result.
func (o *crawlOutput) page(result *model.PageResult, pagesCrawled int) {
	if o.quiet {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if !result.Success {
		fmt.Fprintf(o.progress, "[ERROR] Failed to crawl: %s — %s\n", result.URL, result.Error)
		return
	}

	fmt.Fprintf(o.progress, "[✓] (%d) Crawled: %s\n", pagesCrawled, result.URL)
	if result.Warning != "" {
		fmt.Fprintf(o.progress, "[!] Warning: Markdown extraction failed for %s — %s\n", result.URL, result.Warning)
		return
	}
	fmt.Fprintf(o.progress, "    Full Markdown Length: %d\n", len(result.RawMarkdown))
	fmt.Fprintf(o.progress, "    Fit Markdown Length: %d\n", len(result.Content))
}

// summary returns where the summary goes besides the report file.
// Quiet runs with a report file print nothing.
func (o *crawlOutput) summary() io.Writer {
	if o.quiet && o.reportFile {
		return nil
	}
	return o.report
}

func (o *crawlOutput) progressf(format string, args ...any) {
	if o.quiet {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.progress, format, args...)
}

func (o *crawlOutput) errorf(format string, args ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.errOut, format, args...)
}
