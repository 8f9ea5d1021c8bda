package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/webxtract/internal/model"
)

// Default configuration values.
// Budget and fetch defaults follow the site content extractor this tool
// replaces.
const (
	// DefaultMaxDepth is the maximum link distance from the seed.
	DefaultMaxDepth = 3

	// DefaultMaxPages is the maximum number of successfully fetched pages per seed.
	DefaultMaxPages = 20

	// DefaultConcurrency is the number of crawl workers.
	DefaultConcurrency = 5

	// DefaultTimeout is the per-fetch timeout. Onion sites may need more.
	DefaultTimeout = 30 * time.Second

	// DefaultBatchSize of 1 crawls seeds one after another.
	DefaultBatchSize = 1

	// DefaultOutputFile is the JSON sink written after every crawl.
	DefaultOutputFile = "site_content.json"

	// DefaultContentFilter selects the fit markdown strategy.
	DefaultContentFilter = string(model.ContentFilterPruning)

	// AppName is the application name used for XDG directory paths.
	AppName = "webxtract"

	// DefaultUserAgent identifies webxtract in HTTP requests.
	DefaultUserAgent = "webxtract/1.0 (+https://github.com/nao1215/webxtract)"

	// DefaultMaxBodySize limits the response body size read per page.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// DefaultExcludedTags are the HTML elements removed before extraction.
var DefaultExcludedTags = []string{"nav", "footer", "aside"}

// Config holds all configuration options for webxtract.
// It is populated from CLI flags and the config file and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity.
type Config struct {
	// Seeds are the start URLs. Each seed gets an independent crawl.
	Seeds []string

	// MaxDepth is the maximum link distance from the seed.
	// Depth 0 means only fetch the seed page.
	MaxDepth int

	// MaxPages is the maximum number of successfully fetched pages per seed.
	MaxPages int

	// Concurrency is the number of workers polling the frontier.
	Concurrency int

	// FetchConcurrency caps simultaneous fetches across the pool.
	// 0 means the same as Concurrency.
	FetchConcurrency int

	// Delay is the minimum interval between fetch starts.
	// 0 disables pacing.
	Delay time.Duration

	// Timeout is the per-fetch timeout.
	Timeout time.Duration

	// ContentFilter is the fit markdown strategy: none, pruning or readability.
	ContentFilter string

	// ExcludedTags are HTML elements removed before extraction.
	ExcludedTags []string

	// KeepOverlays disables popup and cookie banner removal.
	KeepOverlays bool

	// KeepExternalLinks records links leaving the site on each page.
	// External links are never followed.
	KeepExternalLinks bool

	// KeepSocialLinks records links to social media sites.
	KeepSocialLinks bool

	// OutputFile is the JSON sink path. Empty disables the sink.
	OutputFile string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// LogJSON switches the log handler to JSON lines.
	LogJSON bool

	// BatchSize is the number of seeds crawled concurrently.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the standard locations are searched (see FindConfigFile).
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config file.
	SiteConfigs *File

	// JSONReport prints the full crawl report as JSON.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport prints the crawl summary as GitHub Flavored Markdown.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the summary report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// UseTor starts an embedded Tor daemon and routes every fetch through it.
	UseTor bool

	// TorProxyAddress routes every fetch through an external Tor SOCKS5
	// proxy in "host:port" format. Empty means no external proxy.
	TorProxyAddress string

	// TorStartupTimeout is the maximum time to wait for the embedded daemon.
	TorStartupTimeout time.Duration

	// DBDir is the directory holding the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/webxtract on Linux).
	DBDir string

	// SaveToDB stores every crawl report in the database.
	SaveToDB bool

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., depth, page budget).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		MaxDepth:          DefaultMaxDepth,
		MaxPages:          DefaultMaxPages,
		Concurrency:       DefaultConcurrency,
		Timeout:           DefaultTimeout,
		ContentFilter:     DefaultContentFilter,
		ExcludedTags:      append([]string(nil), DefaultExcludedTags...),
		OutputFile:        DefaultOutputFile,
		BatchSize:         DefaultBatchSize,
		TorStartupTimeout: DefaultTorStartupTimeout,
		DBDir:             XDGDataDir(),
		SaveToDB:          true,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for webxtract.
// On Linux: ~/.local/share/webxtract
// On macOS: ~/Library/Application Support/webxtract
// On Windows: %LOCALAPPDATA%\webxtract
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for webxtract.
// On Linux: ~/.config/webxtract
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Budget returns the crawl budget of a single seed before site overrides.
func (c *Config) Budget() model.CrawlBudget {
	return model.CrawlBudget{
		MaxDepth:    c.MaxDepth,
		MaxPages:    c.MaxPages,
		Concurrency: c.Concurrency,
	}
}

// FetchConfig returns the per-page fetch options.
func (c *Config) FetchConfig() (model.FetchConfig, error) {
	filter, err := model.ParseContentFilter(c.ContentFilter)
	if err != nil {
		return model.FetchConfig{}, fmt.Errorf("%w: %w", ErrInvalidContentFilter, err)
	}

	cfg := model.DefaultFetchConfig()
	cfg.ExcludedTags = append([]string(nil), c.ExcludedTags...)
	cfg.RemoveOverlayElements = !c.KeepOverlays
	cfg.ExcludeExternalLinks = !c.KeepExternalLinks
	cfg.ExcludeSocialMediaLinks = !c.KeepSocialLinks
	cfg.ContentFilter = filter
	return cfg, nil
}

// UsesTor reports whether fetches are routed through Tor.
func (c *Config) UsesTor() bool {
	return c.UseTor || c.TorProxyAddress != ""
}

// SiteConfig returns the merged file configuration for host, or the zero
// value when no config file was loaded.
func (c *Config) SiteConfig(host string) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}
	return c.SiteConfigs.GetSiteConfig(host)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}

	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}

	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.FetchConcurrency < 0 {
		return ErrInvalidFetchConcurrency
	}

	// Timeout must be positive; zero timeout would cause immediate failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.UseTor && c.TorProxyAddress != "" {
		return ErrConflictingTorOptions
	}

	if c.Delay < 0 {
		return ErrInvalidDelay
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if _, err := c.FetchConfig(); err != nil {
		return err
	}

	return nil
}
