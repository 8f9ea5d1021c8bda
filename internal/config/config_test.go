package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/webxtract/internal/model"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
// Tests fail if defaults change unexpectedly.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default budget is depth 3, 20 pages, 5 workers", func(t *testing.T) {
		t.Parallel()
		want := model.CrawlBudget{MaxDepth: 3, MaxPages: 20, Concurrency: 5}
		if cfg.Budget() != want {
			t.Errorf("expected budget %+v, got %+v", want, cfg.Budget())
		}
	})

	t.Run("default output is site_content.json", func(t *testing.T) {
		t.Parallel()
		if cfg.OutputFile != "site_content.json" {
			t.Errorf("expected OutputFile to be 'site_content.json', got '%s'", cfg.OutputFile)
		}
	})

	t.Run("default excluded tags are nav, footer and aside", func(t *testing.T) {
		t.Parallel()
		if len(cfg.ExcludedTags) != 3 || cfg.ExcludedTags[0] != "nav" || cfg.ExcludedTags[2] != "aside" {
			t.Errorf("unexpected excluded tags %v", cfg.ExcludedTags)
		}
	})

	t.Run("default Timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout to be 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("Tor is off by default", func(t *testing.T) {
		t.Parallel()
		if cfg.UsesTor() {
			t.Error("expected Tor to be disabled")
		}
	})

	t.Run("database is enabled in the XDG data dir", func(t *testing.T) {
		t.Parallel()
		if !cfg.SaveToDB || cfg.DBDir != XDGDataDir() {
			t.Errorf("expected database in %q, got %q (save=%v)", XDGDataDir(), cfg.DBDir, cfg.SaveToDB)
		}
	})

	t.Run("default excluded tags are not shared", func(t *testing.T) {
		t.Parallel()
		other := NewConfig()
		other.ExcludedTags[0] = "header"
		if DefaultExcludedTags[0] != "nav" {
			t.Error("expected DefaultExcludedTags to be unchanged")
		}
	})
}

// TestConfigValidate tests configuration validation.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := NewConfig()
		cfg.Seeds = []string{"https://example.com"}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   error
	}{
		{"valid config", func(_ *Config) {}, nil},
		{"depth 0 is valid", func(c *Config) { c.MaxDepth = 0 }, nil},
		{"no seeds", func(c *Config) { c.Seeds = nil }, ErrNoSeed},
		{"negative depth", func(c *Config) { c.MaxDepth = -1 }, ErrInvalidMaxDepth},
		{"zero pages", func(c *Config) { c.MaxPages = 0 }, ErrInvalidMaxPages},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, ErrInvalidConcurrency},
		{"negative fetch concurrency", func(c *Config) { c.FetchConcurrency = -1 }, ErrInvalidFetchConcurrency},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, ErrInvalidBatchSize},
		{"json and markdown", func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, ErrConflictingReportFormats},
		{"tor and tor proxy", func(c *Config) { c.UseTor, c.TorProxyAddress = true, "127.0.0.1:9050" }, ErrConflictingTorOptions},
		{"negative delay", func(c *Config) { c.Delay = -time.Second }, ErrInvalidDelay},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"unknown content filter", func(c *Config) { c.ContentFilter = "bm25" }, ErrInvalidContentFilter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

// TestConfigFetchConfig tests the conversion to fetch options.
func TestConfigFetchConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.ContentFilter = "readability"
	cfg.ExcludedTags = []string{"header"}
	cfg.KeepOverlays = true

	fc, err := cfg.FetchConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fc.ContentFilter != model.ContentFilterReadability {
		t.Errorf("expected readability filter, got %q", fc.ContentFilter)
	}
	if len(fc.ExcludedTags) != 1 || fc.ExcludedTags[0] != "header" {
		t.Errorf("unexpected excluded tags %v", fc.ExcludedTags)
	}
	if fc.RemoveOverlayElements {
		t.Error("expected overlays to be kept")
	}
	if !fc.ExcludeExternalLinks || !fc.ExcludeSocialMediaLinks {
		t.Error("expected external and social links to be excluded")
	}

	cfg.KeepExternalLinks = true
	cfg.KeepSocialLinks = true
	fc, err = cfg.FetchConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fc.ExcludeExternalLinks || fc.ExcludeSocialMediaLinks {
		t.Error("expected external and social links to be kept")
	}
}

func intPtr(v int) *int { return &v }

// TestFileGetSiteConfig tests the GetSiteConfig method.
func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	t.Run("returns defaults when site not found", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{
				Depth:  intPtr(2),
				Cookie: "default_cookie=abc",
			},
			Sites: map[string]SiteConfig{},
		}

		cfg := file.GetSiteConfig("unknown.example.com")
		if cfg.Depth == nil || *cfg.Depth != 2 {
			t.Errorf("expected depth 2, got %v", cfg.Depth)
		}
		if cfg.Cookie != "default_cookie=abc" {
			t.Errorf("expected default cookie, got %q", cfg.Cookie)
		}
	})

	t.Run("returns site-specific config", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{Depth: intPtr(2), Cookie: "default_cookie=abc"},
			Sites: map[string]SiteConfig{
				"docs.example.com": {Depth: intPtr(5), MaxPages: 50, Cookie: "session=xyz"},
			},
		}

		cfg := file.GetSiteConfig("docs.example.com")
		if *cfg.Depth != 5 || cfg.MaxPages != 50 {
			t.Errorf("expected depth 5 and 50 pages, got %d and %d", *cfg.Depth, cfg.MaxPages)
		}
		if cfg.Cookie != "session=xyz" {
			t.Errorf("expected site cookie, got %q", cfg.Cookie)
		}
	})

	t.Run("depth zero is an override", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{Depth: intPtr(3)},
			Sites: map[string]SiteConfig{
				"example.com": {Depth: intPtr(0)},
			},
		}

		cfg := file.GetSiteConfig("example.com")
		if cfg.Depth == nil || *cfg.Depth != 0 {
			t.Errorf("expected depth 0, got %v", cfg.Depth)
		}
	})

	t.Run("lookup ignores case and port", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Sites: map[string]SiteConfig{
				"Example.com": {Cookie: "a=b"},
			},
		}

		if cfg := file.GetSiteConfig("example.COM:8080"); cfg.Cookie != "a=b" {
			t.Errorf("expected site cookie, got %q", cfg.Cookie)
		}
	})

	t.Run("merges headers without mutating defaults", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{
				Headers: map[string]string{"X-Default": "value1", "Authorization": "default-token"},
			},
			Sites: map[string]SiteConfig{
				"example.com": {
					Headers: map[string]string{"X-Custom": "value2", "Authorization": "site-token"},
				},
			},
		}

		cfg := file.GetSiteConfig("example.com")
		if cfg.Headers["X-Default"] != "value1" || cfg.Headers["X-Custom"] != "value2" {
			t.Errorf("expected merged headers, got %v", cfg.Headers)
		}
		if cfg.Headers["Authorization"] != "site-token" {
			t.Errorf("expected site token to override, got %q", cfg.Headers["Authorization"])
		}
		if file.Defaults.Headers["Authorization"] != "default-token" {
			t.Error("expected defaults to be untouched")
		}
		if _, ok := file.Defaults.Headers["X-Custom"]; ok {
			t.Error("expected site header not to leak into defaults")
		}
	})

	t.Run("site lists override defaults", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{
				ExcludedTags:   []string{"nav"},
				IgnorePatterns: []string{"/default/*"},
				FollowPatterns: []string{"/default-follow/*"},
			},
			Sites: map[string]SiteConfig{
				"example.com": {
					ExcludedTags:   []string{"header", "footer"},
					IgnorePatterns: []string{"/admin/*"},
					FollowPatterns: []string{"/docs/*"},
				},
			},
		}

		cfg := file.GetSiteConfig("example.com")
		if len(cfg.ExcludedTags) != 2 {
			t.Errorf("expected site excluded tags, got %v", cfg.ExcludedTags)
		}
		if len(cfg.IgnorePatterns) != 1 || cfg.IgnorePatterns[0] != "/admin/*" {
			t.Errorf("expected site ignore patterns, got %v", cfg.IgnorePatterns)
		}
		if len(cfg.FollowPatterns) != 1 || cfg.FollowPatterns[0] != "/docs/*" {
			t.Errorf("expected site follow patterns, got %v", cfg.FollowPatterns)
		}
	})

	t.Run("config without file returns zero site config", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		if sc := cfg.SiteConfig("example.com"); sc.Depth != nil || sc.Cookie != "" {
			t.Errorf("expected zero value, got %+v", sc)
		}
	})
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.webxtract")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".webxtract")
		content := `defaults:
  depth: 2
  cookie: "default=abc"
sites:
  docs.example.com:
    depth: 0
    maxPages: 100
    cookie: "session=xyz"
    headers:
      Authorization: "Bearer token"
    excludedTags:
      - header
    ignorePatterns:
      - "/admin/*"
    followPatterns:
      - "/guide/*"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Defaults.Depth == nil || *cfg.Defaults.Depth != 2 {
			t.Errorf("expected default depth 2, got %v", cfg.Defaults.Depth)
		}

		site, ok := cfg.Sites["docs.example.com"]
		if !ok {
			t.Fatal("expected docs.example.com in sites")
		}
		if site.Depth == nil || *site.Depth != 0 {
			t.Errorf("expected explicit depth 0, got %v", site.Depth)
		}
		if site.MaxPages != 100 {
			t.Errorf("expected 100 pages, got %d", site.MaxPages)
		}
		if site.Headers["Authorization"] != "Bearer token" {
			t.Errorf("expected Authorization header")
		}
		if len(site.ExcludedTags) != 1 || len(site.IgnorePatterns) != 1 || len(site.FollowPatterns) != 1 {
			t.Errorf("unexpected lists %+v", site)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".webxtract")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".webxtract")
		if err := os.WriteFile(configPath, []byte("defaults:\n  maxPages: 5\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Run("returns explicit path if exists", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})

	t.Run("finds file in current directory", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)

		if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		result := FindConfigFile("")
		if filepath.Base(result) != DefaultConfigFile {
			t.Errorf("expected %s to be found, got %q", DefaultConfigFile, result)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if filepath.Base(XDGDataDir()) != AppName {
		t.Errorf("expected data dir to end in %s, got %q", AppName, XDGDataDir())
	}
	if filepath.Base(XDGConfigDir()) != AppName {
		t.Errorf("expected config dir to end in %s, got %q", AppName, XDGConfigDir())
	}
}
