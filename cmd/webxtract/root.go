package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/webxtract/internal/log"
)

// NewRootCmd creates the root command for webxtract.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webxtract",
		Short: "Crawl a website and extract its pages as markdown",
		Long: `webxtract crawls a website breadth-first, starting from one or more seed URLs,
and extracts each page as markdown together with its internal links.

Crawls are bounded by a maximum link depth and a maximum number of pages,
and are polite by default: a fixed pool of workers, optional request
pacing and a descriptive User-Agent.

Results are written to site_content.json and stored in a local database
so past runs can be listed with 'history' and re-exported with 'export'.
Onion sites can be crawled through Tor with --tor or --tor-proxy.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getLogJSONFlag retrieves the log-json flag from the command or its parent.
func getLogJSONFlag(cmd *cobra.Command) bool {
	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		logJSON, err = cmd.Root().PersistentFlags().GetBool("log-json")
		if err != nil {
			return false
		}
	}
	return logJSON
}

// setupLogger creates the redacting logger for a command and installs it
// as the default logger.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	logger := log.NewLogger(cmd.ErrOrStderr(), log.Options{
		Verbose: getVerboseFlag(cmd),
		JSON:    getLogJSONFlag(cmd),
	})
	slog.SetDefault(logger)
	return logger
}
