package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/webxtract/internal/config"
	"github.com/nao1215/webxtract/internal/database"
	"github.com/nao1215/webxtract/internal/model"
	"github.com/nao1215/webxtract/internal/report"
)

// Export formats.
const (
	formatSite     = "site"
	formatJSON     = "json"
	formatMarkdown = "markdown"
	formatText     = "text"
)

// errExportTarget is returned when export gets neither or both of a run
// ID and --seed.
var errExportTarget = errors.New("specify either a run ID or --seed")

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "Export a stored crawl run",
		Long: `Export writes a stored crawl run again without re-crawling it.

Formats:
  site      site_content.json shape: {"<url>": {"url_text": [...], "fit_markdown": "..."}}
  json      full crawl report as JSON
  markdown  crawl summary as Markdown
  text      crawl summary as plain text

Examples:
  # Re-export the latest run of a seed as site_content.json
  webxtract export --seed https://docs.example.com/ -o site_content.json

  # Print a run as JSON (a unique prefix of the run ID is enough)
  webxtract export --format json 01927b3c`,
		Args: cobra.MaximumNArgs(1),
		RunE: runExportCmd,
	}

	cmd.Flags().String("seed", "", "Export the latest run of this seed URL")
	cmd.Flags().StringP("format", "f", formatSite, "Output format: site, json, markdown or text")
	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the crawl history database")

	return cmd
}

// runExportCmd executes the export command.
func runExportCmd(cmd *cobra.Command, args []string) error {
	seed, err := cmd.Flags().GetString("seed")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	outputFile, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	if (seed == "") == (len(args) == 0) {
		return errExportTarget
	}
	switch format {
	case formatSite, formatJSON, formatMarkdown, formatText:
	default:
		return fmt.Errorf("unknown format %q (expected site, json, markdown or text)", format)
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	var runID string
	if seed != "" {
		key, err := seedKey(seed)
		if err != nil {
			return err
		}
		run, err := db.LatestRun(ctx, key)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		runID = run.ID
	} else {
		if runID, err = resolveRun(ctx, db, args[0]); err != nil {
			return err
		}
	}

	crawlReport, err := db.GetCrawlReport(ctx, runID)
	if err != nil {
		return err
	}

	if format == formatSite && outputFile != "" {
		if err := report.SaveSiteContent(outputFile, report.NewSiteContent(crawlReport)); err != nil {
			return fmt.Errorf("failed to write site content: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported run %s to %s\n", runID, outputFile)
		return nil
	}

	return exportReport(crawlReport, format, outputFile, cmd.OutOrStdout())
}

// exportReport writes a report in one of the summary formats.
func exportReport(r *model.CrawlReport, format, outputFile string, stdout io.Writer) error {
	output := stdout
	if outputFile != "" {
		if dir := filepath.Dir(outputFile); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.OpenFile(outputFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var w report.Writer
	switch format {
	case formatSite:
		w = report.NewSiteContentWriter(output)
	case formatJSON:
		w = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case formatMarkdown:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(true), report.WithShowEmpty(true))
	}

	_, err := w.Write(r)
	return err
}
