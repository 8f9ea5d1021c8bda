package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/webxtract/internal/config"
	"github.com/nao1215/webxtract/internal/crawler"
	"github.com/nao1215/webxtract/internal/database"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "List stored crawl runs",
		Long: `History lists the crawl runs stored in the local database, newest first.
Pass a seed URL to list only the runs of that seed.

Examples:
  # List every stored run
  webxtract history

  # List the runs of one seed
  webxtract history https://docs.example.com/

  # Delete a run (a unique prefix of its ID is enough)
  webxtract history --delete 01927b3c`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the crawl history database")
	cmd.Flags().String("delete", "", "Delete the run with this ID or ID prefix")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	deleteID, err := cmd.Flags().GetString("delete")
	if err != nil {
		return err
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if deleteID != "" {
		return deleteRun(ctx, db, out, deleteID)
	}

	seed := ""
	if len(args) == 1 {
		if seed, err = seedKey(args[0]); err != nil {
			return err
		}
	}
	return listRuns(ctx, db, out, seed)
}

// seedKey converts user input to the seed form stored with each run.
func seedKey(seed string) (string, error) {
	u, err := crawler.ParseSeed(seed)
	if err != nil {
		return "", err
	}
	return crawler.NormalizeURL(u.String()), nil
}

// resolveRun expands a run ID prefix with a readable error.
func resolveRun(ctx context.Context, db *database.CrawlDB, prefix string) (string, error) {
	id, err := db.ResolveRunID(ctx, prefix)
	switch {
	case errors.Is(err, database.ErrRunNotFound):
		return "", fmt.Errorf("%w: %s (use 'webxtract history' to list runs)", err, prefix)
	case errors.Is(err, database.ErrAmbiguousRunID):
		return "", fmt.Errorf("%w: %s (use a longer prefix)", err, prefix)
	case err != nil:
		return "", err
	}
	return id, nil
}

func deleteRun(ctx context.Context, db *database.CrawlDB, out io.Writer, prefix string) error {
	id, err := resolveRun(ctx, db, prefix)
	if err != nil {
		return err
	}
	if err := db.DeleteRun(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted run %s\n", id)
	return nil
}

func listRuns(ctx context.Context, db *database.CrawlDB, out io.Writer, seed string) error {
	runs, err := db.ListRuns(ctx, seed)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		if seed != "" {
			fmt.Fprintf(out, "No crawl history found for %s\n", seed)
		} else {
			fmt.Fprintln(out, "No crawl history found.")
		}
		fmt.Fprintln(out, "\nUse 'webxtract crawl <url>' to crawl a site.")
		return nil
	}

	if seed != "" {
		fmt.Fprintf(out, "Crawl history for %s (%d runs):\n\n", seed, len(runs))
	} else {
		fmt.Fprintf(out, "Crawl history (%d runs):\n\n", len(runs))
	}

	fmt.Fprintf(out, "  %-36s  %-19s  %6s  %6s  %-19s  %s\n", "ID", "Started", "Pages", "Failed", "Outcome", "Seed")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 110))
	for _, run := range runs {
		fmt.Fprintf(out, "  %-36s  %-19s  %6d  %6d  %-19s  %s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.PagesCrawled,
			run.Failed,
			run.Outcome(),
			run.Seed,
		)
	}

	fmt.Fprintln(out, "\nUse 'webxtract export <id>' to export a run.")
	return nil
}
