package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/webxtract/internal/model"
)

// DBFileName is the name of the SQLite file inside the database directory.
const DBFileName = "webxtract.db"

// Lookup errors.
var (
	// ErrRunNotFound is returned when no stored run matches.
	ErrRunNotFound = errors.New("crawl run not found")

	// ErrAmbiguousRunID is returned when a run ID prefix matches several runs.
	ErrAmbiguousRunID = errors.New("run ID prefix matches more than one run")
)

// CrawlDB provides SQLite-based storage for crawl runs and their pages.
// It manages connection pooling and provides methods for CRUD operations.
//
// Design decision: We use a single database file for every run rather than
// one file per seed. This keeps history queries across seeds simple.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a crawl first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite: mode=rw refuses to create a missing file.
	// Foreign keys are a per-connection setting, so they go in the DSN.
	mode := "rw"
	if opts.CreateIfNotExists {
		mode = "rwc"
	}
	dsn := dbPath + "?mode=" + mode + "&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl run
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id TEXT PRIMARY KEY,
		seed TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		max_depth INTEGER NOT NULL,
		max_pages INTEGER NOT NULL,
		concurrency INTEGER NOT NULL,
		pages_crawled INTEGER NOT NULL,
		failed_count INTEGER NOT NULL,
		drained INTEGER NOT NULL,
		budget_exhausted INTEGER NOT NULL,
		cancelled INTEGER NOT NULL,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_seed ON crawl_runs(seed);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON crawl_runs(started_at);

	-- One row per fetched URL of a run; position is the completion order
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES crawl_runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		success INTEGER NOT NULL,
		status_code INTEGER,
		title TEXT,
		content TEXT,
		raw_markdown TEXT,
		links TEXT,
		external_links TEXT,
		error TEXT,
		warning TEXT,
		content_hash TEXT,
		fetched_at TEXT,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	CREATE INDEX IF NOT EXISTS idx_pages_hash ON pages(content_hash);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunSummary is the stored metadata of a crawl run, without its pages.
type RunSummary struct {
	// ID is the run identifier (a UUIDv7, sortable by creation time).
	ID string

	// Seed is the starting URL.
	Seed string

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time
	FinishedAt time.Time

	// Budget is the budget the run used.
	Budget model.CrawlBudget

	// PagesCrawled counts successful pages.
	PagesCrawled int

	// Failed counts failed pages.
	Failed int

	// Drained, BudgetExhausted and Cancelled record why the run ended.
	Drained         bool
	BudgetExhausted bool
	Cancelled       bool

	// Error is the crawl level error message, if any.
	Error string
}

// Outcome returns a short description of why the run ended.
func (s RunSummary) Outcome() string {
	switch {
	case s.Cancelled:
		return "cancelled"
	case s.BudgetExhausted:
		return "page budget reached"
	case s.Drained:
		return "frontier drained"
	case s.Error != "":
		return "failed"
	default:
		return "unknown"
	}
}

// SaveCrawlReport stores a finished crawl report with all of its pages and
// returns the run ID. A new ID is assigned, and written back to the report,
// when report.RunID is empty.
func (cdb *CrawlDB) SaveCrawlReport(ctx context.Context, report *model.CrawlReport) (string, error) {
	if report.RunID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("failed to generate run ID: %w", err)
		}
		report.RunID = id.String()
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
	INSERT INTO crawl_runs (id, seed, started_at, finished_at, max_depth, max_pages, concurrency,
		pages_crawled, failed_count, drained, budget_exhausted, cancelled, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.RunID,
		report.Seed,
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
		report.Budget.MaxDepth,
		report.Budget.MaxPages,
		report.Budget.Concurrency,
		report.PagesCrawled,
		len(report.Failed()),
		report.Drained,
		report.BudgetExhausted,
		report.Cancelled,
		report.ErrorMessage,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save crawl run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO pages (run_id, position, url, depth, success, status_code, title, content,
		raw_markdown, links, external_links, error, warning, content_hash, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer stmt.Close()

	for position, pageURL := range report.Order {
		page := report.Results[pageURL]
		if page == nil {
			continue
		}

		linksJSON, err := json.Marshal(page.Links)
		if err != nil {
			return "", fmt.Errorf("failed to serialize links of %s: %w", pageURL, err)
		}
		externalJSON, err := json.Marshal(page.ExternalLinks)
		if err != nil {
			return "", fmt.Errorf("failed to serialize external links of %s: %w", pageURL, err)
		}

		_, err = stmt.ExecContext(ctx,
			report.RunID,
			position,
			page.URL,
			page.Depth,
			page.Success,
			page.StatusCode,
			page.Title,
			page.Content,
			page.RawMarkdown,
			string(linksJSON),
			string(externalJSON),
			page.Error,
			page.Warning,
			page.ContentHash,
			formatTimestamp(page.FetchedAt),
		)
		if err != nil {
			return "", fmt.Errorf("failed to save page %s: %w", pageURL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit crawl run: %w", err)
	}
	return report.RunID, nil
}

const runColumns = `id, seed, started_at, finished_at, max_depth, max_pages, concurrency,
	pages_crawled, failed_count, drained, budget_exhausted, cancelled, error`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunSummary, error) {
	var (
		s                 RunSummary
		started, finished string
		errMsg            sql.NullString
	)
	err := row.Scan(
		&s.ID,
		&s.Seed,
		&started,
		&finished,
		&s.Budget.MaxDepth,
		&s.Budget.MaxPages,
		&s.Budget.Concurrency,
		&s.PagesCrawled,
		&s.Failed,
		&s.Drained,
		&s.BudgetExhausted,
		&s.Cancelled,
		&errMsg,
	)
	if err != nil {
		return RunSummary{}, err
	}
	s.StartedAt = parseTimestamp(started)
	s.FinishedAt = parseTimestamp(finished)
	s.Error = errMsg.String
	return s, nil
}

// ListRuns returns stored runs, newest first. An empty seed lists every run.
func (cdb *CrawlDB) ListRuns(ctx context.Context, seed string) ([]RunSummary, error) {
	query := `SELECT ` + runColumns + ` FROM crawl_runs`
	args := make([]any, 0, 1)
	if seed != "" {
		query += ` WHERE seed = ?`
		args = append(args, seed)
	}
	query += ` ORDER BY started_at DESC, id DESC`

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		s, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

// LatestRun returns the most recent run of seed.
// It returns ErrRunNotFound when the seed was never crawled.
func (cdb *CrawlDB) LatestRun(ctx context.Context, seed string) (*RunSummary, error) {
	row := cdb.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM crawl_runs WHERE seed = ? ORDER BY started_at DESC, id DESC LIMIT 1`,
		seed,
	)
	s, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return &s, nil
}

// ResolveRunID expands a unique prefix of a run ID to the full ID.
func (cdb *CrawlDB) ResolveRunID(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", ErrRunNotFound
	}

	rows, err := cdb.db.QueryContext(ctx,
		`SELECT id FROM crawl_runs WHERE substr(id, 1, ?) = ? LIMIT 2`,
		len(prefix), prefix,
	)
	if err != nil {
		return "", fmt.Errorf("failed to resolve run ID: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("failed to scan run ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", ErrRunNotFound
	case 1:
		return ids[0], nil
	default:
		return "", ErrAmbiguousRunID
	}
}

// GetCrawlReport loads a stored run with all of its pages.
// It returns ErrRunNotFound for an unknown ID.
func (cdb *CrawlDB) GetCrawlReport(ctx context.Context, runID string) (*model.CrawlReport, error) {
	row := cdb.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM crawl_runs WHERE id = ?`, runID)
	summary, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl run: %w", err)
	}

	report := model.NewCrawlReport(summary.Seed, summary.Budget)
	report.RunID = summary.ID
	report.StartedAt = summary.StartedAt
	report.FinishedAt = summary.FinishedAt
	report.Drained = summary.Drained
	report.BudgetExhausted = summary.BudgetExhausted
	report.Cancelled = summary.Cancelled
	report.ErrorMessage = summary.Error
	report.Phase = model.PhaseDone

	rows, err := cdb.db.QueryContext(ctx, `
	SELECT url, depth, success, status_code, title, content, raw_markdown, links,
		external_links, error, warning, content_hash, fetched_at
	FROM pages
	WHERE run_id = ?
	ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		report.AddResult(page)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return report, nil
}

func scanPage(rows *sql.Rows) (*model.PageResult, error) {
	var (
		page                                   model.PageResult
		statusCode                             sql.NullInt64
		title, content, raw, errMsg, warning   sql.NullString
		linksJSON, externalJSON, hash, fetched sql.NullString
	)
	err := rows.Scan(
		&page.URL,
		&page.Depth,
		&page.Success,
		&statusCode,
		&title,
		&content,
		&raw,
		&linksJSON,
		&externalJSON,
		&errMsg,
		&warning,
		&hash,
		&fetched,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan page: %w", err)
	}

	page.StatusCode = int(statusCode.Int64)
	page.Title = title.String
	page.Content = content.String
	page.RawMarkdown = raw.String
	page.Error = errMsg.String
	page.Warning = warning.String
	page.ContentHash = hash.String
	page.FetchedAt = parseTimestamp(fetched.String)

	page.Links = make([]model.Link, 0)
	if linksJSON.String != "" && linksJSON.String != "null" {
		if err := json.Unmarshal([]byte(linksJSON.String), &page.Links); err != nil {
			return nil, fmt.Errorf("failed to parse links of %s: %w", page.URL, err)
		}
	}
	if externalJSON.String != "" && externalJSON.String != "null" {
		if err := json.Unmarshal([]byte(externalJSON.String), &page.ExternalLinks); err != nil {
			return nil, fmt.Errorf("failed to parse external links of %s: %w", page.URL, err)
		}
	}

	return &page, nil
}

// DeleteRun removes a run and its pages.
func (cdb *CrawlDB) DeleteRun(ctx context.Context, runID string) error {
	result, err := cdb.db.ExecContext(ctx, `DELETE FROM crawl_runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// storedTimestampLayout is fixed width so that stored timestamps sort lexically.
const storedTimestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(storedTimestampLayout)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	storedTimestampLayout,
	"2006-01-02 15:04:05",  // SQLite default datetime format
	"2006-01-02T15:04:05Z", // ISO 8601 with Z suffix
	time.RFC3339Nano,
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
