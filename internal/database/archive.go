package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib" // PostgreSQL driver
	"github.com/nao1215/linkscan/internal/model"
	_ "modernc.org/sqlite" // SQLite driver
)

// DefaultFileName is the SQLite file created in the data directory.
const DefaultFileName = "linkscan.db"

// timestampFormat is fixed-width so that stored timestamps sort as text.
const timestampFormat = "2006-01-02T15:04:05.000000000Z"

// Archive stores finished crawl reports so that later crawls of the same
// seed can be compared with them. It is backed by SQLite by default and by
// PostgreSQL when opened with a postgres:// URL.
//
// Only finished reports are stored; a crawl is never resumed from the archive.
type Archive struct {
	db       *sql.DB
	dialect  dialect
	location string
}

// Options configures Archive behavior. They apply to SQLite only.
type Options struct {
	// CreateIfNotExists creates the database file and its directory if
	// they don't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so that concurrent crawls
	// can save reports while history is being read.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// DefaultPath returns the SQLite path inside dir.
func DefaultPath(dir string) string {
	return filepath.Join(dir, DefaultFileName)
}

// Open opens or creates an Archive.
// dsn is either a SQLite file path or a postgres:// URL.
func Open(ctx context.Context, dsn string, opts Options) (*Archive, error) {
	d := dialectFor(dsn)

	driverDSN := dsn
	if d.name == sqliteDialect.name {
		var err error
		if driverDSN, err = sqliteDSN(dsn, opts); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(d.driver, driverDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", d.name, err)
	}

	if d.name == sqliteDialect.name {
		// SQLite only supports one writer.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	db.SetConnMaxLifetime(time.Hour)

	a := &Archive{
		db:       db,
		dialect:  d,
		location: dsn,
	}

	if d.name == sqliteDialect.name && opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := a.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return a, nil
}

// sqliteDSN prepares the directory and builds the modernc connection string.
// mode=rw refuses to create a missing file; mode=rwc allows it.
func sqliteDSN(path string, opts Options) (string, error) {
	if !opts.CreateIfNotExists {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrDatabaseNotFound, path)
		} else if err != nil {
			return "", fmt.Errorf("failed to check database path: %w", err)
		}
		return path + "?mode=rw", nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return path + "?mode=rwc", nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Driver returns the name of the database in use ("sqlite" or "postgres").
func (a *Archive) Driver() string {
	return a.dialect.name
}

// Location returns the DSN the archive was opened with.
func (a *Archive) Location() string {
	return a.location
}

// createTables creates the schema if it doesn't exist.
func (a *Archive) createTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS crawl_reports (
			` + a.dialect.idColumn + `,
			crawl_id TEXT NOT NULL UNIQUE,
			seed TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			pages INTEGER NOT NULL,
			pages_with_dead_links INTEGER NOT NULL,
			dead_links INTEGER NOT NULL,
			cancelled INTEGER NOT NULL DEFAULT 0,
			report_json TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_seed ON crawl_reports(seed)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_started ON crawl_reports(started_at)`,
	}
	// PostgreSQL's pgx driver rejects several statements in one Exec.
	for _, stmt := range statements {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// ReportMetadata contains summary information about an archived report.
// This is used for displaying history without loading full reports.
type ReportMetadata struct {
	// ID is the archive's identifier of the report.
	ID int64

	// CrawlID is the UUID assigned to the crawl.
	CrawlID string

	// Seed is the crawled seed URL.
	Seed string

	// StartedAt and FinishedAt bound the crawl.
	StartedAt  time.Time
	FinishedAt time.Time

	// Pages is the number of fetched pages.
	Pages int

	// PagesWithDeadLinks is the number of pages with at least one dead link.
	PagesWithDeadLinks int

	// DeadLinks is the total number of dead links.
	DeadLinks int

	// Cancelled is true for partial crawls.
	Cancelled bool
}

// SaveReport stores a finished report and returns its archive ID.
func (a *Archive) SaveReport(ctx context.Context, report *model.Report) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	cancelled := 0
	if report.Cancelled {
		cancelled = 1
	}

	query := a.dialect.rebind(`
	INSERT INTO crawl_reports (crawl_id, seed, started_at, finished_at, pages, pages_with_dead_links, dead_links, cancelled, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING id
	`)

	var id int64
	err = a.db.QueryRowContext(ctx, query,
		report.ID,
		string(report.Seed),
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
		report.Summary.TotalPages,
		report.Summary.PagesWithDeadLinks,
		report.Summary.DeadLinks,
		cancelled,
		string(reportJSON),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save report: %w", err)
	}

	return id, nil
}

// ListSeeds returns every seed with at least one archived report.
func (a *Archive) ListSeeds(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT DISTINCT seed FROM crawl_reports ORDER BY seed`)
	if err != nil {
		return nil, fmt.Errorf("failed to list seeds: %w", err)
	}
	defer rows.Close()

	var seeds []string
	for rows.Next() {
		var seed string
		if err := rows.Scan(&seed); err != nil {
			return nil, fmt.Errorf("failed to scan seed: %w", err)
		}
		seeds = append(seeds, seed)
	}

	return seeds, rows.Err()
}

// History returns report metadata for seed, newest first.
// An empty seed lists the history of every seed.
func (a *Archive) History(ctx context.Context, seed string) ([]ReportMetadata, error) {
	query := `
	SELECT id, crawl_id, seed, started_at, finished_at, pages, pages_with_dead_links, dead_links, cancelled
	FROM crawl_reports
	`
	var args []any
	if seed != "" {
		query += " WHERE seed = ?"
		args = append(args, seed)
	}
	query += " ORDER BY started_at DESC, id DESC"

	rows, err := a.db.QueryContext(ctx, a.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var results []ReportMetadata
	for rows.Next() {
		var (
			meta              ReportMetadata
			started, finished string
			cancelled         int
		)
		if err := rows.Scan(
			&meta.ID,
			&meta.CrawlID,
			&meta.Seed,
			&started,
			&finished,
			&meta.Pages,
			&meta.PagesWithDeadLinks,
			&meta.DeadLinks,
			&cancelled,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta.StartedAt = parseTimestamp(started)
		meta.FinishedAt = parseTimestamp(finished)
		meta.Cancelled = cancelled != 0
		results = append(results, meta)
	}

	return results, rows.Err()
}

// LatestReports returns up to limit reports for seed, newest first.
// Reports that can no longer be decoded are skipped.
func (a *Archive) LatestReports(ctx context.Context, seed string, limit int) ([]*model.Report, error) {
	query := a.dialect.rebind(`
	SELECT report_json FROM crawl_reports
	WHERE seed = ?
	ORDER BY started_at DESC, id DESC
	LIMIT ?
	`)

	rows, err := a.db.QueryContext(ctx, query, seed, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get reports: %w", err)
	}
	defer rows.Close()

	var reports []*model.Report
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		var report model.Report
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			continue // Skip malformed reports
		}
		reports = append(reports, &report)
	}

	return reports, rows.Err()
}

// LatestReport returns the newest report for seed.
func (a *Archive) LatestReport(ctx context.Context, seed string) (*model.Report, error) {
	reports, err := a.LatestReports(ctx, seed, 1)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("%w: no report for %s", ErrReportNotFound, seed)
	}
	return reports[0], nil
}

// ReportByID returns the report with the given archive ID.
func (a *Archive) ReportByID(ctx context.Context, id int64) (*model.Report, error) {
	query := a.dialect.rebind(`SELECT report_json FROM crawl_reports WHERE id = ?`)

	var reportJSON string
	err := a.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrReportNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report model.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

// timestampFormats contains the timestamp formats parseTimestamp accepts.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampFormat,
	time.RFC3339Nano,
	"2006-01-02 15:04:05", // SQLite default datetime format
}

// parseTimestamp parses a stored timestamp. If parsing fails with all
// formats, it returns the zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
