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

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/franciscod/campus-fetch/internal/model"
)

// FileName is the database file inside the database directory.
const FileName = "campus-fetch.db"

// HistoryDB stores one row per synchronization run and the files it placed.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so that history can be read
	// while a sync is writing.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, ErrNotFound is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw&_pragma=foreign_keys(1)"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- One row per synchronization of one course
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		root_id TEXT NOT NULL,
		root_name TEXT NOT NULL,
		output_dir TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		pages INTEGER DEFAULT 0,
		artifacts INTEGER DEFAULT 0,
		downloaded INTEGER DEFAULT 0,
		reclaimed INTEGER DEFAULT 0,
		shortcuts INTEGER DEFAULT 0,
		unhandled INTEGER DEFAULT 0,
		failures INTEGER DEFAULT 0,
		error TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root_id);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Files placed in the live tree by a run
	CREATE TABLE IF NOT EXISTS files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		path TEXT NOT NULL,
		etag TEXT,
		reclaimed INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_files_run ON files(run_id);
	CREATE INDEX IF NOT EXISTS idx_files_url ON files(url);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord contains summary information about a stored run.
// It is used for listing history without loading the full report.
type RunRecord struct {
	ID         int64
	Root       model.SyncRoot
	OutputDir  string
	StartedAt  time.Time
	FinishedAt time.Time
	Pages      int
	Artifacts  int
	Downloaded int
	Reclaimed  int
	Shortcuts  int
	Unhandled  int
	Failures   int
	Error      string
}

// Failed reports whether the root of the run could not be established.
func (r RunRecord) Failed() bool {
	return r.Error != ""
}

// SaveRun stores report and its files in one transaction and returns the run id.
func (hdb *HistoryDB) SaveRun(ctx context.Context, report *model.SyncReport) (id int64, err error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (root_id, root_name, output_dir, started_at, finished_at,
		pages, artifacts, downloaded, reclaimed, shortcuts, unhandled, failures, error, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.Root.ID,
		report.Root.Name,
		report.OutputDir,
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
		report.PagesVisited,
		report.Artifacts,
		report.Downloaded,
		report.Reclaimed,
		report.Shortcuts,
		report.Unhandled,
		len(report.Failures),
		report.ErrorMessage,
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}
	id, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO files (run_id, url, path, etag, reclaimed) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare file insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range report.Files {
		if _, err = stmt.ExecContext(ctx, id, f.URL, f.Path, f.ETag, f.Reclaimed); err != nil {
			return 0, fmt.Errorf("failed to save file %s: %w", f.Path, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// ListRuns returns the runs of rootID, newest first. An empty rootID lists
// every course. A positive limit caps the result.
func (hdb *HistoryDB) ListRuns(ctx context.Context, rootID string, limit int) ([]RunRecord, error) {
	query := `
	SELECT id, root_id, root_name, output_dir, started_at, finished_at,
		pages, artifacts, downloaded, reclaimed, shortcuts, unhandled, failures, error
	FROM runs
	WHERE 1=1
	`
	args := make([]any, 0, 2)

	if rootID != "" {
		query += " AND root_id = ?"
		args = append(args, rootID)
	}
	query += " ORDER BY started_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunRecord
	for rows.Next() {
		var (
			rec                          RunRecord
			started                      string
			outputDir, finished, errText sql.NullString
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Root.ID,
			&rec.Root.Name,
			&outputDir,
			&started,
			&finished,
			&rec.Pages,
			&rec.Artifacts,
			&rec.Downloaded,
			&rec.Reclaimed,
			&rec.Shortcuts,
			&rec.Unhandled,
			&rec.Failures,
			&errText,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		rec.OutputDir = outputDir.String
		rec.Error = errText.String
		rec.StartedAt = parseTimestamp(started)
		rec.FinishedAt = parseTimestamp(finished.String)
		results = append(results, rec)
	}

	return results, rows.Err()
}

// RootSummary describes one course present in the history.
type RootSummary struct {
	Root    model.SyncRoot
	Runs    int
	LastRun time.Time
}

// ListRoots returns every course with stored runs, ordered by id. The name
// is the one of the latest run.
func (hdb *HistoryDB) ListRoots(ctx context.Context) ([]RootSummary, error) {
	query := `
	SELECT r.root_id, r.root_name, counts.n, counts.last_started
	FROM runs r
	JOIN (
		SELECT root_id, COUNT(*) AS n, MAX(started_at) AS last_started, MAX(id) AS last_id
		FROM runs GROUP BY root_id
	) counts ON counts.last_id = r.id
	ORDER BY r.root_id
	`

	rows, err := hdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list roots: %w", err)
	}
	defer rows.Close()

	var roots []RootSummary
	for rows.Next() {
		var (
			summary RootSummary
			last    string
		)
		if err := rows.Scan(&summary.Root.ID, &summary.Root.Name, &summary.Runs, &last); err != nil {
			return nil, fmt.Errorf("failed to scan root: %w", err)
		}
		summary.LastRun = parseTimestamp(last)
		roots = append(roots, summary)
	}

	return roots, rows.Err()
}

// GetRunFiles returns the files placed by run runID, in the order they were placed.
func (hdb *HistoryDB) GetRunFiles(ctx context.Context, runID int64) ([]model.FileRecord, error) {
	rows, err := hdb.db.QueryContext(ctx, `
	SELECT url, path, etag, reclaimed FROM files
	WHERE run_id = ?
	ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run files: %w", err)
	}
	defer rows.Close()

	files := make([]model.FileRecord, 0)
	for rows.Next() {
		var (
			f    model.FileRecord
			etag sql.NullString
		)
		if err := rows.Scan(&f.URL, &f.Path, &etag, &f.Reclaimed); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		f.ETag = etag.String
		files = append(files, f)
	}

	return files, rows.Err()
}

// GetRun retrieves the full report of a run by its id.
// It returns nil without error when the run does not exist.
func (hdb *HistoryDB) GetRun(ctx context.Context, runID int64) (*model.SyncReport, error) {
	var reportJSON string
	err := hdb.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, runID).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.SyncReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// formatTimestamp stores times in UTC so that they sort as text.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

// timestampLayout has a fixed width fraction, unlike RFC3339Nano.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
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
