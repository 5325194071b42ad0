// Package store keeps a local SQLite history of scrape runs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/use-agent/vgascout/models"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("store: run not found")

// Store wraps the run history database.
type Store struct {
	db *sql.DB
}

// Open connects to the SQLite database at path and ensures the schema exists.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	dsn := "file::memory:?_foreign_keys=on"
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A memory database lives and dies with its connection.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err = createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
	  id TEXT PRIMARY KEY,
	  started_at TIMESTAMP NOT NULL,
	  finished_at TIMESTAMP NOT NULL,
	  result_timestamp TEXT NOT NULL,
	  total_count INTEGER NOT NULL,
	  output TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	CREATE TABLE IF NOT EXISTS records (
	  run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	  position INTEGER NOT NULL,
	  model TEXT NOT NULL,
	  price TEXT NOT NULL,
	  memory_size TEXT NOT NULL,
	  memory_type TEXT NOT NULL,
	  PRIMARY KEY (run_id, position)
	);

	CREATE TABLE IF NOT EXISTS pages (
	  run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	  page INTEGER NOT NULL,
	  status TEXT NOT NULL,
	  records INTEGER NOT NULL,
	  engine TEXT,
	  error TEXT,
	  PRIMARY KEY (run_id, page)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveRun stores a run with its records and page outcomes in one transaction.
func (s *Store) SaveRun(ctx context.Context, run *models.Run) error {
	if run == nil || run.ID == "" || run.Result == nil {
		return models.NewScrapeError(models.ErrCodeInvalidInput, "run needs an id and a result", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.NewScrapeError(models.ErrCodeStoreFailed, "begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, result_timestamp, total_count, output) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Result.Timestamp, run.Result.TotalCount, run.Output,
	); err != nil {
		if isUniqueViolation(err) {
			return models.NewScrapeError(models.ErrCodeInvalidInput, "run already stored", err)
		}
		return models.NewScrapeError(models.ErrCodeStoreFailed, "insert run", err)
	}

	recStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (run_id, position, model, price, memory_size, memory_type) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return models.NewScrapeError(models.ErrCodeStoreFailed, "prepare record insert", err)
	}
	defer recStmt.Close()

	for i, r := range run.Result.Records {
		if _, err := recStmt.ExecContext(ctx, run.ID, i, r.Model, r.Price, r.MemorySize, r.MemoryType); err != nil {
			return models.NewScrapeError(models.ErrCodeStoreFailed, fmt.Sprintf("insert record %d", i), err)
		}
	}

	pageStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pages (run_id, page, status, records, engine, error) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return models.NewScrapeError(models.ErrCodeStoreFailed, "prepare page insert", err)
	}
	defer pageStmt.Close()

	for _, p := range run.Pages {
		if _, err := pageStmt.ExecContext(ctx, run.ID, p.Page, string(p.Status), p.Records, p.Engine, p.Error); err != nil {
			return models.NewScrapeError(models.ErrCodeStoreFailed, fmt.Sprintf("insert page %d", p.Page), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.NewScrapeError(models.ErrCodeStoreFailed, "commit run", err)
	}
	return nil
}

// GetRun loads a run by id.
func (s *Store) GetRun(ctx context.Context, id string) (*models.Run, error) {
	run := &models.Run{ID: id, Result: &models.ScrapeResult{}}
	var output sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT started_at, finished_at, result_timestamp, total_count, output FROM runs WHERE id = ?`, id,
	).Scan(&run.StartedAt, &run.FinishedAt, &run.Result.Timestamp, &run.Result.TotalCount, &output)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	run.Output = output.String

	if run.Result.Records, err = s.records(ctx, id); err != nil {
		return nil, err
	}
	if run.Pages, err = s.pages(ctx, id); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Store) records(ctx context.Context, id string) ([]models.ProductRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT model, price, memory_size, memory_type FROM records WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []models.ProductRecord{}
	for rows.Next() {
		var r models.ProductRecord
		if err := rows.Scan(&r.Model, &r.Price, &r.MemorySize, &r.MemoryType); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) pages(ctx context.Context, id string) ([]models.PageOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT page, status, records, COALESCE(engine, ''), COALESCE(error, '') FROM pages WHERE run_id = ? ORDER BY page`, id)
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	defer rows.Close()

	var pages []models.PageOutcome
	for rows.Next() {
		var p models.PageOutcome
		var status string
		if err := rows.Scan(&p.Page, &status, &p.Records, &p.Engine, &p.Error); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		p.Status = models.PageStatus(status)
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, total_count FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	out := []models.RunSummary{}
	for rows.Next() {
		var r models.RunSummary
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.TotalCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// isUniqueViolation reports whether err is a primary-key clash.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
