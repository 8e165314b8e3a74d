package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/fr4nk3nst1ner/compsleuth/internal/models"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS salaries (
	id                     INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id                 TEXT NOT NULL,
	company                TEXT NOT NULL,
	location               TEXT NOT NULL,
	level_name             TEXT NOT NULL,
	role                   TEXT NOT NULL,
	years_of_experience    TEXT NOT NULL,
	years_at_company       TEXT NOT NULL,
	total_compensation     TEXT NOT NULL,
	compensation_breakdown TEXT NOT NULL,
	scraped_at             TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS salaries_run_id ON salaries(run_id);
`

const sqliteInsert = `
INSERT INTO salaries (
	run_id, company, location, level_name, role,
	years_of_experience, years_at_company, total_compensation, compensation_breakdown, scraped_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteSink mirrors accepted records into a SQLite table tagged with the run id
type SQLiteSink struct {
	db    *sql.DB
	runID string
	now   func() time.Time
	mu    sync.Mutex
}

// OpenSQLite opens (or creates) the database at path and makes sure the schema exists
func OpenSQLite(ctx context.Context, path, runID string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}

	return &SQLiteSink{db: db, runID: runID, now: time.Now}, nil
}

// RunID returns the run id written with every row
func (s *SQLiteSink) RunID() string {
	return s.runID
}

// Append inserts records in a single transaction
func (s *SQLiteSink) Append(ctx context.Context, records []models.SalaryRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, sqliteInsert)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	scrapedAt := s.now().UTC()
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			s.runID, r.Company, r.Location, r.LevelName, r.Role,
			r.YearsOfExperience, r.YearsAtCompany, r.TotalCompensation, r.CompensationBreakdown,
			scrapedAt,
		); err != nil {
			return fmt.Errorf("failed to insert record for %s: %w", r.Company, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}
	return nil
}

// Records returns stored records in insertion order. An empty runID returns every run.
func (s *SQLiteSink) Records(ctx context.Context, runID string) ([]models.SalaryRecord, error) {
	query := `SELECT company, location, level_name, role, years_of_experience, years_at_company,
		total_compensation, compensation_breakdown FROM salaries`
	var args []any
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query salaries: %w", err)
	}
	defer rows.Close()

	var records []models.SalaryRecord
	for rows.Next() {
		var r models.SalaryRecord
		if err := rows.Scan(&r.Company, &r.Location, &r.LevelName, &r.Role,
			&r.YearsOfExperience, &r.YearsAtCompany, &r.TotalCompensation, &r.CompensationBreakdown); err != nil {
			return nil, fmt.Errorf("failed to scan salary row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the database
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
