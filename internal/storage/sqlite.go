// Package storage keeps a small SQLite history of reconciliation runs so
// past artifacts and their counts stay queryable.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/rentwerk/mietflow/internal/common"
)

// Store implements the run history on SQLite.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (and if needed creates) the history database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("history database path: %w", common.ErrMissingConfig)
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	const schema = `CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		ledger_file TEXT NOT NULL,
		statement_file TEXT NOT NULL,
		output_file TEXT NOT NULL,
		transactions INTEGER NOT NULL,
		postable INTEGER NOT NULL,
		posted INTEGER NOT NULL,
		duplicates INTEGER NOT NULL,
		posted_total TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunRecord is one persisted reconciliation run.
type RunRecord struct {
	ID            int64
	StartedAt     time.Time
	LedgerFile    string
	StatementFile string
	OutputFile    string
	Transactions  int
	Postable      int
	Posted        int
	Duplicates    int
	PostedTotal   string
}

// RecordRun persists a completed run and fills in its ID.
func (s *Store) RecordRun(ctx context.Context, r *RunRecord) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, ledger_file, statement_file, output_file,
			transactions, postable, posted, duplicates, posted_total)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.StartedAt, r.LedgerFile, r.StatementFile, r.OutputFile,
		r.Transactions, r.Postable, r.Posted, r.Duplicates, r.PostedTotal)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read run id: %w", err)
	}
	r.ID = id
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, ledger_file, statement_file, output_file,
			transactions, postable, posted, duplicates, posted_total
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.LedgerFile, &r.StatementFile,
			&r.OutputFile, &r.Transactions, &r.Postable, &r.Posted,
			&r.Duplicates, &r.PostedTotal); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}
