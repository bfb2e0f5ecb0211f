package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"checklist_dashboard/internal/records"
	_ "modernc.org/sqlite"
)

// ErrMissingTable means the database has no checklist_records table.
var ErrMissingTable = errors.New("checklist_records table missing")

// Store wraps SQLite access for the checklist dataset.
type Store struct {
	db   *sql.DB
	path string
}

// IsDatabasePath reports whether path names a SQLite dataset rather than CSV.
func IsDatabasePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	default:
		return false
	}
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenReadOnly opens an existing database without creating or migrating
// anything. A missing file is reported as os.ErrNotExist.
func OpenReadOnly(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	dsn := (&url.URL{Scheme: "file", Opaque: path, RawQuery: "mode=ro"}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS checklist_records (
            position INTEGER PRIMARY KEY,
            district INTEGER NOT NULL,
            company TEXT NOT NULL,
            structural INTEGER NOT NULL DEFAULT 0,
            vehicle INTEGER NOT NULL DEFAULT 0,
            other INTEGER NOT NULL DEFAULT 0,
            checklists_completed INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE INDEX IF NOT EXISTS idx_checklist_district ON checklist_records(district);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceRecords swaps the stored dataset for recs in one transaction,
// keeping input order in the position column.
func (s *Store) ReplaceRecords(ctx context.Context, recs []records.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM checklist_records`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO checklist_records(position, district, company, structural, vehicle, other, checklists_completed) VALUES(?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, r := range recs {
		if _, err := stmt.ExecContext(ctx, i, r.District, r.Company, r.Structural, r.Vehicle, r.Other, r.ChecklistsCompleted); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// LoadRecords returns the dataset in its original input order.
func (s *Store) LoadRecords(ctx context.Context) ([]records.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT district, company, structural, vehicle, other, checklists_completed FROM checklist_records ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []records.Record
	for rows.Next() {
		var r records.Record
		if err := rows.Scan(&r.District, &r.Company, &r.Structural, &r.Vehicle, &r.Other, &r.ChecklistsCompleted); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM checklist_records`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Health returns err if DB not reachable or the dataset table is missing.
func (s *Store) Health(ctx context.Context) error {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'checklist_records'`).Scan(&name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("db health: %w", ErrMissingTable)
	case err != nil:
		return fmt.Errorf("db health: %w", err)
	}
	return nil
}

// LoadStore reads the existing database at path into a records.Store. It
// never writes to path. Failures are reported as records.LoadError.
func LoadStore(ctx context.Context, path string) (*records.Store, error) {
	s, err := OpenReadOnly(path)
	if err != nil {
		return nil, &records.LoadError{Source: path, Err: err}
	}
	defer s.Close()
	if err := s.Health(ctx); err != nil {
		return nil, &records.LoadError{Source: path, Err: err}
	}
	recs, err := s.LoadRecords(ctx)
	if err != nil {
		return nil, &records.LoadError{Source: path, Err: err}
	}
	return records.NewStore(path, recs), nil
}
