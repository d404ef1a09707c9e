// Package sqlite provides a pure-Go SQLite engine for the keyed codon table,
// for hosts where the DuckDB cgo build is not available.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/populationgenomics/clinvar-codon/internal/codon"
	"github.com/populationgenomics/clinvar-codon/internal/table"
)

// EngineName is the name this package registers with the table package.
const EngineName = "sqlite"

func init() {
	table.Register(EngineName, func(path string, readOnly bool) (table.Store, error) {
		return Open(path, readOnly)
	})
}

// Store wraps the SQLite connection holding the codon table.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite file at path. An empty path opens an
// in-memory database.
func Open(path string, readOnly bool) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create table directory: %w", err)
		}
		dsn = path + "?_pragma=busy_timeout(5000)"
		if readOnly {
			dsn += "&_pragma=query_only(1)"
		}
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: a single writer, and an in-memory database lives per connection.
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn}
	if !readOnly {
		if err := s.migrate(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Conn returns the underlying database connection.
func (s *Store) Conn() *sql.DB {
	return s.conn
}

func (s *Store) migrate() error {
	migrations := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			%s TEXT PRIMARY KEY,
			%s TEXT NOT NULL
		) WITHOUT ROWID`, table.Name, table.KeyColumn, table.ValueColumn),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			run_id TEXT,
			input_path TEXT,
			input_size INTEGER,
			input_mtime TEXT,
			csq_format TEXT,
			entries INTEGER,
			created_at TEXT
		)`, table.MetadataName),
	}
	for _, m := range migrations {
		if _, err := s.conn.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// WriteEntries inserts entries in a single transaction.
func (s *Store) WriteEntries(ctx context.Context, entries []codon.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)",
		table.Name, table.KeyColumn, table.ValueColumn))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.NewKey, e.ClinvarAlleles); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.NewKey, err)
		}
	}
	return tx.Commit()
}

// WriteMetadata replaces the run metadata row.
func (s *Store) WriteMetadata(ctx context.Context, md table.Metadata) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin metadata tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table.MetadataName); err != nil {
		return fmt.Errorf("clear metadata: %w", err)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(table.MetadataColumns)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table.MetadataName, strings.Join(table.MetadataColumns, ", "), placeholders)
	if _, err := tx.ExecContext(ctx, query, md.Values()...); err != nil {
		return fmt.Errorf("insert metadata: %w", err)
	}
	return tx.Commit()
}

// ReadMetadata returns the run metadata row.
func (s *Store) ReadMetadata(ctx context.Context) (table.Metadata, error) {
	row := s.conn.QueryRowContext(ctx, fmt.Sprintf("SELECT %s FROM %s LIMIT 1",
		strings.Join(table.MetadataColumns, ", "), table.MetadataName))
	md, err := table.ScanMetadata(row.Scan)
	if err != nil {
		return table.Metadata{}, fmt.Errorf("read metadata: %w", err)
	}
	return md, nil
}

// Lookup returns the entry stored under key.
func (s *Store) Lookup(ctx context.Context, key string) (codon.Entry, bool, error) {
	e := codon.Entry{NewKey: key}
	err := s.conn.QueryRowContext(ctx, fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		table.ValueColumn, table.Name, table.KeyColumn), key).Scan(&e.ClinvarAlleles)
	if errors.Is(err, sql.ErrNoRows) {
		return codon.Entry{}, false, nil
	}
	if err != nil {
		return codon.Entry{}, false, fmt.Errorf("lookup %s: %w", key, err)
	}
	return e, true, nil
}

// Count returns the number of rows in the codon table.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table.Name).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s rows: %w", table.Name, err)
	}
	return n, nil
}
