// Package duckdb provides the DuckDB engine for the keyed codon table.
// Entries are bulk-loaded with the Appender API and looked up by primary key.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/populationgenomics/clinvar-codon/internal/codon"
	"github.com/populationgenomics/clinvar-codon/internal/table"
)

// EngineName is the name this package registers with the table package.
const EngineName = "duckdb"

func init() {
	table.Register(EngineName, func(path string, readOnly bool) (table.Store, error) {
		return Open(path, readOnly)
	})
}

// Store manages a DuckDB connection holding the codon table.
type Store struct {
	db       *sql.DB
	path     string
	lookupPS *sql.Stmt // prepared statement for Lookup, lazily initialized
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string, readOnly bool) (*Store, error) {
	dsn := path
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create table directory: %w", err)
		}
		if readOnly {
			dsn = path + "?access_mode=read_only"
		}
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if !readOnly {
		if err := s.ensureSchema(); err != nil {
			db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.lookupPS != nil {
		s.lookupPS.Close()
	}
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		%s VARCHAR PRIMARY KEY,
		%s VARCHAR NOT NULL
	)`, table.Name, table.KeyColumn, table.ValueColumn)); err != nil {
		return err
	}
	_, err := s.db.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		run_id VARCHAR,
		input_path VARCHAR,
		input_size BIGINT,
		input_mtime VARCHAR,
		csq_format VARCHAR,
		entries BIGINT,
		created_at VARCHAR
	)`, table.MetadataName))
	return err
}

// WriteEntries batch-inserts entries using the Appender API.
func (s *Store) WriteEntries(ctx context.Context, entries []codon.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table.Name)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}

	for i, e := range entries {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				appender.Close()
				return err
			}
		}
		if err := appender.AppendRow(e.NewKey, e.ClinvarAlleles); err != nil {
			appender.Close()
			return fmt.Errorf("append entry %s: %w", e.NewKey, err)
		}
	}

	if err := appender.Flush(); err != nil {
		appender.Close()
		return fmt.Errorf("flush appender: %w", err)
	}
	return appender.Close()
}

// WriteMetadata replaces the run metadata row.
func (s *Store) WriteMetadata(ctx context.Context, md table.Metadata) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin metadata tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table.MetadataName); err != nil {
		return fmt.Errorf("clear metadata: %w", err)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?)",
		table.MetadataName, strings.Join(table.MetadataColumns, ", "))
	if _, err := tx.ExecContext(ctx, query, md.Values()...); err != nil {
		return fmt.Errorf("insert metadata: %w", err)
	}
	return tx.Commit()
}

// ReadMetadata returns the run metadata row.
func (s *Store) ReadMetadata(ctx context.Context) (table.Metadata, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT %s FROM %s LIMIT 1",
		strings.Join(table.MetadataColumns, ", "), table.MetadataName))
	md, err := table.ScanMetadata(row.Scan)
	if err != nil {
		return table.Metadata{}, fmt.Errorf("read metadata: %w", err)
	}
	return md, nil
}

// Lookup returns the entry stored under key.
func (s *Store) Lookup(ctx context.Context, key string) (codon.Entry, bool, error) {
	if s.lookupPS == nil {
		ps, err := s.db.PrepareContext(ctx, fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
			table.ValueColumn, table.Name, table.KeyColumn))
		if err != nil {
			return codon.Entry{}, false, fmt.Errorf("prepare lookup: %w", err)
		}
		s.lookupPS = ps
	}

	e := codon.Entry{NewKey: key}
	err := s.lookupPS.QueryRowContext(ctx, key).Scan(&e.ClinvarAlleles)
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
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table.Name).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s rows: %w", table.Name, err)
	}
	return count, nil
}
