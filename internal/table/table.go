// Package table persists the codon index as a keyed table.
//
// Engines register themselves the way database/sql drivers do; import the
// engine package for its side effect:
//
//	import _ "github.com/populationgenomics/clinvar-codon/internal/duckdb"
package table

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/populationgenomics/clinvar-codon/internal/codon"
)

// Ext is appended to the output root for the keyed table.
const Ext = ".ht"

// Table and column names shared by every engine.
const (
	Name         = "clinvar_codons"
	KeyColumn    = "newkey"
	ValueColumn  = "clinvar_alleles"
	MetadataName = "run_metadata"
)

// DefaultEngine is used when no engine is configured.
const DefaultEngine = "duckdb"

// ErrUnknownEngine is returned for an engine name nobody registered.
var ErrUnknownEngine = errors.New("unknown table engine")

// Path returns the table path for an output root.
func Path(root string) string {
	return root + Ext
}

// Metadata describes the run that produced a table.
type Metadata struct {
	RunID     string
	Input     Fingerprint
	Schema    string // CSQ format the input was decoded with
	Entries   int
	CreatedAt time.Time
}

// MetadataColumns lists the run_metadata columns in the order used by
// Values and ScanMetadata.
var MetadataColumns = []string{
	"run_id", "input_path", "input_size", "input_mtime", "csq_format", "entries", "created_at",
}

// Values returns the metadata row in MetadataColumns order. Times are
// stored as RFC 3339 strings so every engine round-trips them identically.
func (m Metadata) Values() []any {
	return []any{
		m.RunID,
		m.Input.Path,
		m.Input.Size,
		formatTime(m.Input.ModTime),
		m.Schema,
		int64(m.Entries),
		formatTime(m.CreatedAt),
	}
}

// ScanMetadata reads a row selected in MetadataColumns order.
func ScanMetadata(scan func(dest ...any) error) (Metadata, error) {
	var (
		m              Metadata
		entries        int64
		mtime, created string
	)
	if err := scan(&m.RunID, &m.Input.Path, &m.Input.Size, &mtime, &m.Schema, &entries, &created); err != nil {
		return Metadata{}, err
	}
	m.Entries = int(entries)

	var err error
	if m.Input.ModTime, err = parseTime(mtime); err != nil {
		return Metadata{}, fmt.Errorf("parse input_mtime: %w", err)
	}
	if m.CreatedAt, err = parseTime(created); err != nil {
		return Metadata{}, fmt.Errorf("parse created_at: %w", err)
	}
	return m, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// Store is a keyed table of codon entries.
type Store interface {
	// WriteEntries inserts entries; keys must be unique.
	WriteEntries(ctx context.Context, entries []codon.Entry) error
	// WriteMetadata replaces the run metadata row.
	WriteMetadata(ctx context.Context, md Metadata) error
	// ReadMetadata returns the run metadata row.
	ReadMetadata(ctx context.Context) (Metadata, error)
	// Lookup returns the entry stored under key.
	Lookup(ctx context.Context, key string) (codon.Entry, bool, error)
	// Count returns the number of entries.
	Count(ctx context.Context) (int64, error)
	Close() error
}

// OpenFunc opens (creating when needed) the table at path.
// readOnly stores reject writes.
type OpenFunc func(path string, readOnly bool) (Store, error)

var (
	enginesMu sync.RWMutex
	engines   = make(map[string]OpenFunc)
)

// Register makes an engine available by name. It panics on duplicates.
func Register(name string, open OpenFunc) {
	enginesMu.Lock()
	defer enginesMu.Unlock()
	if open == nil {
		panic("table: Register open func is nil")
	}
	if _, dup := engines[name]; dup {
		panic("table: Register called twice for engine " + name)
	}
	engines[name] = open
}

// Engines returns the registered engine names, sorted.
func Engines() []string {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupEngine(name string) (OpenFunc, error) {
	if name == "" {
		name = DefaultEngine
	}
	enginesMu.RLock()
	open, ok := engines[name]
	enginesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (registered: %v)", ErrUnknownEngine, name, Engines())
	}
	return open, nil
}

// Create replaces whatever exists at path with a new, empty table.
func Create(engine, path string) (Store, error) {
	open, err := lookupEngine(engine)
	if err != nil {
		return nil, err
	}
	if err := Remove(path); err != nil {
		return nil, err
	}
	return open(path, false)
}

// Open opens an existing table for lookups.
func Open(engine, path string) (Store, error) {
	open, err := lookupEngine(engine)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	return open(path, true)
}

// Remove deletes a table file or directory along with engine side files.
// A missing path is not an error.
func Remove(path string) error {
	for _, p := range []string{path, path + ".wal", path + "-wal", path + "-shm", path + "-journal"} {
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("remove existing table: %w", err)
		}
	}
	return nil
}

// Export writes entries and metadata to a fresh table at path.
func Export(ctx context.Context, engine, path string, entries []codon.Entry, md Metadata) error {
	s, err := Create(engine, path)
	if err != nil {
		return err
	}
	if err := s.WriteEntries(ctx, entries); err != nil {
		s.Close()
		return fmt.Errorf("write entries: %w", err)
	}
	md.Entries = len(entries)
	if err := s.WriteMetadata(ctx, md); err != nil {
		s.Close()
		return fmt.Errorf("write metadata: %w", err)
	}
	return s.Close()
}
