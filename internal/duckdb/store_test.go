package duckdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/populationgenomics/clinvar-codon/internal/codon"
	"github.com/populationgenomics/clinvar-codon/internal/table"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", false)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
}

func TestRegistered(t *testing.T) {
	assert.Contains(t, table.Engines(), EngineName)
}

func TestWriteAndLookupEntries(t *testing.T) {
	ctx := context.Background()
	s := openInMemory(t)

	entries := []codon.Entry{
		{NewKey: "ENSP00000308495:12", ClinvarAlleles: "10:2+11:1"},
		{NewKey: "ENSP00000256078:12", ClinvarAlleles: "10:2"},
	}
	require.NoError(t, s.WriteEntries(ctx, entries))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	e, ok, err := s.Lookup(ctx, "ENSP00000308495:12")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entries[0], e)

	_, ok, err = s.Lookup(ctx, "ENSP00000308495:13")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteEntries_Empty(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteEntries(context.Background(), nil))
}

func TestWriteEntries_DuplicateKey(t *testing.T) {
	s := openInMemory(t)
	err := s.WriteEntries(context.Background(), []codon.Entry{
		{NewKey: "ENSP1:1", ClinvarAlleles: "1:1"},
		{NewKey: "ENSP1:1", ClinvarAlleles: "2:2"},
	})
	assert.Error(t, err)
}

func TestMetadataRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openInMemory(t)

	md := table.Metadata{
		RunID:     "run-1",
		Input:     table.Fingerprint{Path: "in.vcf", Size: 42, ModTime: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		Schema:    "allele|consequence|ensp|protein_position",
		Entries:   2,
		CreatedAt: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.WriteMetadata(ctx, md))

	// A second write replaces the row.
	md.RunID = "run-2"
	require.NoError(t, s.WriteMetadata(ctx, md))

	got, err := s.ReadMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, md, got)
}

func TestExportReopenReadOnly(t *testing.T) {
	ctx := context.Background()
	path := table.Path(filepath.Join(t.TempDir(), "out", "clinvar_by_codon"))

	entries := []codon.Entry{{NewKey: "ENSP1:45", ClinvarAlleles: "10:2"}}
	require.NoError(t, table.Export(ctx, EngineName, path, entries, table.Metadata{RunID: "a"}))

	// Exporting again overwrites the earlier table.
	entries = []codon.Entry{{NewKey: "ENSP2:9", ClinvarAlleles: "12:3"}}
	require.NoError(t, table.Export(ctx, EngineName, path, entries, table.Metadata{RunID: "b"}))

	s, err := table.Open(EngineName, path)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err := s.Lookup(ctx, "ENSP1:45")
	require.NoError(t, err)
	assert.False(t, ok)

	md, err := s.ReadMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", md.RunID)
	assert.Equal(t, 1, md.Entries)

	assert.Error(t, s.WriteEntries(ctx, entries))
}
