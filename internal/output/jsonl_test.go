package output

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/populationgenomics/clinvar-codon/internal/codon"
)

func TestJSONLWriter_Format(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf)

	require.NoError(t, w.Write(codon.Entry{NewKey: "ENSP1:45", ClinvarAlleles: "10:2+11:1"}))
	require.NoError(t, w.Write(codon.Entry{NewKey: "ENSP2:9", ClinvarAlleles: "12:3"}))
	require.NoError(t, w.Flush())

	assert.Equal(t,
		`{"newkey":"ENSP1:45","clinvar_alleles":"10:2+11:1"}`+"\n"+
			`{"newkey":"ENSP2:9","clinvar_alleles":"12:3"}`+"\n",
		buf.String())
}

func TestJSONLWriter_NothingBeforeFlush(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf)

	require.NoError(t, w.Write(codon.Entry{NewKey: "ENSP1:45", ClinvarAlleles: "10:2"}))
	assert.Zero(t, buf.Len())
	require.NoError(t, w.Flush())
	assert.NotZero(t, buf.Len())
}

func TestWriteAndReadJSONLFile(t *testing.T) {
	ix := codon.NewIndex()
	ix.Add("ENSP1:45", "10:2")
	ix.Add("ENSP1:45", "11:1")
	ix.Add("ENSP2:9", "12:3")

	path := JSONPath(filepath.Join(t.TempDir(), "clinvar_by_codon"))
	assert.True(t, strings.HasSuffix(path, "clinvar_by_codon.json"))

	n, err := WriteJSONLFile(path, ix)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err := ReadJSONLFile(path)
	require.NoError(t, err)
	assert.Equal(t, ix.Entries(), entries)
}

func TestWriteJSONLFile_Truncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	big := codon.NewIndex()
	big.Add("ENSP1:1", "1:1")
	big.Add("ENSP2:2", "2:2")
	_, err := WriteJSONLFile(path, big)
	require.NoError(t, err)

	small := codon.NewIndex()
	small.Add("ENSP3:3", "3:3")
	_, err = WriteJSONLFile(path, small)
	require.NoError(t, err)

	entries, err := ReadJSONLFile(path)
	require.NoError(t, err)
	assert.Equal(t, small.Entries(), entries)
}

func TestReadJSONL_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bad json", "{\"newkey\":\n", "json line 1"},
		{"missing key", "\n{\"clinvar_alleles\":\"1:1\"}\n", "json line 2: missing newkey"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSONL(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadJSONLFile_Missing(t *testing.T) {
	_, err := ReadJSONLFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
