package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/populationgenomics/clinvar-codon/internal/codon"
	"github.com/populationgenomics/clinvar-codon/internal/output"
)

const testVCF = "../../testdata/clinvar_pathogenic.vcf"

// runCLI runs the command with an isolated home directory.
func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestRun_BuildAndLookup(t *testing.T) {
	for _, engine := range []string{"duckdb", "sqlite"} {
		t.Run(engine, func(t *testing.T) {
			isolate(t)
			root := filepath.Join(t.TempDir(), "out", "clinvar_by_codon")

			code, _, stderr := runCLI(t, "-i", testVCF, "-o", root, "--engine", engine)
			require.Equal(t, ExitSuccess, code, stderr)
			assert.Contains(t, stderr, root+".json")
			assert.Contains(t, stderr, root+".ht")
			assert.Contains(t, stderr, `"level":"info"`)

			entries, err := output.ReadJSONLFile(root + ".json")
			require.NoError(t, err)
			assert.Equal(t, []codon.Entry{
				{NewKey: "ENSP00000308495:12", ClinvarAlleles: "10:2+11:1"},
				{NewKey: "ENSP00000256078:12", ClinvarAlleles: "10:2"},
			}, entries)

			code, stdout, _ := runCLI(t, "lookup", "-o", root, "--engine", engine, "ENSP00000308495:12")
			require.Equal(t, ExitSuccess, code)
			assert.Equal(t, "ENSP00000308495:12\t10:2+11:1\n", stdout)

			code, stdout, stderr = runCLI(t, "lookup", "--table", root+".ht", "--engine", engine,
				"ENSP00000256078:12", "ENSP00000269305:248")
			assert.Equal(t, ExitError, code)
			assert.Equal(t, "ENSP00000256078:12\t10:2\n", stdout)
			assert.Contains(t, stderr, "not found: ENSP00000269305:248")
		})
	}
}

func TestRun_OverwritesTable(t *testing.T) {
	isolate(t)
	root := filepath.Join(t.TempDir(), "clinvar_by_codon")
	require.NoError(t, os.MkdirAll(filepath.Join(root+".ht", "rows"), 0755))

	code, _, stderr := runCLI(t, "-i", testVCF, "-o", root)
	require.Equal(t, ExitSuccess, code, stderr)

	info, err := os.Stat(root + ".ht")
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestRun_LookupJSON(t *testing.T) {
	isolate(t)
	root := filepath.Join(t.TempDir(), "clinvar_by_codon")
	code, _, stderr := runCLI(t, "-i", testVCF, "-o", root)
	require.Equal(t, ExitSuccess, code, stderr)

	code, stdout, _ := runCLI(t, "lookup", "--json", root+".json", "ENSP00000256078:12")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "ENSP00000256078:12\t10:2\n", stdout)
}

func TestRun_LookupLongHeader(t *testing.T) {
	isolate(t)
	root := filepath.Join(t.TempDir(), "clinvar_by_codon")
	code, _, stderr := runCLI(t, "-i", testVCF, "-o", root)
	require.Equal(t, ExitSuccess, code, stderr)

	code, stdout, _ := runCLI(t, "lookup", "-o", root, "--long", "--header", "ENSP00000308495:12")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t,
		"#newkey\tallele_id\tgold_stars\n"+
			"ENSP00000308495:12\t10\t2\n"+
			"ENSP00000308495:12\t11\t1\n",
		stdout)
}

func TestRun_UsageErrors(t *testing.T) {
	isolate(t)
	tests := []struct {
		name string
		args []string
	}{
		{"no flags", nil},
		{"missing output", []string{"-i", testVCF}},
		{"missing input", []string{"-o", "out"}},
		{"unknown flag", []string{"--bogus"}},
		{"stray argument", []string{"-i", testVCF, "-o", "out", "extra"}},
		{"lookup without keys", []string{"lookup", "-o", "out"}},
		{"lookup without source", []string{"lookup", "ENSP1:1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args...)
			assert.Equal(t, ExitUsage, code)
			assert.Contains(t, stderr, "Error:")
		})
	}
}

func TestRun_MissingInput(t *testing.T) {
	isolate(t)
	root := filepath.Join(t.TempDir(), "out")
	code, _, stderr := runCLI(t, "-i", filepath.Join(t.TempDir(), "missing.vcf"), "-o", root)
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "missing.vcf")
	_, err := os.Stat(root + ".json")
	assert.True(t, os.IsNotExist(err))
}

func TestRun_NoSchema(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "plain.vcf")
	require.NoError(t, os.WriteFile(input, []byte("##fileformat=VCFv4.2\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n"), 0644))

	code, _, stderr := runCLI(t, "-i", input, "-o", filepath.Join(dir, "out"))
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "consequence schema not found")
}

func TestRun_UnknownEngine(t *testing.T) {
	isolate(t)
	code, _, stderr := runCLI(t, "-i", testVCF, "-o", filepath.Join(t.TempDir(), "out"), "--engine", "hail")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "unknown table engine")
}

func TestConfig_SetGetShow(t *testing.T) {
	home := isolate(t)

	code, stdout, stderr := runCLI(t, "config", "set", "csq.missense_term", "stop_gained")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, filepath.Join(home, ".clinvar-codon.yaml"))

	code, stdout, _ = runCLI(t, "config", "get", "csq.missense_term")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "stop_gained\n", stdout)

	code, stdout, _ = runCLI(t, "config")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "missense_term: stop_gained")
	assert.Contains(t, stdout, "engine: duckdb")

	// Only the explicitly set key lands in the file.
	data, err := os.ReadFile(filepath.Join(home, ".clinvar-codon.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "engine")

	code, _, _ = runCLI(t, "config", "get", "no.such.key")
	assert.Equal(t, ExitError, code)
}

func TestConfig_ChangesBuild(t *testing.T) {
	isolate(t)
	cfg := filepath.Join(t.TempDir(), "codon.yaml")
	code, _, stderr := runCLI(t, "--config", cfg, "config", "set", "csq.missense_term", "stop_gained")
	require.Equal(t, ExitSuccess, code, stderr)

	root := filepath.Join(t.TempDir(), "stops")
	code, _, stderr = runCLI(t, "--config", cfg, "-i", testVCF, "-o", root)
	require.Equal(t, ExitSuccess, code, stderr)

	entries, err := output.ReadJSONLFile(root + ".json")
	require.NoError(t, err)
	assert.Equal(t, []codon.Entry{{NewKey: "ENSP00000269305:248", ClinvarAlleles: "12:3"}}, entries)
}

func TestConfig_EnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("CLINVAR_CODON_TABLE_ENGINE", "sqlite")

	code, stdout, _ := runCLI(t, "config", "get", "table.engine")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "sqlite\n", stdout)
}

func TestRun_MissingConfigFile(t *testing.T) {
	isolate(t)
	code, _, stderr := runCLI(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"),
		"-i", testVCF, "-o", filepath.Join(t.TempDir(), "out"))
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "read config")
}

func TestRun_Verbose(t *testing.T) {
	isolate(t)
	root := filepath.Join(t.TempDir(), "out")
	code, _, stderr := runCLI(t, "--verbose", "-i", testVCF, "-o", root)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stderr, "consequence schema")
	assert.False(t, strings.HasPrefix(stderr, "{"))
}

func TestNewLogger_BadLevel(t *testing.T) {
	_, err := newLogger(&bytes.Buffer{}, "loud", false)
	assert.Error(t, err)
}
