// Package output renders the codon index as JSON lines and tab-delimited text.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"

	"github.com/populationgenomics/clinvar-codon/internal/codon"
)

// JSONExt is appended to the output root for the JSON-lines file.
const JSONExt = ".json"

// JSONPath returns the JSON-lines path for an output root.
func JSONPath(root string) string {
	return root + JSONExt
}

// JSONLWriter writes one {"newkey":..,"clinvar_alleles":..} object per line.
type JSONLWriter struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSONLWriter creates a new JSON-lines writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{w: bw, enc: enc}
}

// Write writes a single entry followed by a newline.
func (jw *JSONLWriter) Write(e codon.Entry) error {
	return jw.enc.Encode(e)
}

// Flush flushes any buffered data.
func (jw *JSONLWriter) Flush() error {
	return jw.w.Flush()
}

// WriteJSONLFile creates (or truncates) path and writes every entry of ix.
func WriteJSONLFile(path string, ix *codon.Index) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create json output: %w", err)
	}

	n, err := ix.Emit(NewJSONLWriter(f))
	if err != nil {
		f.Close()
		return n, err
	}
	if err := f.Close(); err != nil {
		return n, fmt.Errorf("close json output: %w", err)
	}
	return n, nil
}

// ReadJSONL reads entries written by JSONLWriter. Blank lines are skipped.
func ReadJSONL(r io.Reader) ([]codon.Entry, error) {
	var entries []codon.Entry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var e codon.Entry
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, fmt.Errorf("json line %d: %w", line, err)
		}
		if e.NewKey == "" {
			return nil, fmt.Errorf("json line %d: missing newkey", line)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read json lines: %w", err)
	}
	return entries, nil
}

// ReadJSONLFile reads every entry from a JSON-lines file.
func ReadJSONLFile(path string) ([]codon.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open json output: %w", err)
	}
	defer f.Close()
	return ReadJSONL(f)
}
