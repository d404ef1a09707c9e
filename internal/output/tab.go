package output

import (
	"bufio"
	"io"
	"strings"

	"github.com/populationgenomics/clinvar-codon/internal/codon"
)

// TabWriter writes codon entries in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
	long    bool
}

// NewTabWriter creates a writer emitting one row per entry.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w:       bufio.NewWriter(w),
		columns: []string{"#newkey", "clinvar_alleles"},
	}
}

// NewLongTabWriter creates a writer emitting one row per allele, with the
// allele id and gold stars in separate columns.
func NewLongTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w:       bufio.NewWriter(w),
		columns: []string{"#newkey", "allele_id", "gold_stars"},
		long:    true,
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single entry.
func (tw *TabWriter) Write(e codon.Entry) error {
	if !tw.long {
		return tw.row(e.NewKey, e.ClinvarAlleles)
	}
	for _, a := range e.Alleles() {
		id, stars, ok := strings.Cut(a, ":")
		if !ok {
			stars = "-"
		}
		if err := tw.row(e.NewKey, id, stars); err != nil {
			return err
		}
	}
	return nil
}

func (tw *TabWriter) row(values ...string) error {
	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}
