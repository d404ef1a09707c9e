// Package codon re-keys ClinVar alleles by protein position.
package codon

import (
	"fmt"
	"strings"
)

// AlleleSeparator joins the clinical keys of one protein position.
const AlleleSeparator = "+"

// Entry is one finalized protein position.
type Entry struct {
	NewKey         string `json:"newkey"`          // ensp:protein_position
	ClinvarAlleles string `json:"clinvar_alleles"` // "+"-joined allele_id:gold_stars tokens
}

// Alleles splits the joined clinical keys.
func (e Entry) Alleles() []string {
	if e.ClinvarAlleles == "" {
		return nil
	}
	return strings.Split(e.ClinvarAlleles, AlleleSeparator)
}

// EntryWriter receives finalized entries.
type EntryWriter interface {
	Write(e Entry) error
	Flush() error
}

// ClinicalKey formats the per-variant value token "allele_id:gold_stars".
func ClinicalKey(alleleID, goldStars string) string {
	return alleleID + ":" + goldStars
}

// ProteinKey formats the aggregation key "protein_id:protein_position".
func ProteinKey(proteinID, position string) string {
	return proteinID + ":" + position
}

type alleleSet struct {
	tokens []string
	seen   map[string]struct{}
}

// Index maps protein keys to the set of clinical keys seen there.
// Both keys and tokens keep first-insertion order. Not safe for concurrent use.
type Index struct {
	keys []string
	sets map[string]*alleleSet
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{sets: make(map[string]*alleleSet)}
}

// Add records clinicalKey under proteinKey, creating the set on first use.
// It reports whether the token was new for that key.
func (ix *Index) Add(proteinKey, clinicalKey string) bool {
	set, ok := ix.sets[proteinKey]
	if !ok {
		set = &alleleSet{seen: make(map[string]struct{})}
		ix.sets[proteinKey] = set
		ix.keys = append(ix.keys, proteinKey)
	}
	if _, dup := set.seen[clinicalKey]; dup {
		return false
	}
	set.seen[clinicalKey] = struct{}{}
	set.tokens = append(set.tokens, clinicalKey)
	return true
}

// Len returns the number of protein keys.
func (ix *Index) Len() int {
	return len(ix.keys)
}

// Keys returns the protein keys in insertion order.
func (ix *Index) Keys() []string {
	return append([]string(nil), ix.keys...)
}

// Alleles returns the clinical keys stored under proteinKey in insertion order.
func (ix *Index) Alleles(proteinKey string) []string {
	set, ok := ix.sets[proteinKey]
	if !ok {
		return nil
	}
	return append([]string(nil), set.tokens...)
}

// Entries finalizes the index into one Entry per protein key, in insertion order.
func (ix *Index) Entries() []Entry {
	entries := make([]Entry, 0, len(ix.keys))
	for _, k := range ix.keys {
		entries = append(entries, Entry{
			NewKey:         k,
			ClinvarAlleles: strings.Join(ix.sets[k].tokens, AlleleSeparator),
		})
	}
	return entries
}

// Emit streams every entry to w and flushes it.
func (ix *Index) Emit(w EntryWriter) (int, error) {
	n := 0
	for _, e := range ix.Entries() {
		if err := w.Write(e); err != nil {
			return n, fmt.Errorf("write entry %s: %w", e.NewKey, err)
		}
		n++
	}
	if err := w.Flush(); err != nil {
		return n, fmt.Errorf("flush entries: %w", err)
	}
	return n, nil
}
