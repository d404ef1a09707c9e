// Package vcf provides VCF file parsing functionality.
package vcf

import "fmt"

// Variant represents a single record from a VCF file.
type Variant struct {
	Chrom  string                 // Chromosome name (e.g., "12", "chr12")
	Pos    int64                  // 1-based genomic position
	ID     string                 // Variant identifier (e.g., rs ID)
	Ref    string                 // Reference allele
	Alt    string                 // Alternate allele(s), comma separated
	Qual   float64                // Quality score
	Filter string                 // Filter status (PASS or filter name)
	Info   map[string]interface{} // INFO field key-value pairs
}

// IsSNV returns true if the variant is a single nucleotide variant.
func (v *Variant) IsSNV() bool {
	return len(v.Ref) == 1 && len(v.Alt) == 1
}

// InfoString returns the raw value of an INFO key.
// Flag-type keys are reported as present with an empty value.
func (v *Variant) InfoString(key string) (string, bool) {
	raw, ok := v.Info[key]
	if !ok {
		return "", false
	}
	switch val := raw.(type) {
	case string:
		return val, true
	case bool:
		return "", val
	default:
		return fmt.Sprint(val), true
	}
}

// Location formats the variant as chrom:pos ref>alt for log messages.
func (v *Variant) Location() string {
	return fmt.Sprintf("%s:%d %s>%s", v.Chrom, v.Pos, v.Ref, v.Alt)
}
