// Package csq decodes VEP consequence (CSQ) annotation blocks.
//
// A VEP-annotated VCF declares the layout of its CSQ INFO field once in the
// header:
//
//	##INFO=<ID=CSQ,...,Description="Consequence annotations from Ensembl VEP. Format: Allele|Consequence|...">
//
// Each record then carries one comma-separated token per transcript, with
// pipe-separated values in that declared order.
package csq

import (
	"errors"
	"fmt"
	"strings"

	"github.com/populationgenomics/clinvar-codon/internal/vcf"
)

// DefaultField is the INFO key VEP writes consequences to.
const DefaultField = "CSQ"

const formatMarker = "Format: "

var (
	// ErrSchemaNotFound is returned when the header has no INFO element
	// describing the consequence block.
	ErrSchemaNotFound = errors.New("consequence schema not found in header")

	// ErrSchemaField is returned when the schema lacks a field the caller needs.
	ErrSchemaField = errors.New("consequence schema missing field")
)

// Schema is the ordered, lower-cased list of CSQ sub-field names.
type Schema []string

// SchemaFromHeader locates the INFO element named field (DefaultField when
// empty) and parses the sub-field order from its description.
func SchemaFromHeader(elements []vcf.HeaderElement, field string) (Schema, error) {
	if field == "" {
		field = DefaultField
	}
	for _, el := range elements {
		if el.Kind == "INFO" && el.ID == field {
			return ParseFormat(el.Description), nil
		}
	}
	return nil, fmt.Errorf("%w: INFO/%s", ErrSchemaNotFound, field)
}

// ParseFormat extracts the field list following "Format: " in a header
// description. A trailing quote left over from raw header text is dropped.
func ParseFormat(description string) Schema {
	if i := strings.LastIndex(description, formatMarker); i >= 0 {
		description = description[i+len(formatMarker):]
	}
	description = strings.TrimRight(description, `"`)

	names := strings.Split(description, "|")
	schema := make(Schema, len(names))
	for i, name := range names {
		schema[i] = strings.ToLower(strings.TrimSpace(name))
	}
	return schema
}

// Index returns the position of name in the schema, or -1.
func (s Schema) Index(name string) int {
	name = strings.ToLower(name)
	for i, n := range s {
		if n == name {
			return i
		}
	}
	return -1
}

// Require checks that every name is present in the schema.
func (s Schema) Require(names ...string) error {
	for _, name := range names {
		if s.Index(name) < 0 {
			return fmt.Errorf("%w: %q", ErrSchemaField, name)
		}
	}
	return nil
}

func (s Schema) String() string {
	return strings.Join(s, "|")
}
