package csq

import (
	"errors"
	"fmt"
	"strings"
)

// Consequence terms (Sequence Ontology) referenced by the filter.
const (
	ConsequenceMissenseVariant   = "missense_variant"
	ConsequenceSynonymousVariant = "synonymous_variant"
	ConsequenceStopGained        = "stop_gained"
)

// Schema field names with a dedicated slot on Consequence.
const (
	FieldAllele          = "allele"
	FieldConsequence     = "consequence"
	FieldImpact          = "impact"
	FieldSymbol          = "symbol"
	FieldGene            = "gene"
	FieldFeature         = "feature"
	FieldBiotype         = "biotype"
	FieldENSP            = "ensp"
	FieldProteinPosition = "protein_position"
	FieldAminoAcids      = "amino_acids"
	FieldCodons          = "codons"
	FieldHGVSp           = "hgvsp"
)

// ErrMalformedConsequence matches any *MalformedConsequenceError.
var ErrMalformedConsequence = errors.New("malformed consequence")

// MalformedConsequenceError reports a token whose value count differs from
// the schema length.
type MalformedConsequenceError struct {
	Token string
	Got   int
	Want  int
}

func (e *MalformedConsequenceError) Error() string {
	return fmt.Sprintf("malformed consequence: %d fields, schema has %d: %q", e.Got, e.Want, e.Token)
}

// Is reports whether target is ErrMalformedConsequence.
func (e *MalformedConsequenceError) Is(target error) bool {
	return target == ErrMalformedConsequence
}

// Consequence is one transcript entry of a CSQ block.
type Consequence struct {
	Allele          string
	Consequence     string // "&"-joined SO terms, e.g. missense_variant&splice_region_variant
	Impact          string
	Symbol          string
	Gene            string
	Feature         string // transcript ID
	Biotype         string
	ENSP            string // protein ID
	ProteinPosition string
	AminoAcids      string
	Codons          string
	HGVSp           string

	schema Schema
	values []string
}

// Get returns the value of any schema field by (case-insensitive) name.
func (c *Consequence) Get(name string) (string, bool) {
	i := c.schema.Index(name)
	if i < 0 {
		return "", false
	}
	return c.values[i], true
}

// HasTerm reports whether term occurs in the consequence field. VEP joins
// co-occurring terms with '&', so this is a substring test.
func (c *Consequence) HasTerm(term string) bool {
	return strings.Contains(c.Consequence, term)
}

// DecodeToken zips the pipe-separated values of one token with the schema.
func DecodeToken(token string, schema Schema) (*Consequence, error) {
	values := strings.Split(token, "|")
	if len(values) != len(schema) {
		return nil, &MalformedConsequenceError{Token: token, Got: len(values), Want: len(schema)}
	}

	c := &Consequence{schema: schema, values: values}
	for i, name := range schema {
		v := values[i]
		switch name {
		case FieldAllele:
			c.Allele = v
		case FieldConsequence:
			c.Consequence = v
		case FieldImpact:
			c.Impact = v
		case FieldSymbol:
			c.Symbol = v
		case FieldGene:
			c.Gene = v
		case FieldFeature:
			c.Feature = v
		case FieldBiotype:
			c.Biotype = v
		case FieldENSP:
			c.ENSP = v
		case FieldProteinPosition:
			c.ProteinPosition = v
		case FieldAminoAcids:
			c.AminoAcids = v
		case FieldCodons:
			c.Codons = v
		case FieldHGVSp:
			c.HGVSp = v
		}
	}
	return c, nil
}

// Decode splits a CSQ block into its transcript tokens and decodes each one.
// Decoding stops at the first malformed token.
func Decode(block string, schema Schema) ([]*Consequence, error) {
	tokens := strings.Split(block, ",")
	out := make([]*Consequence, 0, len(tokens))
	for _, token := range tokens {
		c, err := DecodeToken(token, schema)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Extractor decodes CSQ blocks and keeps the entries carrying one
// consequence term.
type Extractor struct {
	schema Schema
	term   string
}

// NewExtractor returns an Extractor filtering on term
// (ConsequenceMissenseVariant when empty).
func NewExtractor(schema Schema, term string) *Extractor {
	if term == "" {
		term = ConsequenceMissenseVariant
	}
	return &Extractor{schema: schema, term: term}
}

// Schema returns the field layout the extractor decodes with.
func (e *Extractor) Schema() Schema {
	return e.schema
}

// Term returns the consequence term the extractor keeps.
func (e *Extractor) Term() string {
	return e.term
}

// Extract returns the entries of block whose consequence contains the term,
// in their original order.
func (e *Extractor) Extract(block string) ([]*Consequence, error) {
	all, err := Decode(block, e.schema)
	if err != nil {
		return nil, err
	}
	kept := all[:0]
	for _, c := range all {
		if c.HasTerm(e.term) {
			kept = append(kept, c)
		}
	}
	return kept, nil
}
