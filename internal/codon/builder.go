package codon

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/populationgenomics/clinvar-codon/internal/csq"
	"github.com/populationgenomics/clinvar-codon/internal/vcf"
)

// Default INFO keys written by the ClinVar summarising step.
const (
	DefaultAlleleIDField  = "allele_id"
	DefaultGoldStarsField = "gold_stars"
)

// ErrMissingInfo matches any *MissingInfoError.
var ErrMissingInfo = errors.New("missing INFO field")

// MissingInfoError reports a record lacking a required INFO key.
type MissingInfoError struct {
	Field    string
	Line     int
	Location string
}

func (e *MissingInfoError) Error() string {
	return fmt.Sprintf("line %d (%s): missing INFO field %s", e.Line, e.Location, e.Field)
}

// Is reports whether target is ErrMissingInfo.
func (e *MissingInfoError) Is(target error) bool {
	return target == ErrMissingInfo
}

// Options selects the INFO keys and consequence term used by a Builder.
// Empty fields fall back to the defaults.
type Options struct {
	CSQField       string
	MissenseTerm   string
	AlleleIDField  string
	GoldStarsField string
}

func (o Options) withDefaults() Options {
	if o.CSQField == "" {
		o.CSQField = csq.DefaultField
	}
	if o.MissenseTerm == "" {
		o.MissenseTerm = csq.ConsequenceMissenseVariant
	}
	if o.AlleleIDField == "" {
		o.AlleleIDField = DefaultAlleleIDField
	}
	if o.GoldStarsField == "" {
		o.GoldStarsField = DefaultGoldStarsField
	}
	return o
}

// Stats summarises one Build.
type Stats struct {
	Variants   int // records read
	NonSNV     int // records that are not single-nucleotide
	Kept       int // consequences matching the term
	Duplicates int // (protein key, clinical key) pairs already present

	Schema csq.Schema // consequence format the records were decoded with
}

// Builder folds a stream of annotated ClinVar records into an Index.
type Builder struct {
	opts   Options
	logger *zap.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(opts Options) *Builder {
	return &Builder{
		opts:   opts.withDefaults(),
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for progress and summary messages.
func (b *Builder) SetLogger(l *zap.Logger) {
	b.logger = l
}

// Build reads every record from parser and returns the aggregated index.
// The first error aborts the build.
func (b *Builder) Build(parser vcf.VariantParser) (*Index, Stats, error) {
	var stats Stats

	schema, err := csq.SchemaFromHeader(parser.HeaderElements(), b.opts.CSQField)
	if err != nil {
		return nil, stats, err
	}
	if err := schema.Require(csq.FieldENSP, csq.FieldProteinPosition, csq.FieldConsequence); err != nil {
		return nil, stats, err
	}
	stats.Schema = schema
	b.logger.Debug("consequence schema",
		zap.String("field", b.opts.CSQField),
		zap.Int("columns", len(schema)),
		zap.Stringer("format", schema))

	extractor := csq.NewExtractor(schema, b.opts.MissenseTerm)
	ix := NewIndex()

	for {
		v, err := parser.Next()
		if err != nil {
			return nil, stats, fmt.Errorf("read variant: %w", err)
		}
		if v == nil {
			break
		}
		stats.Variants++
		if !v.IsSNV() {
			stats.NonSNV++
		}

		if err := b.add(ix, extractor, v, parser.LineNumber(), &stats); err != nil {
			return nil, stats, err
		}
	}

	if stats.NonSNV > 0 {
		b.logger.Warn("input contains non-SNV records",
			zap.Int("count", stats.NonSNV))
	}
	b.logger.Info("aggregated consequences",
		zap.Int("variants", stats.Variants),
		zap.Int("kept", stats.Kept),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("protein_keys", ix.Len()))

	return ix, stats, nil
}

func (b *Builder) add(ix *Index, extractor *csq.Extractor, v *vcf.Variant, line int, stats *Stats) error {
	info := func(field string) (string, error) {
		val, ok := v.InfoString(field)
		if !ok {
			return "", &MissingInfoError{Field: field, Line: line, Location: v.Location()}
		}
		return val, nil
	}

	alleleID, err := info(b.opts.AlleleIDField)
	if err != nil {
		return err
	}
	goldStars, err := info(b.opts.GoldStarsField)
	if err != nil {
		return err
	}
	block, err := info(b.opts.CSQField)
	if err != nil {
		return err
	}
	clinicalKey := ClinicalKey(alleleID, goldStars)

	kept, err := extractor.Extract(block)
	if err != nil {
		return fmt.Errorf("line %d (%s): %w", line, v.Location(), err)
	}
	stats.Kept += len(kept)

	for _, c := range kept {
		if !ix.Add(ProteinKey(c.ENSP, c.ProteinPosition), clinicalKey) {
			stats.Duplicates++
		}
	}
	return nil
}
