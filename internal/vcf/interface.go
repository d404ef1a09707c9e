package vcf

// VariantParser is the interface for parsers that read variants.
type VariantParser interface {
	// Next reads the next variant.
	// Returns nil, nil when there are no more variants.
	Next() (*Variant, error)

	// HeaderElements returns the structured meta-information lines
	// (##INFO=<...>, ##FORMAT=<...>, ...) read before the first record.
	HeaderElements() []HeaderElement

	// Close closes the parser and releases resources.
	Close() error

	// LineNumber returns the current line number being processed.
	LineNumber() int
}
