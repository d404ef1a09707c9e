package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/populationgenomics/clinvar-codon/internal/codon"
	"github.com/populationgenomics/clinvar-codon/internal/output"
	"github.com/populationgenomics/clinvar-codon/internal/table"
)

var errKeysNotFound = errors.New("keys not found")

// entrySource resolves one key to its entry.
type entrySource interface {
	Lookup(ctx context.Context, key string) (codon.Entry, bool, error)
	Close() error
}

// jsonSource serves lookups from a JSON-lines file held in memory.
type jsonSource map[string]codon.Entry

func (s jsonSource) Lookup(_ context.Context, key string) (codon.Entry, bool, error) {
	e, ok := s[key]
	return e, ok, nil
}

func (s jsonSource) Close() error { return nil }

func (a *app) lookupCmd() *cobra.Command {
	var (
		outputRoot, tablePath, jsonPath string
		header, long                    bool
	)

	cmd := &cobra.Command{
		Use:   "lookup <ensp:protein_position>...",
		Short: "Print the ClinVar alleles recorded at protein positions",
		Long: `Look up protein keys in a table written by clinvar-codon.

Each key found prints "<newkey><TAB><clinvar_alleles>", or with --long one
"<newkey><TAB><allele_id><TAB><gold_stars>" row per allele. Keys that are not
present are reported on stderr and make the command exit non-zero.`,
		Example: `  clinvar-codon lookup -o out/clinvar_by_codon ENSP00000308495:12
  clinvar-codon lookup --table other.ht --engine sqlite ENSP00000269305:248
  clinvar-codon lookup --json out/clinvar_by_codon.json ENSP00000308495:12`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.openSource(outputRoot, tablePath, jsonPath)
			if err != nil {
				return err
			}
			defer src.Close()

			w := output.NewTabWriter(a.stdout)
			if long {
				w = output.NewLongTabWriter(a.stdout)
			}
			if header {
				if err := w.WriteHeader(); err != nil {
					return err
				}
			}
			err = a.runLookup(cmd.Context(), src, w, args)
			if ferr := w.Flush(); ferr != nil && err == nil {
				err = ferr
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&outputRoot, "output", "o", "", "Output root of a previous run; reads <root>.ht")
	cmd.Flags().StringVar(&tablePath, "table", "", "Keyed table path")
	cmd.Flags().StringVar(&jsonPath, "json", "", "JSON-lines file to search instead of a table")
	cmd.Flags().BoolVar(&header, "header", false, "Print a header line")
	cmd.Flags().BoolVar(&long, "long", false, "One row per allele with allele_id and gold_stars columns")
	cmd.MarkFlagsMutuallyExclusive("output", "table", "json")

	return cmd
}

func (a *app) openSource(outputRoot, tablePath, jsonPath string) (entrySource, error) {
	switch {
	case jsonPath != "":
		entries, err := output.ReadJSONLFile(jsonPath)
		if err != nil {
			return nil, err
		}
		src := make(jsonSource, len(entries))
		for _, e := range entries {
			src[e.NewKey] = e
		}
		a.logger.Debug("loaded JSON lines", zap.String("path", jsonPath), zap.Int("entries", len(src)))
		return src, nil
	case tablePath == "" && outputRoot == "":
		return nil, usageErrorf("one of -o/--output, --table or --json is required")
	case tablePath == "":
		tablePath = table.Path(outputRoot)
	}

	engine := a.v.GetString(keyEngine)
	s, err := table.Open(engine, tablePath)
	if err != nil {
		return nil, err
	}
	if md, err := s.ReadMetadata(context.Background()); err == nil {
		a.logger.Debug("opened keyed table",
			zap.String("path", tablePath),
			zap.String("engine", engine),
			zap.String("run_id", md.RunID),
			zap.String("input", md.Input.Path),
			zap.Int("entries", md.Entries))
	}
	return s, nil
}

func (a *app) runLookup(ctx context.Context, src entrySource, w codon.EntryWriter, keys []string) error {
	var missing int
	for _, key := range keys {
		e, ok, err := src.Lookup(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			missing++
			fmt.Fprintf(a.stderr, "not found: %s\n", key)
			continue
		}
		if err := w.Write(e); err != nil {
			return err
		}
	}
	if missing > 0 {
		return fmt.Errorf("%w: %d of %d", errKeysNotFound, missing, len(keys))
	}
	return nil
}
