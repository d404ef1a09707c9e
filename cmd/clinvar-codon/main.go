// Package main provides the clinvar-codon command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/populationgenomics/clinvar-codon/internal/codon"
	"github.com/populationgenomics/clinvar-codon/internal/csq"
	"github.com/populationgenomics/clinvar-codon/internal/output"
	"github.com/populationgenomics/clinvar-codon/internal/table"
	"github.com/populationgenomics/clinvar-codon/internal/vcf"

	_ "github.com/populationgenomics/clinvar-codon/internal/duckdb"
	_ "github.com/populationgenomics/clinvar-codon/internal/sqlite"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	configName = ".clinvar-codon"
	envPrefix  = "CLINVAR_CODON"
)

// Config keys.
const (
	keyCSQField       = "csq.field"
	keyMissenseTerm   = "csq.missense_term"
	keyAlleleIDField  = "info.allele_id"
	keyGoldStarsField = "info.gold_stars"
	keyEngine         = "table.engine"
	keyLogLevel       = "log.level"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := newApp(stdout, stderr)
	root := a.rootCmd()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	a.logger.Sync()
	if err == nil {
		return ExitSuccess
	}

	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fmt.Fprintf(stderr, "Run 'clinvar-codon --help' for usage.\n")
		return ExitUsage
	}
	if a.logger != nil && a.logger.Core().Enabled(zapcore.ErrorLevel) {
		a.logger.Error("command failed", zap.Error(err))
	} else {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return ExitError
}

// usageError marks errors caused by bad command-line input.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// usageArgs turns positional-argument validation failures into usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// app carries the state shared by all subcommands.
type app struct {
	stdout, stderr io.Writer
	v              *viper.Viper
	logger         *zap.Logger

	cfgFile string
	verbose bool
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		v:      viper.New(),
		logger: zap.NewNop(),
	}
}

func (a *app) rootCmd() *cobra.Command {
	var input, outputRoot string

	cmd := &cobra.Command{
		Use:   "clinvar-codon -i <input.vcf[.gz]> -o <output_root>",
		Short: "Index VEP-annotated ClinVar variants by protein position",
		Long: `Re-index VEP-annotated ClinVar pathogenic variants by protein position.

Every missense consequence is keyed by <ENSP>:<protein_position> and collects
the <allele_id>:<gold_stars> of each variant hitting that residue. Results are
written as JSON lines to <output_root>.json and as a keyed table to
<output_root>.ht (replacing any existing table).`,
		Example: `  clinvar-codon -i clinvar_pathogenic.vep.vcf.gz -o out/clinvar_by_codon
  clinvar-codon -i - -o out/clinvar_by_codon --engine sqlite < annotated.vcf`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		Args:          usageArgs(cobra.NoArgs),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" || outputRoot == "" {
				return usageErrorf("both -i/--input and -o/--output are required")
			}
			return a.runBuild(cmd.Context(), input, outputRoot)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "VEP-annotated ClinVar VCF (plain or gzip, '-' for stdin)")
	cmd.Flags().StringVarP(&outputRoot, "output", "o", "", "Output root; writes <root>.json and <root>.ht")
	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (default ~/"+configName+".yaml)")
	cmd.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "Human-readable debug logging")
	cmd.PersistentFlags().String("engine", table.DefaultEngine,
		"Keyed table engine: "+strings.Join(table.Engines(), ", "))

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	cmd.AddCommand(a.lookupCmd())
	cmd.AddCommand(a.configCmd())

	return cmd
}

// setup loads configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	v := a.v
	v.SetDefault(keyCSQField, csq.DefaultField)
	v.SetDefault(keyMissenseTerm, csq.ConsequenceMissenseVariant)
	v.SetDefault(keyAlleleIDField, codon.DefaultAlleleIDField)
	v.SetDefault(keyGoldStarsField, codon.DefaultGoldStarsField)
	v.SetDefault(keyEngine, table.DefaultEngine)
	v.SetDefault(keyLogLevel, "info")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlag(keyEngine, cmd.Root().PersistentFlags().Lookup("engine")); err != nil {
		return err
	}

	path, err := a.configPath()
	if err != nil {
		return err
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		// A missing default file is normal; a missing --config file is only
		// acceptable when it is about to be created.
		if !errors.Is(err, os.ErrNotExist) || (a.cfgFile != "" && cmd.Name() != "set") {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	logger, err := newLogger(a.stderr, v.GetString(keyLogLevel), a.verbose)
	if err != nil {
		return usageErrorf("%v", err)
	}
	a.logger = logger
	return nil
}

// configPath returns --config, or ~/.clinvar-codon.yaml.
func (a *app) configPath() (string, error) {
	if a.cfgFile != "" {
		return a.cfgFile, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, configName+".yaml"), nil
}

// newLogger builds a JSON logger, or a console debug logger when verbose.
func newLogger(w io.Writer, level string, verbose bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", keyLogLevel, err)
	}

	var enc zapcore.Encoder
	if verbose {
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		lvl = zapcore.DebugLevel
	} else {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), lvl)), nil
}

func (a *app) builderOptions() codon.Options {
	return codon.Options{
		CSQField:       a.v.GetString(keyCSQField),
		MissenseTerm:   a.v.GetString(keyMissenseTerm),
		AlleleIDField:  a.v.GetString(keyAlleleIDField),
		GoldStarsField: a.v.GetString(keyGoldStarsField),
	}
}

// runBuild aggregates input and writes <root>.json and <root>.ht.
func (a *app) runBuild(ctx context.Context, input, root string) error {
	start := time.Now()

	parser, err := vcf.NewParser(input)
	if err != nil {
		return err
	}
	defer parser.Close()

	b := codon.NewBuilder(a.builderOptions())
	b.SetLogger(a.logger)
	ix, stats, err := b.Build(parser)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(root), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	jsonPath := output.JSONPath(root)
	n, err := output.WriteJSONLFile(jsonPath, ix)
	if err != nil {
		return err
	}
	a.logger.Info("JSON lines written",
		zap.String("path", jsonPath),
		zap.Int("entries", n))

	fp, err := table.StatFile(input)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	md := table.Metadata{
		RunID:     uuid.NewString(),
		Input:     fp,
		Schema:    stats.Schema.String(),
		CreatedAt: time.Now(),
	}

	engine := a.v.GetString(keyEngine)
	tablePath := table.Path(root)
	if err := table.Export(ctx, engine, tablePath, ix.Entries(), md); err != nil {
		return fmt.Errorf("export table %s: %w", tablePath, err)
	}
	a.logger.Info("keyed table written",
		zap.String("path", tablePath),
		zap.String("engine", engine),
		zap.String("run_id", md.RunID),
		zap.Int("entries", ix.Len()),
		zap.Duration("elapsed", time.Since(start)))

	return nil
}
