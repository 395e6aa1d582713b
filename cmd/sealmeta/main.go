package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/cognicore/sealmeta/internal/logging"
	"github.com/cognicore/sealmeta/pkg/sealmeta/config"
	"github.com/cognicore/sealmeta/pkg/sealmeta/extract"
	"github.com/cognicore/sealmeta/pkg/sealmeta/ingest"
)

type options struct {
	outputFile string
	configPath string
	initScript string
	keepGoing  bool
	unitPolicy string
	noProgress bool
	verbose    bool
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "sealmeta <metadata_dir>",
		Short: "Load LIDO seal metadata into an SQLite database",
		Long: `sealmeta reads every .xml record in metadata_dir, extracts the seal's
measurements, family and subject tags, and writes them to an SQLite file.

Tables:
  artifact(id, family, width, height, unit)
  tag(id, name)
  artifact_has_tag(artifact_id, tag_id)

A missing width or height is stored as -1 with unit "N/A". All rows of a run
are committed together; a failing run leaves the database unchanged.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.outputFile, "output-file", "o", config.DefaultOutputFile, "SQLite file to write")
	f.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	f.StringVar(&opts.initScript, "init-script", "", "SQL script run before loading (default: built-in schema)")
	f.BoolVar(&opts.keepGoing, "keep-going", false, "skip records that fail to parse instead of aborting")
	f.StringVar(&opts.unitPolicy, "unit-policy", string(extract.UnitFromWidth), "unit stored per artifact: width or fallback")
	f.BoolVar(&opts.noProgress, "no-progress", false, "disable the progress bar")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	f.StringVar(&opts.logFormat, "log-format", "console", "log encoding: console or json")

	return cmd
}

// resolveConfig layers explicitly set flags over the config file over defaults.
func resolveConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("output-file") || opts.configPath == "" {
		cfg.OutputFile = opts.outputFile
	}
	if flags.Changed("init-script") {
		cfg.BootstrapScript = opts.initScript
	}
	if flags.Changed("keep-going") {
		cfg.ContinueOnError = opts.keepGoing
	}
	if flags.Changed("unit-policy") {
		cfg.UnitPolicy = opts.unitPolicy
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command, metadataDir string, opts *options) error {
	info, err := os.Stat(metadataDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", metadataDir)
	}

	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Verbose: opts.verbose, Format: opts.logFormat})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	vocab, err := cfg.Vocabulary()
	if err != nil {
		return err
	}
	script, err := cfg.LoadBootstrapScript()
	if err != nil {
		return err
	}

	driver := ingest.New(ingest.Options{
		Extractor:       extract.New(vocab),
		Extension:       cfg.Extension,
		BootstrapScript: script,
		ContinueOnError: cfg.ContinueOnError,
		Progress:        newProgress(cmd.ErrOrStderr(), opts.noProgress),
		Logger:          logger,
	})

	report, err := driver.Run(cmd.Context(), metadataDir, cfg.OutputFile)
	if err != nil {
		logger.Error("ingestion failed", zap.String("run_id", report.RunID), zap.Error(err))
		return err
	}

	printSummary(cmd.OutOrStdout(), cfg.OutputFile, report)
	return nil
}

// newProgress returns a bar only when w is a terminal.
func newProgress(w io.Writer, disabled bool) ingest.Progress {
	if disabled {
		return ingest.NopProgress()
	}
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return ingest.NopProgress()
	}
	return ingest.NewBar(f)
}

func printSummary(w io.Writer, output string, r ingest.Report) {
	fmt.Fprintf(w, "Loaded %d of %d files into %s (%d skipped, %d failed, %d new tags)\n",
		r.Loaded, r.Files, output, len(r.Skipped), len(r.Failed), r.TagsCreated)
	for _, f := range r.Failed {
		fmt.Fprintf(w, "  failed: %v\n", &f)
	}
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
