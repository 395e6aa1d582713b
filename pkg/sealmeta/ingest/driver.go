// Package ingest drives a run over a metadata directory: it bootstraps the
// store, extracts and loads every matching file in name order, and commits
// once at the end.
package ingest

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/cognicore/sealmeta/pkg/sealmeta/extract"
	"github.com/cognicore/sealmeta/pkg/sealmeta/load"
	"github.com/cognicore/sealmeta/pkg/sealmeta/store"
	"github.com/cognicore/sealmeta/pkg/sealmeta/store/sqlite"
	"github.com/cognicore/sealmeta/pkg/sealmeta/xmldoc"
)

// OpenFunc opens the store at path.
type OpenFunc func(ctx context.Context, path string) (store.Store, error)

// OpenSQLite is the default OpenFunc.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	return sqlite.OpenSQLite(ctx, path)
}

// Options configures a Driver
type Options struct {
	Open            OpenFunc           // defaults to OpenSQLite
	Extractor       *extract.Extractor // defaults to the LIDO vocabulary
	Extension       string             // defaults to ".xml"
	BootstrapScript string             // empty runs the embedded script
	ContinueOnError bool               // skip files that fail to parse or extract
	Progress        Progress
	Logger          *zap.Logger
}

// FileError is a file that failed to parse or extract.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e *FileError) Unwrap() error { return e.Err }

// Report summarises a run
type Report struct {
	RunID       string
	Files       int      // directory entries seen
	Loaded      int      // artifacts written
	Skipped     []string // entries ignored by name or type
	Failed      []FileError
	TagsCreated int
}

// Driver runs one ingestion at a time. It is not safe for concurrent use.
type Driver struct {
	open            OpenFunc
	extractor       *extract.Extractor
	extension       string
	bootstrapScript string
	continueOnError bool
	progress        Progress
	logger          *zap.Logger
	entropy         *ulid.MonotonicEntropy

	state State
}

// New creates a driver with the given options
func New(opts Options) *Driver {
	d := &Driver{
		open:            opts.Open,
		extractor:       opts.Extractor,
		extension:       opts.Extension,
		bootstrapScript: opts.BootstrapScript,
		continueOnError: opts.ContinueOnError,
		progress:        opts.Progress,
		logger:          opts.Logger,
		entropy:         ulid.Monotonic(rand.Reader, 0),
	}
	if d.open == nil {
		d.open = OpenSQLite
	}
	if d.extractor == nil {
		d.extractor = extract.New(extract.DefaultVocabulary())
	}
	if d.extension == "" {
		d.extension = ".xml"
	}
	if d.progress == nil {
		d.progress = NopProgress()
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d
}

// State returns the phase reached by the current or last run.
func (d *Driver) State() State {
	return d.state
}

func (d *Driver) enter(log *zap.Logger, s State) {
	d.state = s
	log.Debug("state", zap.Stringer("state", s))
}

// Run ingests every matching file of inputDir into the store at outputPath.
// Writes are committed once, after the last file; any returned error means
// nothing from this run was committed.
func (d *Driver) Run(ctx context.Context, inputDir, outputPath string) (Report, error) {
	report := Report{RunID: ulid.MustNew(ulid.Now(), d.entropy).String()}
	log := d.logger.With(zap.String("run_id", report.RunID))

	d.enter(log, Initializing)
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return report, fmt.Errorf("create output directory: %w", err)
	}
	st, err := d.open(ctx, outputPath)
	if err != nil {
		return report, fmt.Errorf("open store %s: %w", outputPath, err)
	}
	defer st.Close()

	d.enter(log, Bootstrapping)
	if err := st.Bootstrap(ctx, d.bootstrapScript); err != nil {
		return report, fmt.Errorf("bootstrap store: %w", err)
	}

	d.enter(log, Ingesting)
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return report, fmt.Errorf("list %s: %w", inputDir, err)
	}

	loader := load.NewLoader(st, log)
	d.progress.Start(len(entries))
	for _, entry := range entries {
		report.Files++
		path := filepath.Join(inputDir, entry.Name())

		if entry.IsDir() || filepath.Ext(entry.Name()) != d.extension {
			log.Info("skipping file without expected extension",
				zap.String("path", path), zap.String("extension", d.extension))
			report.Skipped = append(report.Skipped, path)
			d.progress.Advance(entry.Name())
			continue
		}

		rec, err := d.extractFile(path)
		if err != nil {
			fileErr := FileError{Path: path, Err: err}
			if !d.continueOnError {
				d.progress.Finish()
				return report, &fileErr
			}
			log.Warn("skipping file that failed extraction", zap.String("path", path), zap.Error(err))
			report.Failed = append(report.Failed, fileErr)
			d.progress.Advance(entry.Name())
			continue
		}

		if _, err := loader.Load(ctx, rec); err != nil {
			d.progress.Finish()
			return report, fmt.Errorf("load %s: %w", path, err)
		}
		report.Loaded++
		d.progress.Advance(entry.Name())
	}
	d.progress.Finish()
	report.TagsCreated = loader.TagsCreated()

	d.enter(log, Finalizing)
	if err := st.Commit(ctx); err != nil {
		return report, fmt.Errorf("commit: %w", err)
	}
	if err := st.Close(); err != nil {
		return report, fmt.Errorf("close store: %w", err)
	}

	d.enter(log, Done)
	log.Info("ingestion complete",
		zap.Int("files", report.Files),
		zap.Int("loaded", report.Loaded),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("failed", len(report.Failed)),
		zap.Int("tags_created", report.TagsCreated))
	return report, nil
}

// extractFile parses and extracts one document.
func (d *Driver) extractFile(path string) (extract.Record, error) {
	doc, err := xmldoc.ParseFile(path)
	if err != nil {
		return extract.Record{}, err
	}
	return d.extractor.Extract(doc)
}
