// Package service runs whole-file conversions. It is shared by the CLI, the
// inbox watcher and the HTTP server: it opens the template, streams records
// through the converter into an output encoder and, when a store is
// configured, into one store run that commits only if the whole file
// converted.
package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/pifcsv/internal/config"
	"github.com/JonMunkholm/pifcsv/internal/core"
	"github.com/JonMunkholm/pifcsv/internal/logging"
	"github.com/JonMunkholm/pifcsv/internal/output"
	"github.com/JonMunkholm/pifcsv/internal/store"
	"github.com/JonMunkholm/pifcsv/internal/tabular"
)

// Options control a single conversion.
type Options struct {
	Format          output.Format
	Charset         string
	CellLimit       int
	MergeProperties bool
}

// Summary describes a finished conversion.
type Summary struct {
	// RunID identifies the store run; it is the zero UUID without a store.
	RunID       uuid.UUID         `json:"runId"`
	Source      string            `json:"source"`
	Format      output.Format     `json:"format"`
	Records     int               `json:"records"`
	Diagnostics []core.Diagnostic `json:"diagnostics,omitempty"`
	Duration    time.Duration     `json:"duration"`
}

// Service converts templates. The zero value converts without persisting.
type Service struct {
	store    store.Store
	defaults Options
}

// New returns a service persisting into st, which may be nil.
func New(st store.Store, defaults Options) *Service {
	if defaults.Format == "" {
		defaults.Format = output.FormatJSON
	}
	return &Service{store: st, defaults: defaults}
}

// Defaults returns the options used when a caller passes none.
func (s *Service) Defaults() Options {
	return s.defaults
}

// Store returns the configured store, or nil.
func (s *Service) Store() store.Store {
	return s.store
}

// ConvertFile converts the template at inPath into outPath. The output is
// written to a temporary file beside outPath and renamed into place only on
// success, so a failed conversion never leaves a partial file.
func (s *Service) ConvertFile(ctx context.Context, inPath, outPath string, opts Options) (*Summary, error) {
	f, err := os.Open(inPath)
	if err != nil {
		return nil, fmt.Errorf("open template: %w", err)
	}
	defer f.Close()

	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(outPath)+".*")
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after the rename

	sum, err := s.Convert(ctx, f, inPath, tmp, opts)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close output: %w", cerr)
	}
	if err != nil {
		return nil, err
	}
	if err := os.Rename(tmp.Name(), outPath); err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}
	return sum, nil
}

// Convert reads a template named name from in and writes the encoded
// records to w. The name selects the delimiter and labels the store run.
func (s *Service) Convert(ctx context.Context, in io.ReadSeeker, name string, w io.Writer, opts Options) (sum *Summary, err error) {
	opts = s.withDefaults(opts)
	start := time.Now()
	logger := logging.WithFields(ctx, "source", filepath.Base(name))

	rows, err := tabular.FromReadSeeker(in, name, tabular.Options{Charset: opts.Charset, CellLimit: opts.CellLimit})
	if err != nil {
		return nil, err
	}
	enc, err := output.NewEncoder(w, opts.Format)
	if err != nil {
		return nil, err
	}

	sum = &Summary{Source: name, Format: opts.Format}

	var run store.Run
	if s.store != nil {
		run, err = s.store.Begin(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("begin store run: %w", err)
		}
		// Rollback is a no-op after a successful commit.
		defer func() {
			if rbErr := run.Rollback(context.WithoutCancel(ctx)); rbErr != nil && err == nil {
				err = fmt.Errorf("rollback store run: %w", rbErr)
			}
		}()
		sum.RunID = run.ID()
		logger = logger.With("run_id", sum.RunID)
	}

	convOpts := []core.Option{core.WithContext(ctx)}
	if opts.MergeProperties {
		convOpts = append(convOpts, core.WithPropertyMerge())
	}

	for rec, err := range core.Records(rows, convOpts...) {
		if err != nil {
			return nil, err
		}
		if err := enc.Encode(rec.System); err != nil {
			return nil, fmt.Errorf("encode record at line %d: %w", rec.Line, err)
		}
		if run != nil {
			if err := run.Put(ctx, rec.Line, rec.System); err != nil {
				return nil, fmt.Errorf("store record at line %d: %w", rec.Line, err)
			}
		}
		sum.Records++
		sum.Diagnostics = mergeDiagnostics(sum.Diagnostics, rec.Diagnostics)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finish output: %w", err)
	}
	if run != nil {
		if err := run.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit store run: %w", err)
		}
	}

	sum.Duration = time.Since(start)
	for _, d := range sum.Diagnostics {
		logger.Warn(d.Message, "code", d.Code)
	}
	logger.Info("conversion complete", "records", sum.Records, "format", sum.Format, "duration", sum.Duration)
	return sum, nil
}

// Headers decodes the header row of a template without converting its data.
func (s *Service) Headers(in io.Reader, name string, opts Options) (*core.Header, error) {
	opts = s.withDefaults(opts)
	rows, err := tabular.NewReader(in, name, tabular.Options{Charset: opts.Charset})
	if err != nil {
		return nil, err
	}
	h, err := core.ReadHeader(rows)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, &core.ConversionError{
			Kind:    core.KindFile,
			Code:    "FILE005",
			Message: "empty file: the template has no header row",
			Action:  "Add a header row naming the columns",
		}
	}
	return h, nil
}

func (s *Service) withDefaults(opts Options) Options {
	if opts.Format == "" {
		opts.Format = s.defaults.Format
	}
	if opts.Charset == "" {
		opts.Charset = s.defaults.Charset
	}
	if opts.CellLimit == 0 {
		opts.CellLimit = s.defaults.CellLimit
	}
	opts.MergeProperties = opts.MergeProperties || s.defaults.MergeProperties
	return opts
}

// mergeDiagnostics appends the diagnostics in add that are not already in
// seen. Every row of a template repeats the same header warnings, so they
// are reported once per file.
func mergeDiagnostics(seen, add []core.Diagnostic) []core.Diagnostic {
	for _, d := range add {
		if !slices.ContainsFunc(seen, func(o core.Diagnostic) bool { return sameDiagnostic(o, d) }) {
			seen = append(seen, d)
		}
	}
	return seen
}

func sameDiagnostic(a, b core.Diagnostic) bool {
	return a.Code == b.Code && slices.Equal(a.Columns, b.Columns) && strings.EqualFold(a.Message, b.Message)
}

// OptionsFromConfig returns the conversion defaults named by cfg.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	format, err := output.ParseFormat(cfg.Convert.Format)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Format:          format,
		Charset:         cfg.Convert.Charset,
		CellLimit:       cfg.Convert.CellLimit,
		MergeProperties: cfg.Convert.MergeProperties,
	}, nil
}

// Open builds a service from configuration, connecting the configured
// store. Close releases it.
func Open(ctx context.Context, cfg *config.Config) (*Service, error) {
	defaults, err := OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, store.Options{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Database.URL,
		SQLitePath:  cfg.Store.SQLitePath,
		BatchSize:   cfg.Store.BatchSize,
		MaxConns:    int32(cfg.Database.MaxConns),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	return New(st, defaults), nil
}

// Close closes the store, if any.
func (s *Service) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}
