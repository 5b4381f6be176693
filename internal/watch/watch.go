// Package watch converts templates dropped into an inbox directory.
//
// A template that converts is moved into the inbox's Converted/ directory
// next to its output. A template that fails stays where it is and gets a
// "<name> - failed.txt" report beside it; saving the template again retries
// it. Only one watcher may own an inbox at a time.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"

	"github.com/JonMunkholm/pifcsv/internal/core"
	"github.com/JonMunkholm/pifcsv/internal/output"
	"github.com/JonMunkholm/pifcsv/internal/service"
)

const (
	// ConvertedDir receives templates after a successful conversion.
	ConvertedDir = "Converted"
	// LockFile marks the inbox as owned by a running watcher.
	LockFile = ".pifcsv.lock"

	DefaultDebounce = 500 * time.Millisecond
)

// ErrLocked is returned by Run when another watcher owns the inbox.
var ErrLocked = errors.New("another pifcsv watcher is already running on this directory")

// Converter converts one template file. *service.Service satisfies it.
type Converter interface {
	ConvertFile(ctx context.Context, inPath, outPath string, opts service.Options) (*service.Summary, error)
}

// Config configures a Watcher.
type Config struct {
	Dir string
	// OutputDir receives outputs; empty writes them into Dir.
	OutputDir string
	Debounce  time.Duration
	Options   service.Options
	// OnResult, when set, is called after every processed template.
	OnResult func(Result)
}

// Result is the outcome of processing one template.
type Result struct {
	Source  string
	Output  string
	Summary *service.Summary
	Err     error
}

// Watcher processes templates as they settle in the inbox.
type Watcher struct {
	cfg    Config
	conv   Converter
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]time.Time
}

// New returns a watcher for cfg.Dir. A nil logger uses slog.Default.
func New(cfg Config, conv Converter, logger *slog.Logger) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Options.Format == "" {
		cfg.Options.Format = output.FormatJSON
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		cfg:     cfg,
		conv:    conv,
		logger:  logger.With("inbox", cfg.Dir),
		pending: make(map[string]time.Time),
	}
}

// Run watches the inbox until ctx is done. Templates already present when
// Run starts are processed first.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}

	lock := flock.New(filepath.Join(w.cfg.Dir, LockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire inbox lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	defer lock.Unlock()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.Dir, err)
	}

	if err := w.scan(); err != nil {
		return err
	}
	w.logger.Info("watching inbox", "debounce", w.cfg.Debounce, "format", w.cfg.Options.Format)

	ticker := time.NewTicker(w.cfg.Debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("inbox watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)

		case now := <-ticker.C:
			for _, path := range w.settled(now) {
				if ctx.Err() != nil {
					return nil
				}
				w.Process(ctx, path)
			}
		}
	}
}

// scan queues the templates already in the inbox.
func (w *Watcher) scan() error {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			w.queue(filepath.Join(w.cfg.Dir, e.Name()))
		}
	}
	return nil
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		w.queue(event.Name)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.mu.Lock()
		delete(w.pending, event.Name)
		w.mu.Unlock()
	}
}

// queue records activity on path. Repeated writes push the deadline back.
func (w *Watcher) queue(path string) {
	if !IsTemplate(path) {
		return
	}
	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

// settled removes and returns the queued paths quiet for at least the
// debounce delay.
func (w *Watcher) settled(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.cfg.Debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	return ready
}

// IsTemplate reports whether the inbox should convert path: a visible .csv
// or .tsv file.
func IsTemplate(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".csv", ".tsv":
		return true
	}
	return false
}

// Process converts one template and files it according to the outcome.
func (w *Watcher) Process(ctx context.Context, path string) Result {
	name := filepath.Base(path)
	outDir := w.cfg.OutputDir
	if outDir == "" {
		outDir = w.cfg.Dir
	}
	res := Result{Source: path, Output: output.OutputPath(filepath.Join(outDir, name), w.cfg.Options.Format)}
	logger := w.logger.With("file", name)

	if _, err := os.Stat(path); err != nil {
		// Moved away before it settled.
		logger.Debug("template disappeared", "error", err)
		return res
	}

	res.Summary, res.Err = w.conv.ConvertFile(ctx, path, res.Output, w.cfg.Options)
	if res.Err != nil {
		logger.Warn("conversion failed", "error", res.Err)
		if err := writeFailure(path, res.Err); err != nil {
			logger.Error("write failure report", "error", err)
		}
	} else {
		logger.Info("converted", "output", res.Output, "records", res.Summary.Records)
		if err := archive(path); err != nil {
			logger.Error("archive template", "error", err)
			res.Err = err
		}
	}

	if w.cfg.OnResult != nil {
		w.cfg.OnResult(res)
	}
	return res
}

// FailurePath returns the report written beside a template that failed.
func FailurePath(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(filepath.Dir(path), name+" - failed.txt")
}

func writeFailure(path string, cause error) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s could not be converted.\n\n", filepath.Base(path))
	b.WriteString(core.FormatUserError(cause))
	b.WriteString("\n\nDetails: ")
	b.WriteString(cause.Error())
	b.WriteString("\n")
	return os.WriteFile(FailurePath(path), []byte(b.String()), 0o644)
}

// archive moves a converted template into Converted/ and clears any
// failure report left by an earlier attempt.
func archive(path string) error {
	dir := filepath.Join(filepath.Dir(path), ConvertedDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s directory: %w", ConvertedDir, err)
	}
	if err := os.Rename(path, filepath.Join(dir, filepath.Base(path))); err != nil {
		return fmt.Errorf("move template: %w", err)
	}
	if err := os.Remove(FailurePath(path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove old failure report: %w", err)
	}
	return nil
}
