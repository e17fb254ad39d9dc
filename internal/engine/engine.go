package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dejo1307/docalias/internal/alias"
	"github.com/dejo1307/docalias/internal/config"
	"github.com/dejo1307/docalias/internal/report"
)

// Verifier checks that an annotated file still parses.
type Verifier interface {
	Regressed(before, after []byte) (bool, error)
}

// Engine walks source trees and annotates every eligible file.
type Engine struct {
	cfg       *config.Config
	annotator *alias.Annotator
	store     *report.Store
	verifier  Verifier
	out       io.Writer
	dryRun    bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithOutput sets where progress messages are printed (stdout by default).
func WithOutput(w io.Writer) Option {
	return func(e *Engine) { e.out = w }
}

// WithVerifier enables the post-insertion syntax check.
func WithVerifier(v Verifier) Option {
	return func(e *Engine) { e.verifier = v }
}

// WithDryRun disables every file write.
func WithDryRun(dryRun bool) Option {
	return func(e *Engine) { e.dryRun = dryRun }
}

// WithStore records the run into an existing store instead of a fresh one.
func WithStore(s *report.Store) Option {
	return func(e *Engine) { e.store = s }
}

// New creates a new Engine with the given config.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("config: namespace must not be empty")
	}
	e := &Engine{
		cfg:       cfg,
		annotator: alias.New(cfg.Rules()),
		store:     report.NewStore(),
		out:       os.Stdout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Store returns the records of the last run.
func (e *Engine) Store() *report.Store {
	return e.store
}

// FileResult is the outcome of annotating one file.
type FileResult struct {
	Path    string
	Added   int
	Errors  int
	Written bool
	// Stopped is set when an unknown directive interrupted the file.
	Stopped bool
}

// Summary aggregates a whole run.
type Summary struct {
	Files   int
	Changed int
	Added   int
	Errors  int
	// Aborted is set when a hard error stopped the run early.
	Aborted bool
	// DryRun is set when nothing was written: Changed and Added count the
	// files and aliases a real run would write.
	DryRun   bool
	Duration time.Duration
}

var errAborted = errors.New("run aborted")

// Run annotates every eligible file below paths. With no path, the configured
// default paths are used. Failures are counted in the Summary; a non-nil
// error is only returned for cancellation or an unreadable root.
func (e *Engine) Run(ctx context.Context, paths []string) (*Summary, error) {
	start := time.Now()
	e.store.Clear()
	sum := &Summary{DryRun: e.dryRun}

	if len(paths) == 0 {
		paths = e.cfg.Paths
		fmt.Fprintf(e.out, "No folder given as argument, updating current `%s` (if any)\n", strings.Join(paths, "`, `"))
	}

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return sum, fmt.Errorf("annotating %s: %w", p, err)
		}

		info, err := os.Stat(p)
		var runErr error
		switch {
		case err == nil && info.IsDir():
			fmt.Fprintf(e.out, "> Going into folder `%s`...\n", p)
			runErr = e.walk(ctx, p, sum)
			if runErr == nil && sum.Errors == 0 {
				fmt.Fprintln(e.out, "< Done!")
			}
		default:
			runErr = e.visit(ctx, p, sum)
		}

		if errors.Is(runErr, errAborted) {
			sum.Aborted = true
			fmt.Fprintln(e.out, "An error occurred, aborting...")
			break
		}
		if runErr != nil {
			return sum, runErr
		}
	}

	sum.Duration = time.Since(start)
	fmt.Fprintln(e.out)
	switch {
	case sum.Aborted:
	case sum.DryRun:
		fmt.Fprintf(e.out, "Would add %d doc aliases.\n", sum.Added)
	default:
		fmt.Fprintf(e.out, "Added %d doc aliases.\n", sum.Added)
	}
	log.Printf("[engine] %d files, %d changed, %d aliases, %d errors in %s",
		sum.Files, sum.Changed, sum.Added, sum.Errors, sum.Duration)
	return sum, nil
}

// walk annotates the files below root, skipping generated directories and
// ignored paths.
func (e *Engine) walk(ctx context.Context, root string, sum *Summary) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Printf("[engine] skipping %s: %v", path, err)
			sum.Errors++
			e.store.Add(report.Record{Kind: report.KindError, File: path, Message: err.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && e.cfg.IsSkippedDir(d.Name()) {
				return filepath.SkipDir
			}
			if relPath != "." && e.isIgnored(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(path, e.cfg.Extension) || e.isIgnored(relPath, false) {
			return nil
		}
		return e.visit(ctx, path, sum)
	})
}

// visit annotates one file and folds its result into sum.
func (e *Engine) visit(ctx context.Context, path string, sum *Summary) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("annotating %s: %w", path, err)
	}

	res := e.ProcessFile(ctx, path)
	sum.Files++
	sum.Errors += res.Errors
	// Insertions into files left untouched are not counted.
	if res.Written || (e.dryRun && res.Added > 0 && res.Errors == 0) {
		sum.Added += res.Added
		sum.Changed++
	}
	if res.Stopped && e.cfg.FailFast {
		return errAborted
	}
	return nil
}

// ProcessFile annotates a single file. The file is rewritten only when lines
// were added, no error occurred and the engine is not in dry-run mode.
func (e *Engine) ProcessFile(ctx context.Context, path string) FileResult {
	fmt.Fprintf(e.out, "=> Updating '%s'\n", path)
	fr := FileResult{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(e.out, "Failed to open `%s`: %v\n", path, err)
		fr.Errors = 1
		e.store.Add(report.Record{Kind: report.KindError, File: path, Message: err.Error()})
		return fr
	}

	text, eol := splitLines(string(data))
	res := e.annotator.Process(path, text)
	fr.Added = res.Added
	fr.Errors = res.Errors
	fr.Stopped = res.Stopped
	e.recordDiagnostics(path, res)

	if res.Added == 0 || res.Errors > 0 {
		return fr
	}

	annotated := []byte(strings.Join(res.Lines, eol))
	if e.verifier != nil {
		regressed, err := e.verifier.Regressed(data, annotated)
		if err != nil {
			log.Printf("[engine] syntax check of %s failed: %v", path, err)
		}
		if regressed {
			msg := fmt.Sprintf("Annotated `%s` no longer parses, leaving it untouched", path)
			fmt.Fprintln(e.out, msg)
			fr.Errors++
			e.store.Add(report.Record{Kind: report.KindError, File: path, Message: msg})
			return fr
		}
	}

	if e.dryRun {
		e.recordInsertions(path, res)
		return fr
	}
	if err := writeFile(path, annotated); err != nil {
		fmt.Fprintf(e.out, "Failed to write `%s`: %v\n", path, err)
		fr.Errors++
		e.store.Add(report.Record{Kind: report.KindError, File: path, Message: err.Error()})
		return fr
	}
	fr.Written = true
	e.recordInsertions(path, res)
	return fr
}

// splitLines splits content into lines without their terminator and returns
// the terminator to join them back with. CRLF files keep their line endings.
func splitLines(content string) ([]string, string) {
	if strings.Contains(content, "\r\n") {
		return strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n"), "\r\n"
	}
	return strings.Split(content, "\n"), "\n"
}

// recordDiagnostics prints the diagnostics of res and stores them.
func (e *Engine) recordDiagnostics(path string, res alias.Result) {
	for _, d := range res.Diagnostics {
		fmt.Fprintln(e.out, d.Message)
		kind := report.KindDiagnostic
		if d.Error {
			kind = report.KindError
		}
		e.store.Add(report.Record{Kind: kind, File: path, Line: d.Line, Message: d.Message})
	}
}

// recordInsertions stores the aliases of res once they are part of the file
// content (or would be, in dry-run mode).
func (e *Engine) recordInsertions(path string, res alias.Result) {
	for _, ins := range res.Insertions {
		e.store.Add(report.Record{
			Kind:   report.KindAlias,
			Symbol: ins.Symbol,
			File:   path,
			Line:   ins.Line,
			Target: ins.Target,
		})
	}
}

// writeFile replaces the content of path, keeping its permissions.
func writeFile(path string, data []byte) error {
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(path, data, mode)
}

// isIgnored checks whether a path matches any ignore pattern.
func (e *Engine) isIgnored(relPath string, isDir bool) bool {
	// Normalize to forward slashes for matching
	relPath = filepath.ToSlash(relPath)

	for _, pattern := range e.cfg.Ignore {
		// Handle directory-only patterns
		if strings.HasSuffix(pattern, "/**") {
			dirPrefix := strings.TrimSuffix(pattern, "/**")
			if relPath == dirPrefix || strings.HasPrefix(relPath, dirPrefix+"/") {
				return true
			}
			continue
		}
		if isDir {
			continue
		}

		matched, err := filepath.Match(pattern, relPath)
		if err == nil && matched {
			return true
		}

		// **/name.rs matches at any depth
		if strings.HasPrefix(pattern, "**/") {
			matched, err = filepath.Match(strings.TrimPrefix(pattern, "**/"), filepath.Base(relPath))
			if err == nil && matched {
				return true
			}
		}
	}
	return false
}

// WriteReport persists the records of the last run as JSONL. An empty path
// falls back to the configured report path; nothing is written without one.
func (e *Engine) WriteReport(path string) error {
	if path == "" {
		path = e.cfg.Report
	}
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report dir: %w", err)
		}
	}
	if err := e.store.WriteJSONLFile(path); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	log.Printf("[engine] wrote %d records to %s", e.store.Count(), path)
	return nil
}
