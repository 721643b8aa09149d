package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	otelattribute "go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lintelhq/lintel/pkg/log"
)

// RootModuleName is the required name of a ruleset's root module.
const RootModuleName = "Checker"

// ErrCheckerClosed is returned when a closed [Checker] is asked to process
// files.
var ErrCheckerClosed = errors.New("checker is closed")

// File is the unit handed to each [FileCheck].
type File struct {
	Path    string
	Content []byte
	Lines   []string
}

// NewFile splits content into lines. Both LF and CRLF line endings are
// handled; a trailing newline does not produce a phantom empty line.
func NewFile(path string, content []byte) *File {
	text := strings.ReplaceAll(string(content), "\r\n", "\n")

	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return &File{
		Path:    path,
		Content: content,
		Lines:   lines,
	}
}

// AuditListener receives progress and findings during [Checker.Process].
type AuditListener interface {
	// AuditStarted is called once before any file is processed.
	AuditStarted()
	// FileStarted is called before a file is processed.
	FileStarted(path string)
	// Violation is called for each reported violation.
	Violation(v Violation)
	// FileFinished is called after a file is processed.
	FileFinished(path string)
	// AuditFinished is called once after all files are processed.
	AuditFinished()
}

// NopListener is an [AuditListener] that ignores everything.
type NopListener struct{}

func (NopListener) AuditStarted()       {}
func (NopListener) FileStarted(string)  {}
func (NopListener) Violation(Violation) {}
func (NopListener) FileFinished(string) {}
func (NopListener) AuditFinished()      {}

// CollectingListener is an [AuditListener] that accumulates every violation.
// It is safe for concurrent use.
type CollectingListener struct {
	violations []Violation
	files      int
	mu         sync.Mutex
}

func (l *CollectingListener) AuditStarted()      {}
func (l *CollectingListener) FileStarted(string) {}

func (l *CollectingListener) Violation(v Violation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.violations = append(l.violations, v)
}

func (l *CollectingListener) FileFinished(string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.files++
}

func (l *CollectingListener) AuditFinished() {}

// Violations returns the violations collected so far.
func (l *CollectingListener) Violations() []Violation {
	l.mu.Lock()
	defer l.mu.Unlock()

	return slices.Clone(l.violations)
}

// Files returns the number of files processed so far.
func (l *CollectingListener) Files() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.files
}

// Checker runs every check configured in a ruleset against a set of files.
//
// A Checker is expensive to construct: [LoadConfig] and [NewChecker] parse,
// expand, and compile the full ruleset, including its regular expressions
// and CEL programs. Reuse instances where possible.
type Checker struct {
	tracer     trace.Tracer
	config     Config
	registry   *Registry
	extensions map[string]struct{}
	checks     []FileCheck
	filters    []Filter
	severity   Severity
	mu         sync.Mutex
	closed     bool
}

// CheckerOpt configures a [Checker] during construction.
type CheckerOpt func(c *Checker) error

// WithRegistry sets the registry used to build checks.
func WithRegistry(reg *Registry) CheckerOpt {
	return func(c *Checker) error {
		if reg == nil {
			return errors.New("nil registry")
		}

		c.registry = reg

		return nil
	}
}

// NewChecker builds a [Checker] from a loaded ruleset configuration.
// Configuration problems are reported as a [*ConfigError].
func NewChecker(cfg Config, opts ...CheckerOpt) (*Checker, error) {
	c := &Checker{
		tracer:   otel.Tracer("engine"),
		config:   cfg,
		registry: DefaultRegistry(),
		severity: SeverityError,
	}

	for _, opt := range opts {
		err := opt(c)
		if err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	err := c.configure(cfg)
	if err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Checker) configure(cfg Config) error {
	if cfg == nil {
		return configErrorf("nil configuration")
	}

	if cfg.Name() != RootModuleName {
		return configErrorf("root module must be %s, got %q", RootModuleName, cfg.Name())
	}

	a := newAttrReader(cfg)

	if sev := a.String("severity", ""); sev != "" {
		parsed, err := GetSeverity(sev)
		if err != nil {
			return configErrorf("module %s: %w: %q", cfg.Name(), err, sev)
		}

		c.severity = parsed
	}

	if exts := a.String("fileExtensions", ""); exts != "" {
		c.extensions = make(map[string]struct{})

		for ext := range strings.SplitSeq(exts, ",") {
			ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
			if ext == "" {
				continue
			}

			c.extensions[strings.ToLower(ext)] = struct{}{}
		}
	}

	err := a.Finish()
	if err != nil {
		return err
	}

	for _, child := range cfg.Children() {
		if child.Name() == SuppressionFilterName {
			filter, filterErr := newSuppressionFilter(child)
			if filterErr != nil {
				return filterErr
			}

			c.filters = append(c.filters, filter)

			continue
		}

		factory, ok := c.registry.Lookup(child.Name())
		if !ok {
			return configErrorf("unknown module %q", child.Name())
		}

		check, checkErr := factory(child)
		if checkErr != nil {
			return checkErr
		}

		c.checks = append(c.checks, check)
	}

	return nil
}

// Config returns the configuration the checker was built from.
func (c *Checker) Config() Config {
	return c.config
}

// Process audits the given files, reporting progress and violations to
// listener. A nil listener discards everything. It returns
// [ErrCheckerClosed] if the checker was closed.
func (c *Checker) Process(ctx context.Context, listener AuditListener, files []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrCheckerClosed
	}

	if listener == nil {
		listener = NopListener{}
	}

	ctx, span := c.tracer.Start(ctx, "audit", trace.WithAttributes(
		otelattribute.Int("files.count", len(files)),
	))
	defer span.End()

	listener.AuditStarted()
	defer listener.AuditFinished()

	for _, path := range files {
		err := ctx.Err()
		if err != nil {
			return fmt.Errorf("audit canceled: %w", err)
		}

		if !c.wantsFile(path) {
			continue
		}

		listener.FileStarted(path)
		c.processFile(ctx, path, listener)
		listener.FileFinished(path)
	}

	return nil
}

// wantsFile applies the root module's fileExtensions filter.
func (c *Checker) wantsFile(path string) bool {
	if len(c.extensions) == 0 {
		return true
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	_, ok := c.extensions[ext]

	return ok
}

func (c *Checker) processFile(ctx context.Context, path string, listener AuditListener) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: Auditing caller-provided paths is the point.
	if err != nil {
		log.WithContext(ctx).Warn("cannot read file",
			slog.String("file", path),
			slog.Any("error", err),
		)
		listener.Violation(Violation{
			File:     path,
			Check:    RootModuleName,
			Message:  fmt.Sprintf("cannot read file: %v", err),
			Severity: SeverityError,
			Line:     1,
		})

		return
	}

	f := NewFile(path, content)

	for _, check := range c.checks {
		for _, v := range check.Check(f) {
			v.File = path

			if v.Severity == "" {
				v.Severity = c.severity
			}

			if v.Severity == SeverityIgnore {
				continue
			}

			if !c.accept(v) {
				continue
			}

			listener.Violation(v)
		}
	}
}

func (c *Checker) accept(v Violation) bool {
	for _, f := range c.filters {
		if !f.Accept(v) {
			return false
		}
	}

	return true
}

// Close releases the checker. A closed checker refuses further processing.
// Close is safe to call multiple times.
func (c *Checker) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	return nil
}

// Closed reports whether Close has been called.
func (c *Checker) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}
