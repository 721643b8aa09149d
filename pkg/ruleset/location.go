// Package ruleset models the sources style rulesets are loaded from.
//
// A [Location] identifies one ruleset source: a file on disk, a remote URL,
// or a ruleset bundled with the binary. Locations with equal [Location.Key]
// values resolve the same content with the same property values, which makes
// the key usable as a cache key.
package ruleset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/lintelhq/lintel/pkg/engine"
)

// Kind selects how a [Location] is resolved.
type Kind string

const (
	// KindFile resolves the location from the local filesystem.
	KindFile Kind = "file"
	// KindURL resolves the location over HTTP(S).
	KindURL Kind = "url"
	// KindBuiltin resolves a ruleset bundled with the binary.
	KindBuiltin Kind = "builtin"
)

// httpClient fetches URL locations. The timeout bounds how long a checker
// build can block on a dead configuration source.
var httpClient = &http.Client{Timeout: 30 * time.Second}

// Location identifies a ruleset source together with the property values
// substituted into it. Treat it as immutable after construction: the checker
// cache holds references to it.
type Location struct {
	// Kind selects the resolution mechanism.
	Kind Kind
	// Path is the file path, URL, or builtin name, depending on Kind.
	Path string
	// BaseDir anchors relative file paths and suppression-file searches.
	BaseDir string
	// Properties are ordered ${name} substitutions applied when the ruleset
	// is parsed. Later values win over earlier ones with the same name.
	Properties []engine.Property
}

// NewFileLocation creates a location read from the filesystem. Relative
// paths resolve against baseDir.
func NewFileLocation(path, baseDir string, props ...engine.Property) *Location {
	return &Location{Kind: KindFile, Path: path, BaseDir: baseDir, Properties: props}
}

// NewURLLocation creates a location fetched over HTTP(S).
func NewURLLocation(url string, props ...engine.Property) *Location {
	return &Location{Kind: KindURL, Path: url, Properties: props}
}

// NewBuiltinLocation creates a location referring to a bundled ruleset.
func NewBuiltinLocation(name string, props ...engine.Property) *Location {
	return &Location{Kind: KindBuiltin, Path: name, Properties: props}
}

// Key returns a canonical identity for the location. The key covers the
// resolved address and the effective property values, so equal keys mean
// interchangeable rulesets.
func (l *Location) Key() string {
	var sb strings.Builder

	sb.WriteString(string(l.Kind))
	sb.WriteByte(':')
	sb.WriteString(l.address())

	props := engine.NewProperties(l.Properties...)

	names := props.Names()
	slices.Sort(names)

	for _, name := range names {
		value, _ := props.Resolve(name)

		sb.WriteByte(';')
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(value)
	}

	return sb.String()
}

// String returns the display form used in notifications and logs.
func (l *Location) String() string {
	if l.Kind == KindBuiltin {
		return "builtin:" + l.Path
	}

	return l.Path
}

// address returns the canonical address used in [Location.Key].
func (l *Location) address() string {
	if l.Kind == KindFile {
		return filepath.Clean(l.resolvedPath())
	}

	return l.Path
}

// resolvedPath returns the file path with BaseDir applied.
func (l *Location) resolvedPath() string {
	if l.BaseDir == "" || filepath.IsAbs(l.Path) {
		return l.Path
	}

	return filepath.Join(l.BaseDir, l.Path)
}

// FilePath returns the resolved filesystem path for file locations, and ""
// for every other kind.
func (l *Location) FilePath() string {
	if l.Kind != KindFile {
		return ""
	}

	return l.resolvedPath()
}

// Resolve opens the ruleset content stream. The caller must close it.
// Failures that mean "the source is unavailable" are reported as a
// [*ResolveError]; callers treat those as non-fatal.
func (l *Location) Resolve(ctx context.Context) (io.ReadCloser, error) {
	switch l.Kind {
	case KindFile:
		return l.resolveFile()
	case KindURL:
		return l.resolveURL(ctx)
	case KindBuiltin:
		return l.resolveBuiltin()
	}

	return nil, newResolveError(l, fmt.Errorf("unknown location kind %q", l.Kind))
}

func (l *Location) resolveFile() (io.ReadCloser, error) {
	f, err := os.Open(l.resolvedPath()) //nolint:gosec // G304: Opening user-configured ruleset paths is the point.
	if err != nil {
		return nil, newResolveError(l, err)
	}

	return f, nil
}

func (l *Location) resolveURL(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.Path, nil)
	if err != nil {
		return nil, newResolveError(l, err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, newResolveError(l, err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()

		return nil, newResolveError(l, fmt.Errorf("unexpected status %s", resp.Status))
	}

	return resp.Body, nil
}

// ResolveError reports that a location's content could not be fetched. The
// source may be temporarily unavailable, so callers report it and move on
// instead of failing the run.
type ResolveError struct {
	// Location is the display form of the failed location.
	Location string
	// Err is the underlying failure.
	Err error
}

func newResolveError(l *Location, err error) *ResolveError {
	return &ResolveError{Location: l.String(), Err: err}
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve ruleset %s: %v", e.Location, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}
