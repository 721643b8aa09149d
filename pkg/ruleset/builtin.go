package ruleset

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
)

//go:embed rulesets/*.xml
var builtinFS embed.FS

// Builtins returns the names of the bundled rulesets, sorted.
func Builtins() []string {
	entries, err := builtinFS.ReadDir("rulesets")
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".xml"))
	}

	slices.Sort(names)

	return names
}

func (l *Location) resolveBuiltin() (io.ReadCloser, error) {
	data, err := builtinFS.ReadFile(path.Join("rulesets", l.Path+".xml"))
	if err != nil {
		return nil, newResolveError(l, fmt.Errorf("no builtin ruleset %q", l.Path))
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}
