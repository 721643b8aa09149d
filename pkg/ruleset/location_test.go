package ruleset_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lintelhq/lintel/pkg/engine"
	"github.com/lintelhq/lintel/pkg/ruleset"
)

func TestLocation_Key(t *testing.T) {
	t.Parallel()

	t.Run("relative and absolute forms agree", func(t *testing.T) {
		t.Parallel()

		rel := ruleset.NewFileLocation("rules.xml", "/work/project")
		abs := ruleset.NewFileLocation("/work/project/rules.xml", "")

		assert.Equal(t, abs.Key(), rel.Key())
	})

	t.Run("property order does not matter", func(t *testing.T) {
		t.Parallel()

		a := ruleset.NewFileLocation("/rules.xml", "",
			engine.Property{Name: "sev", Value: "error"},
			engine.Property{Name: "max", Value: "100"},
		)
		b := ruleset.NewFileLocation("/rules.xml", "",
			engine.Property{Name: "max", Value: "100"},
			engine.Property{Name: "sev", Value: "error"},
		)

		assert.Equal(t, a.Key(), b.Key())
	})

	t.Run("later duplicate wins", func(t *testing.T) {
		t.Parallel()

		a := ruleset.NewFileLocation("/rules.xml", "",
			engine.Property{Name: "max", Value: "80"},
			engine.Property{Name: "max", Value: "100"},
		)
		b := ruleset.NewFileLocation("/rules.xml", "",
			engine.Property{Name: "max", Value: "100"},
		)

		assert.Equal(t, b.Key(), a.Key())
	})

	t.Run("different values differ", func(t *testing.T) {
		t.Parallel()

		a := ruleset.NewFileLocation("/rules.xml", "",
			engine.Property{Name: "max", Value: "80"},
		)
		b := ruleset.NewFileLocation("/rules.xml", "",
			engine.Property{Name: "max", Value: "100"},
		)

		assert.NotEqual(t, a.Key(), b.Key())
	})

	t.Run("kinds differ", func(t *testing.T) {
		t.Parallel()

		file := ruleset.NewFileLocation("standard", "")
		builtin := ruleset.NewBuiltinLocation("standard")

		assert.NotEqual(t, file.Key(), builtin.Key())
	})
}

func TestLocation_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "rules.xml", ruleset.NewFileLocation("rules.xml", "/base").String())
	assert.Equal(t, "https://example.com/r.xml", ruleset.NewURLLocation("https://example.com/r.xml").String())
	assert.Equal(t, "builtin:standard", ruleset.NewBuiltinLocation("standard").String())
}

func TestLocation_ResolveFile(t *testing.T) {
	t.Parallel()

	t.Run("reads relative to base dir", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "rules.xml"), []byte("<module/>"), 0o600))

		loc := ruleset.NewFileLocation("rules.xml", dir)

		r, err := loc.Resolve(t.Context())
		require.NoError(t, err)

		t.Cleanup(func() { _ = r.Close() })

		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "<module/>", string(data))
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		loc := ruleset.NewFileLocation("no-such-file.xml", t.TempDir())

		_, err := loc.Resolve(t.Context())
		require.Error(t, err)

		var resErr *ruleset.ResolveError
		require.ErrorAs(t, err, &resErr)
		assert.Equal(t, "no-such-file.xml", resErr.Location)
	})
}

func TestLocation_ResolveURL(t *testing.T) {
	t.Parallel()

	t.Run("fetches content", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<module/>"))
		}))
		t.Cleanup(srv.Close)

		loc := ruleset.NewURLLocation(srv.URL)

		r, err := loc.Resolve(t.Context())
		require.NoError(t, err)

		t.Cleanup(func() { _ = r.Close() })

		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "<module/>", string(data))
	})

	t.Run("non-200 status", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		t.Cleanup(srv.Close)

		loc := ruleset.NewURLLocation(srv.URL)

		_, err := loc.Resolve(t.Context())
		require.Error(t, err)

		var resErr *ruleset.ResolveError
		require.ErrorAs(t, err, &resErr)
		assert.Contains(t, err.Error(), "unexpected status")
	})

	t.Run("unreachable host", func(t *testing.T) {
		t.Parallel()

		loc := ruleset.NewURLLocation("http://127.0.0.1:1/rules.xml")

		_, err := loc.Resolve(t.Context())
		require.Error(t, err)

		var resErr *ruleset.ResolveError
		assert.ErrorAs(t, err, &resErr)
	})
}

func TestLocation_ResolveBuiltin(t *testing.T) {
	t.Parallel()

	t.Run("standard ruleset parses", func(t *testing.T) {
		t.Parallel()

		loc := ruleset.NewBuiltinLocation("standard")

		r, err := loc.Resolve(t.Context())
		require.NoError(t, err)

		t.Cleanup(func() { _ = r.Close() })

		cfg, err := engine.LoadConfig(r, engine.NewProperties())
		require.NoError(t, err)
		assert.Equal(t, engine.RootModuleName, cfg.Name())
		assert.NotEmpty(t, cfg.Children())
	})

	t.Run("unknown builtin", func(t *testing.T) {
		t.Parallel()

		loc := ruleset.NewBuiltinLocation("no-such-ruleset")

		_, err := loc.Resolve(t.Context())
		require.Error(t, err)

		var resErr *ruleset.ResolveError
		require.ErrorAs(t, err, &resErr)
		assert.Contains(t, err.Error(), `no builtin ruleset "no-such-ruleset"`)
	})
}

func TestLocation_ResolveUnknownKind(t *testing.T) {
	t.Parallel()

	loc := &ruleset.Location{Kind: ruleset.Kind("carrier-pigeon"), Path: "x"}

	_, err := loc.Resolve(t.Context())
	require.Error(t, err)

	var resErr *ruleset.ResolveError
	require.ErrorAs(t, err, &resErr)
	assert.Contains(t, err.Error(), "unknown location kind")
}

func TestBuiltins(t *testing.T) {
	t.Parallel()

	assert.Contains(t, ruleset.Builtins(), "standard")
}
