package engine_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lintelhq/lintel/pkg/engine"
)

// stubCheck returns a fixed set of violations for every file.
type stubCheck struct {
	name string
	vs   []engine.Violation
}

func (s stubCheck) Name() string { return s.name }

func (s stubCheck) Check(*engine.File) []engine.Violation {
	return s.vs
}

func TestNewChecker_ConfigErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		cfg          engine.Config
		wantContains string
	}{
		"nil configuration": {
			cfg:          nil,
			wantContains: "nil configuration",
		},
		"wrong root module": {
			cfg:          engine.NewNode("TreeWalker"),
			wantContains: `root module must be Checker`,
		},
		"unknown child module": {
			cfg: engine.NewNode(engine.RootModuleName,
				engine.WithChildNodes(engine.NewNode("NoSuchCheck")),
			),
			wantContains: `unknown module "NoSuchCheck"`,
		},
		"unknown root attribute": {
			cfg: engine.NewNode(engine.RootModuleName,
				engine.WithAttr("maxWarnings", "10"),
			),
			wantContains: "unknown attribute maxWarnings",
		},
		"bad root severity": {
			cfg: engine.NewNode(engine.RootModuleName,
				engine.WithAttr("severity", "loud"),
			),
			wantContains: "unknown severity",
		},
		"broken child": {
			cfg: engine.NewNode(engine.RootModuleName,
				engine.WithChildNodes(
					engine.NewNode(engine.CheckLineLength, engine.WithAttr("max", "ten")),
				),
			),
			wantContains: "not an integer",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := engine.NewChecker(tc.cfg)
			require.Error(t, err)

			var cfgErr *engine.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, err.Error(), tc.wantContains)
		})
	}
}

func TestNewChecker_WithRegistry(t *testing.T) {
	t.Parallel()

	t.Run("custom registry", func(t *testing.T) {
		t.Parallel()

		reg := engine.NewRegistry()
		reg.Register("Stub", func(_ engine.Config) (engine.FileCheck, error) {
			return stubCheck{
				name: "Stub",
				vs:   []engine.Violation{{Check: "Stub", Message: "stubbed", Line: 1}},
			}, nil
		})

		cfg := engine.NewNode(engine.RootModuleName,
			engine.WithChildNodes(engine.NewNode("Stub")),
		)

		checker, err := engine.NewChecker(cfg, engine.WithRegistry(reg))
		require.NoError(t, err)

		target := writeFile(t, t.TempDir(), "a.go", "anything\n")

		listener := &engine.CollectingListener{}
		require.NoError(t, checker.Process(t.Context(), listener, []string{target}))

		vs := listener.Violations()
		require.Len(t, vs, 1)
		assert.Equal(t, "stubbed", vs[0].Message)
		assert.Equal(t, target, vs[0].File)
		// The root's default severity fills in for checks that leave it empty.
		assert.Equal(t, engine.SeverityError, vs[0].Severity)
	})

	t.Run("nil registry", func(t *testing.T) {
		t.Parallel()

		cfg := engine.NewNode(engine.RootModuleName)

		_, err := engine.NewChecker(cfg, engine.WithRegistry(nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "apply option")
	})
}

func TestChecker_Process(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	goFile := writeFile(t, dir, "a.go", "this first line is much too long\nok\n")
	txtFile := writeFile(t, dir, "b.txt", "this first line is much too long\n")

	cfg := engine.NewNode(engine.RootModuleName,
		engine.WithAttr("severity", "warning"),
		engine.WithAttr("fileExtensions", "go"),
		engine.WithChildNodes(
			engine.NewNode(engine.CheckLineLength, engine.WithAttr("max", "20")),
		),
	)

	checker, err := engine.NewChecker(cfg)
	require.NoError(t, err)
	require.Same(t, cfg, checker.Config())

	listener := &engine.CollectingListener{}
	require.NoError(t, checker.Process(t.Context(), listener, []string{goFile, txtFile}))

	// The .txt file is filtered out by fileExtensions before it is read.
	assert.Equal(t, 1, listener.Files())

	vs := listener.Violations()
	require.Len(t, vs, 1)
	assert.Equal(t, goFile, vs[0].File)
	assert.Equal(t, engine.SeverityWarning, vs[0].Severity)
}

func TestChecker_SeverityOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := writeFile(t, dir, "a.go", "trailing  \n// FIXME\n")

	cfg := engine.NewNode(engine.RootModuleName,
		engine.WithChildNodes(
			engine.NewNode(engine.CheckTrailingWhitespace,
				engine.WithAttr("severity", "info"),
			),
			engine.NewNode(engine.CheckRegexpSingleline,
				engine.WithAttr("format", "FIXME"),
				engine.WithAttr("severity", "ignore"),
			),
		),
	)

	checker, err := engine.NewChecker(cfg)
	require.NoError(t, err)

	listener := &engine.CollectingListener{}
	require.NoError(t, checker.Process(t.Context(), listener, []string{target}))

	// The ignored check's violations are dropped; the info override survives
	// the root default.
	vs := listener.Violations()
	require.Len(t, vs, 1)
	assert.Equal(t, engine.CheckTrailingWhitespace, vs[0].Check)
	assert.Equal(t, engine.SeverityInfo, vs[0].Severity)
}

func TestChecker_UnreadableFile(t *testing.T) {
	t.Parallel()

	cfg := engine.NewNode(engine.RootModuleName,
		engine.WithChildNodes(
			engine.NewNode(engine.CheckTrailingWhitespace),
		),
	)

	checker, err := engine.NewChecker(cfg)
	require.NoError(t, err)

	missing := filepath.Join(t.TempDir(), "no-such-file.go")

	listener := &engine.CollectingListener{}
	require.NoError(t, checker.Process(t.Context(), listener, []string{missing}))

	vs := listener.Violations()
	require.Len(t, vs, 1)
	assert.Equal(t, engine.RootModuleName, vs[0].Check)
	assert.Equal(t, missing, vs[0].File)
	assert.Equal(t, engine.SeverityError, vs[0].Severity)
	assert.Equal(t, 1, vs[0].Line)
	assert.Contains(t, vs[0].Message, "cannot read file")
}

func TestChecker_Close(t *testing.T) {
	t.Parallel()

	checker, err := engine.NewChecker(engine.NewNode(engine.RootModuleName))
	require.NoError(t, err)
	require.False(t, checker.Closed())

	require.NoError(t, checker.Close())
	assert.True(t, checker.Closed())

	err = checker.Process(t.Context(), nil, []string{"a.go"})
	require.ErrorIs(t, err, engine.ErrCheckerClosed)

	// Closing again is a no-op.
	require.NoError(t, checker.Close())
}

func TestChecker_ContextCanceled(t *testing.T) {
	t.Parallel()

	checker, err := engine.NewChecker(engine.NewNode(engine.RootModuleName))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err = checker.Process(ctx, nil, []string{"a.go"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestChecker_NilListener(t *testing.T) {
	t.Parallel()

	target := writeFile(t, t.TempDir(), "a.go", "trailing  \n")

	cfg := engine.NewNode(engine.RootModuleName,
		engine.WithChildNodes(
			engine.NewNode(engine.CheckTrailingWhitespace),
		),
	)

	checker, err := engine.NewChecker(cfg)
	require.NoError(t, err)

	require.NoError(t, checker.Process(t.Context(), nil, []string{target}))
}
