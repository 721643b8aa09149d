package configs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lintelhq/lintel/api/v1beta1/configs"
	"github.com/lintelhq/lintel/pkg/checker"
	"github.com/lintelhq/lintel/pkg/ruleset"
)

func TestNew(t *testing.T) {
	t.Parallel()

	cfg := configs.New()

	assert.NotNil(t, cfg)
	assert.Equal(t, "lintel.dev/v1beta1", cfg.GetAPIVersion())
	assert.Equal(t, "Configuration", cfg.GetKind())
	assert.Contains(t, cfg.Rulesets, configs.DefaultRulesetName)
	assert.Equal(t, configs.DefaultRulesetName, cfg.Checker.Ruleset)
}

func TestConfig_EnsureDefaults(t *testing.T) {
	t.Parallel()

	cfg := &configs.Config{}

	assert.Nil(t, cfg.Rulesets)
	assert.Nil(t, cfg.Checker)

	cfg.EnsureDefaults()

	assert.Contains(t, cfg.Rulesets, configs.DefaultRulesetName)
	assert.Equal(t, configs.DefaultRulesetName, cfg.Checker.Ruleset)
}

func TestRulesetConfig_Validate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		rc      *configs.RulesetConfig
		errMsg  string
		wantErr bool
	}{
		"file source": {
			rc: &configs.RulesetConfig{File: "rules.xml"},
		},
		"url source": {
			rc: &configs.RulesetConfig{URL: "https://example.com/rules.xml"},
		},
		"builtin source": {
			rc: &configs.RulesetConfig{Builtin: "standard"},
		},
		"no source": {
			rc:      &configs.RulesetConfig{},
			wantErr: true,
			errMsg:  "exactly one of",
		},
		"two sources": {
			rc: &configs.RulesetConfig{
				File: "rules.xml",
				URL:  "https://example.com/rules.xml",
			},
			wantErr: true,
			errMsg:  "exactly one of",
		},
		"unknown builtin": {
			rc:      &configs.RulesetConfig{Builtin: "nonexistent"},
			wantErr: true,
			errMsg:  "unknown builtin ruleset",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tc.rc.Validate()
			if tc.wantErr {
				require.ErrorContains(t, err, tc.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRulesetConfig_Location(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		rc       *configs.RulesetConfig
		wantKind ruleset.Kind
	}{
		"file": {
			rc:       &configs.RulesetConfig{File: "rules.xml"},
			wantKind: ruleset.KindFile,
		},
		"url": {
			rc:       &configs.RulesetConfig{URL: "https://example.com/rules.xml"},
			wantKind: ruleset.KindURL,
		},
		"builtin": {
			rc:       &configs.RulesetConfig{Builtin: "standard"},
			wantKind: ruleset.KindBuiltin,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			loc := tc.rc.Location("/base")

			require.NotNil(t, loc)
			assert.Equal(t, tc.wantKind, loc.Kind)
		})
	}
}

func TestRulesetConfig_LocationProperties(t *testing.T) {
	t.Parallel()

	// Property order must be deterministic regardless of map iteration.
	rc := &configs.RulesetConfig{
		Builtin: "standard",
		Properties: map[string]string{
			"severity": "warning",
			"basedir":  "/tmp",
		},
	}

	first := rc.Location("").Key()
	for range 10 {
		assert.Equal(t, first, rc.Location("").Key())
	}
}

func TestCheckerConfig_TTL(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		cacheTTL string
		want     time.Duration
		wantErr  bool
	}{
		"empty uses default": {
			cacheTTL: "",
			want:     checker.DefaultTTL,
		},
		"custom duration": {
			cacheTTL: "30s",
			want:     30 * time.Second,
		},
		"negative disables expiry": {
			cacheTTL: "-1s",
			want:     -time.Second,
		},
		"invalid": {
			cacheTTL: "soon",
			wantErr:  true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cc := &configs.CheckerConfig{CacheTTL: tc.cacheTTL}

			got, err := cc.TTL()
			if tc.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestProjectConfig_Validate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		pc      *configs.ProjectConfig
		errMsg  string
		wantErr bool
	}{
		"valid": {
			pc: &configs.ProjectConfig{
				Modules: []*configs.ModuleConfig{
					{Name: "core", ContentRoots: []string{"src"}},
					{Name: "api"},
				},
			},
		},
		"missing name": {
			pc: &configs.ProjectConfig{
				Modules: []*configs.ModuleConfig{{ContentRoots: []string{"src"}}},
			},
			wantErr: true,
			errMsg:  "name is required",
		},
		"duplicate name": {
			pc: &configs.ProjectConfig{
				Modules: []*configs.ModuleConfig{{Name: "core"}, {Name: "core"}},
			},
			wantErr: true,
			errMsg:  "duplicate name",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tc.pc.Validate()
			if tc.wantErr {
				require.ErrorContains(t, err, tc.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestProjectConfig_Build(t *testing.T) {
	t.Parallel()

	pc := &configs.ProjectConfig{
		Modules: []*configs.ModuleConfig{
			{
				Name:         "core",
				Manifest:     filepath.Join("core", "module.yaml"),
				ContentRoots: []string{filepath.Join("core", "src")},
				TestRoots:    []string{filepath.Join("core", "src", "test")},
			},
		},
	}

	project := pc.Build("/workspace")

	require.NotNil(t, project)
	assert.Equal(t, "/workspace", project.BaseDir())

	mod := project.ModuleFor(filepath.Join("/workspace", "core", "src", "a.go"))
	require.NotNil(t, mod)
	assert.Equal(t, "core", mod.Name())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		mutate  func(cfg *configs.Config)
		errMsg  string
		wantErr bool
	}{
		"defaults": {
			mutate: func(*configs.Config) {},
		},
		"checker references unknown ruleset": {
			mutate: func(cfg *configs.Config) {
				cfg.Checker.Ruleset = "missing"
			},
			wantErr: true,
			errMsg:  `unknown ruleset "missing"`,
		},
		"module references unknown ruleset": {
			mutate: func(cfg *configs.Config) {
				cfg.Project = &configs.ProjectConfig{
					Modules: []*configs.ModuleConfig{{Name: "core", Ruleset: "missing"}},
				}
			},
			wantErr: true,
			errMsg:  `unknown ruleset "missing"`,
		},
		"empty ruleset definition": {
			mutate: func(cfg *configs.Config) {
				cfg.Rulesets["broken"] = nil
			},
			wantErr: true,
			errMsg:  "empty definition",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := configs.New()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr {
				require.ErrorContains(t, err, tc.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_Write(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")

	err := configs.New().Write(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "apiVersion: lintel.dev/v1beta1")
	assert.Contains(t, string(data), "kind: Configuration")

	// The default document's comments survive the write.
	assert.Contains(t, string(data), "# Global lintel configuration.")
	assert.Contains(t, string(data), "# Named ruleset sources")
}

func TestConfig_Write_MergesValues(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := configs.New()
	cfg.Checker.CacheTTL = "10m"
	cfg.Checker.SkipTestFiles = true

	require.NoError(t, cfg.Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "cacheTTL: 10m")
	assert.Contains(t, string(data), "skipTestFiles: true")
	assert.Contains(t, string(data), "builtin: standard")
	assert.Contains(t, string(data), "# Global lintel configuration.")
}

func TestWriteDefault(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")

	err := configs.WriteDefault(path, false)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "builtin: standard")
}

func TestFind(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfgPath := filepath.Join(dir, ".lintel.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("kind: Configuration\n"), 0o644))

	found, err := configs.Find(nested)
	require.NoError(t, err)
	assert.Equal(t, cfgPath, found)
}
