// Package configs provides the global Config configuration type for lintel.
package configs

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"github.com/invopop/jsonschema"

	_ "embed"

	"github.com/lintelhq/lintel/api"
	"github.com/lintelhq/lintel/api/v1beta1"
	"github.com/lintelhq/lintel/pkg/checker"
	"github.com/lintelhq/lintel/pkg/engine"
	"github.com/lintelhq/lintel/pkg/ruleset"
	"github.com/lintelhq/lintel/pkg/workspace"
	"github.com/lintelhq/lintel/pkg/yaml"
)

//go:generate go run ../../../internal/schemagen/configs/main.go -o configs.v1beta1.json

// DefaultRulesetName is the rulesets entry used when nothing else is named.
const DefaultRulesetName = "default"

var (
	// FileNames contains the valid names for project-local configuration
	// files.
	FileNames = []string{
		".lintel.yaml",
		"lintel.yaml",
	}

	//go:embed config.yaml
	defaultConfigYAML []byte

	//go:embed configs.v1beta1.json
	schemaJSON []byte

	// ValidKinds contains the valid kind values for global configurations.
	ValidKinds = []string{"Configuration"}

	// DefaultValidator validates global configuration against the JSON schema.
	DefaultValidator = yaml.MustNewValidator("/configs.v1beta1.json", schemaJSON)

	// Compile-time interface checks.
	_ v1beta1.Object = (*Config)(nil)
)

// Config represents the global lintel configuration.
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type Config struct {
	// Rulesets contains named ruleset sources. Checker and module settings
	// reference entries by name.
	Rulesets map[string]*RulesetConfig `json:"rulesets,omitempty" jsonschema:"title=Rulesets"`
	// Checker configures how checkers are built and cached.
	Checker *CheckerConfig `json:"checker,omitempty" jsonschema:"title=Checker"`
	// Project describes the workspace layout files are grouped against.
	Project *ProjectConfig `json:"project,omitempty" jsonschema:"title=Project"`

	v1beta1.TypeMeta `json:",inline"`
}

// RulesetConfig points at one ruleset source. Exactly one of File, URL, or
// Builtin must be set.
type RulesetConfig struct {
	// Properties substitute ${name} references inside the ruleset.
	Properties map[string]string `json:"properties,omitempty" jsonschema:"title=Properties"`
	// File is a filesystem path to the ruleset, absolute or relative to the
	// directory holding the configuration file.
	File string `json:"file,omitempty" jsonschema:"title=File"`
	// URL is an HTTP(S) address the ruleset is fetched from.
	URL string `json:"url,omitempty" jsonschema:"title=URL"`
	// Builtin is the name of a bundled ruleset.
	Builtin string `json:"builtin,omitempty" jsonschema:"title=Builtin"`
}

// Validate checks that the entry names exactly one source.
func (rc *RulesetConfig) Validate() error {
	sources := 0
	for _, set := range []bool{rc.File != "", rc.URL != "", rc.Builtin != ""} {
		if set {
			sources++
		}
	}

	if sources != 1 {
		return errors.New("exactly one of file, url, or builtin must be set")
	}

	if rc.Builtin != "" && !slices.Contains(ruleset.Builtins(), rc.Builtin) {
		return fmt.Errorf("unknown builtin ruleset %q", rc.Builtin)
	}

	return nil
}

// Location resolves the entry into a [ruleset.Location]. Relative file paths
// resolve against baseDir.
func (rc *RulesetConfig) Location(baseDir string) *ruleset.Location {
	props := make([]engine.Property, 0, len(rc.Properties))
	for _, name := range slices.Sorted(maps.Keys(rc.Properties)) {
		props = append(props, engine.Property{Name: name, Value: rc.Properties[name]})
	}

	switch {
	case rc.File != "":
		return ruleset.NewFileLocation(rc.File, baseDir, props...)

	case rc.URL != "":
		return ruleset.NewURLLocation(rc.URL, props...)

	default:
		return ruleset.NewBuiltinLocation(rc.Builtin, props...)
	}
}

// CheckerConfig configures checker construction and caching.
type CheckerConfig struct {
	// Ruleset names the rulesets entry used for files no module-specific
	// ruleset claims.
	Ruleset string `json:"ruleset,omitempty" jsonschema:"title=Ruleset"`
	// CacheTTL bounds how long a built checker is reused before its ruleset
	// is re-read, as a Go duration string such as "5m". Empty uses the
	// built-in default; a non-positive duration disables expiry.
	CacheTTL string `json:"cacheTTL,omitempty" jsonschema:"title=Cache TTL"`
	// SkipTestFiles excludes files under module test roots from checking.
	SkipTestFiles bool `json:"skipTestFiles,omitempty" jsonschema:"title=Skip Test Files"`
}

// Validate validates the checker configuration.
func (cc *CheckerConfig) Validate() error {
	_, err := cc.TTL()

	return err
}

// TTL returns the configured cache lifetime, or [checker.DefaultTTL] when
// CacheTTL is empty.
func (cc *CheckerConfig) TTL() (time.Duration, error) {
	if cc.CacheTTL == "" {
		return checker.DefaultTTL, nil
	}

	d, err := time.ParseDuration(cc.CacheTTL)
	if err != nil {
		return 0, fmt.Errorf("parse cacheTTL: %w", err)
	}

	return d, nil
}

// ProjectConfig describes the workspace layout.
type ProjectConfig struct {
	// BaseDir is the project base directory. A relative path resolves
	// against the directory holding the configuration file.
	BaseDir string `json:"baseDir,omitempty" jsonschema:"title=Base Directory"`
	// Modules lists the project's modules.
	Modules []*ModuleConfig `json:"modules,omitempty" jsonschema:"title=Modules"`
}

// Validate validates the project configuration.
func (pc *ProjectConfig) Validate() error {
	seen := make(map[string]struct{}, len(pc.Modules))

	for i, m := range pc.Modules {
		if m == nil {
			return fmt.Errorf("module %d: empty definition", i)
		}

		if m.Name == "" {
			return fmt.Errorf("module %d: name is required", i)
		}

		if _, ok := seen[m.Name]; ok {
			return fmt.Errorf("module %s: duplicate name", m.Name)
		}

		seen[m.Name] = struct{}{}
	}

	return nil
}

// Build resolves the description into a [workspace.Project]. Relative paths
// resolve against baseDir.
func (pc *ProjectConfig) Build(baseDir string) *workspace.Project {
	if pc == nil {
		return nil
	}

	root := baseDir
	if pc.BaseDir != "" {
		root = resolvePath(baseDir, pc.BaseDir)
	}

	specs := make([]workspace.ModuleSpec, 0, len(pc.Modules))

	for _, m := range pc.Modules {
		spec := workspace.ModuleSpec{
			Name:         m.Name,
			ManifestPath: resolvePath(root, m.Manifest),
		}

		for _, r := range m.ContentRoots {
			spec.ContentRoots = append(spec.ContentRoots, resolvePath(root, r))
		}

		for _, r := range m.TestRoots {
			spec.TestRoots = append(spec.TestRoots, resolvePath(root, r))
		}

		specs = append(specs, spec)
	}

	return workspace.NewProject(root, specs...)
}

// ModuleConfig describes one module of the project.
type ModuleConfig struct {
	// Name identifies the module.
	Name string `json:"name" jsonschema:"title=Name"`
	// Manifest points at the module's build manifest, if it has one.
	Manifest string `json:"manifest,omitempty" jsonschema:"title=Manifest"`
	// ContentRoots are the module's source directories, in declared order.
	ContentRoots []string `json:"contentRoots,omitempty" jsonschema:"title=Content Roots"`
	// TestRoots are source directories holding test code.
	TestRoots []string `json:"testRoots,omitempty" jsonschema:"title=Test Roots"`
	// Ruleset names the rulesets entry this module's files are checked
	// with.
	Ruleset string `json:"ruleset,omitempty" jsonschema:"title=Ruleset"`
}

// New creates a new global [Config] with default values.
func New() *Config {
	c := &Config{
		TypeMeta: v1beta1.TypeMeta{
			APIVersion: v1beta1.APIVersion,
			Kind:       "Configuration",
		},
	}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults initializes nil fields to their default values.
func (c *Config) EnsureDefaults() {
	if c.Rulesets == nil {
		c.Rulesets = map[string]*RulesetConfig{
			DefaultRulesetName: {Builtin: "standard"},
		}
	}

	if c.Checker == nil {
		c.Checker = &CheckerConfig{}
	}

	if c.Checker.Ruleset == "" {
		c.Checker.Ruleset = DefaultRulesetName
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, name := range slices.Sorted(maps.Keys(c.Rulesets)) {
		rc := c.Rulesets[name]
		if rc == nil {
			return fmt.Errorf("ruleset %s: empty definition", name)
		}

		err := rc.Validate()
		if err != nil {
			return fmt.Errorf("ruleset %s: %w", name, err)
		}
	}

	if c.Checker != nil {
		err := c.Checker.Validate()
		if err != nil {
			return fmt.Errorf("validate checker config: %w", err)
		}

		err = c.checkRulesetRef(c.Checker.Ruleset)
		if err != nil {
			return fmt.Errorf("checker: %w", err)
		}
	}

	if c.Project != nil {
		err := c.Project.Validate()
		if err != nil {
			return fmt.Errorf("validate project config: %w", err)
		}

		for _, m := range c.Project.Modules {
			err := c.checkRulesetRef(m.Ruleset)
			if err != nil {
				return fmt.Errorf("module %s: %w", m.Name, err)
			}
		}
	}

	return nil
}

func (c *Config) checkRulesetRef(name string) error {
	if name == "" {
		return nil
	}

	if _, ok := c.Rulesets[name]; !ok {
		return fmt.Errorf("unknown ruleset %q", name)
	}

	return nil
}

func (c Config) JSONSchemaExtend(jss *jsonschema.Schema) {
	v1beta1.ExtendSchemaWithEnums(jss, v1beta1.ValidAPIVersions, ValidKinds)
}

// MarshalYAML serializes the config to YAML.
func (c Config) MarshalYAML() ([]byte, error) {
	type alias Config

	b, err := api.MarshalYAML(alias(c))
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	return b, nil
}

// Write writes the config to the specified path if it doesn't already exist.
// Values are merged into the embedded default document so its comments are
// kept.
func (c Config) Write(path string) error {
	type alias Config

	b, err := yaml.MergeRootFromValue(defaultConfigYAML, alias(c))
	if err != nil {
		return fmt.Errorf("merge config: %w", err)
	}

	err = api.WriteIfNotExists(path, b)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// WriteDefault writes the embedded default config.yaml to the specified path.
func WriteDefault(path string, force bool) error {
	err := api.WriteDefaultFile(path, defaultConfigYAML, force, "configuration")
	if err != nil {
		return fmt.Errorf("write default config: %w", err)
	}

	return nil
}

// GetPath returns the path to the global configuration file.
func GetPath() string {
	return api.GetConfigPath("config.yaml")
}

// Find searches for a project-local config file starting from targetPath and
// walking up the directory tree until the filesystem root. It checks for all
// [FileNames] in each directory. Returns the path to the config file if
// found, or empty string if not found.
func Find(targetPath string) (string, error) {
	path, err := api.FindConfigFile(targetPath, FileNames)
	if err != nil {
		return "", fmt.Errorf("find config file: %w", err)
	}

	return path, nil
}

func resolvePath(baseDir, path string) string {
	if path == "" || baseDir == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(baseDir, path)
}
