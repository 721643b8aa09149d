// Package config locates and loads lintel's own settings.
//
// Settings resolve in this order: an explicit path, a project-local
// configuration file found by walking up from the checked path, the user's
// global configuration file, and finally the embedded defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lintelhq/lintel/api/v1beta1/configs"
)

// Settings is a loaded configuration plus the directory that relative paths
// inside it resolve against.
type Settings struct {
	// Config is the decoded, validated configuration.
	Config *configs.Config
	// BaseDir is the directory holding the configuration file, or the
	// checked path's directory when the embedded defaults are in effect.
	BaseDir string
	// Path is the configuration file the settings came from. Empty when the
	// embedded defaults are in effect.
	Path string
}

// Load reads, validates, and decodes the configuration file at path.
func Load(path string) (*Settings, error) {
	loader, err := NewLoaderFromFile(path, configs.New, configs.DefaultValidator)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", path, err)
	}

	err = loader.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate %q: %w", path, err)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", path, err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate %q: %w", path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", path, err)
	}

	return &Settings{
		Config:  cfg,
		BaseDir: filepath.Dir(absPath),
		Path:    absPath,
	}, nil
}

// Resolve finds the settings governing targetPath. An explicit path wins;
// otherwise the project-local file nearest to targetPath, then the user's
// global configuration, then the embedded defaults.
func Resolve(explicitPath, targetPath string) (*Settings, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}

	path, err := configs.Find(targetPath)
	if err != nil {
		return nil, err //nolint:wrapcheck // Find wraps with context.
	}

	if path != "" {
		return Load(path)
	}

	if global := configs.GetPath(); fileExists(global) {
		return Load(global)
	}

	baseDir, err := targetDir(targetPath)
	if err != nil {
		return nil, err
	}

	return &Settings{
		Config:  configs.New(),
		BaseDir: baseDir,
	}, nil
}

// targetDir returns the absolute directory for a file or directory path.
func targetDir(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("stat %q: %w", path, err)
	}

	if info.IsDir() {
		return absPath, nil
	}

	return filepath.Dir(absPath), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}
