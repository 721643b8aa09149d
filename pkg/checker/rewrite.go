package checker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lintelhq/lintel/pkg/engine"
	"github.com/lintelhq/lintel/pkg/log"
	"github.com/lintelhq/lintel/pkg/notify"
	"github.com/lintelhq/lintel/pkg/ruleset"
	"github.com/lintelhq/lintel/pkg/workspace"
)

// fileAttribute holds the suppressions file path on a suppression filter.
const fileAttribute = "file"

// RewriteSuppressions returns cfg with the file attribute of every
// suppression filter pointing at a path that exists, when one can be found.
//
// Ruleset authors usually write suppression paths relative to wherever the
// ruleset happens to live, which breaks as soon as the working directory
// differs. For each filter whose path does not exist as given, candidate
// directories are searched in order: the location's base directory, each
// module content root in declared order, the module manifest directory, and
// the project base directory. The first candidate that exists wins.
//
// The tree is immutable, so a rewrite produces replacement nodes; untouched
// filters keep their original nodes, and a tree needing no rewrites is
// returned unchanged. When no candidate exists and a module is present, the
// notifier gets a warning and the original path is kept.
func RewriteSuppressions(ctx context.Context, cfg engine.Config, loc *ruleset.Location, mod *workspace.Module, notifier notify.Notifier) engine.Config {
	logger := log.WithContext(ctx)

	root, ok := cfg.(engine.Rewritable)
	if !ok {
		logger.Debug("configuration is not rewritable, keeping suppression paths as-is",
			slog.String("type", fmt.Sprintf("%T", cfg)),
		)

		return cfg
	}

	for i, child := range cfg.Children() {
		if child.Name() != engine.SuppressionFilterName {
			continue
		}

		path, ok := child.Attribute(fileAttribute)
		if !ok || path == "" {
			continue
		}

		if fileExists(path) {
			continue
		}

		resolved, found := findSuppressionFile(path, loc, mod)
		if !found {
			if mod != nil && notifier != nil {
				notifier.Warn(ctx, notify.Format(
					"Unable to locate the suppressions file %q referenced by ruleset %s", path, loc))
			}

			logger.Debug("suppressions file not found, keeping original path",
				slog.String("path", path),
			)

			continue
		}

		rw, ok := child.(engine.Rewritable)
		if !ok {
			logger.Debug("suppression filter is not rewritable, keeping original path",
				slog.String("path", path),
			)

			continue
		}

		logger.Debug("rewrote suppressions file path",
			slog.String("from", path),
			slog.String("to", resolved),
		)

		next, ok := root.WithChildReplaced(i, rw.WithAttribute(fileAttribute, resolved)).(engine.Rewritable)
		if !ok {
			// Replacing a child must not cost the root its rewrite
			// capability; stop walking rather than lose prior rewrites.
			logger.Debug("rewritten configuration is not rewritable, keeping remaining suppression paths as-is",
				slog.String("type", fmt.Sprintf("%T", root)),
			)

			return root
		}

		root = next
	}

	return root
}

// findSuppressionFile searches the candidate directories for path and
// returns the first absolute candidate that exists.
func findSuppressionFile(path string, loc *ruleset.Location, mod *workspace.Module) (string, bool) {
	for _, dir := range candidateDirs(loc, mod) {
		candidate := filepath.Join(dir, path)
		if !fileExists(candidate) {
			continue
		}

		abs, err := filepath.Abs(candidate)
		if err != nil {
			return candidate, true
		}

		return abs, true
	}

	return "", false
}

// candidateDirs lists the directories searched for a suppressions file, in
// precedence order. Absent sources are skipped.
func candidateDirs(loc *ruleset.Location, mod *workspace.Module) []string {
	var dirs []string

	if loc != nil && loc.BaseDir != "" {
		dirs = append(dirs, loc.BaseDir)
	}

	if mod != nil {
		dirs = append(dirs, mod.ContentRoots()...)

		if dir := mod.ManifestDir(); dir != "" {
			dirs = append(dirs, dir)
		}

		if base := mod.Project().BaseDir(); base != "" {
			dirs = append(dirs, base)
		}
	}

	return dirs
}

// fileExists reports whether path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}
