// Package lint drives style checks across a workspace: it expands the
// requested paths, groups files by module, fetches the right checker from
// the cache for each group, and merges the findings into a [Result].
package lint

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lintelhq/lintel/pkg/checker"
	"github.com/lintelhq/lintel/pkg/engine"
	"github.com/lintelhq/lintel/pkg/log"
	"github.com/lintelhq/lintel/pkg/ruleset"
	"github.com/lintelhq/lintel/pkg/workspace"
)

// Driver runs style checks. It manages:
//   - Path expansion and module grouping.
//   - Per-module ruleset selection.
//   - Checker lookup through the [checker.Cache].
//   - Filesystem notifications for watched ruleset sources.
type Driver struct {
	tracer       trace.Tracer
	cache        *checker.Cache
	registry     *engine.Registry
	project      *workspace.Project
	watcher      *fsnotify.Watcher
	defaultLoc   *ruleset.Location
	moduleLocs   map[string]*ruleset.Location
	watchedFiles map[string]struct{}
	listeners    []chan<- Event
	lastPaths    []string
	mu           sync.Mutex
	skipTests    bool
	watch        bool
}

// DriverOpt configures a [Driver] during construction.
type DriverOpt func(d *Driver) error

// WithProject sets the workspace the driver groups files against.
func WithProject(p *workspace.Project) DriverOpt {
	return func(d *Driver) error {
		d.project = p

		return nil
	}
}

// WithDefaultRuleset sets the ruleset used for files no module-specific
// ruleset claims.
func WithDefaultRuleset(loc *ruleset.Location) DriverOpt {
	return func(d *Driver) error {
		if loc == nil {
			return errors.New("nil location")
		}

		d.defaultLoc = loc

		return nil
	}
}

// WithModuleRuleset routes files of the named module to a specific ruleset.
func WithModuleRuleset(module string, loc *ruleset.Location) DriverOpt {
	return func(d *Driver) error {
		if loc == nil {
			return errors.New("nil location")
		}

		d.moduleLocs[module] = loc

		return nil
	}
}

// WithRegistry sets the check registry used for checker builds.
func WithRegistry(reg *engine.Registry) DriverOpt {
	return func(d *Driver) error {
		d.registry = reg

		return nil
	}
}

// WithSkipTestFiles skips files under module test roots.
func WithSkipTestFiles(skip bool) DriverOpt {
	return func(d *Driver) error {
		d.skipTests = skip

		return nil
	}
}

// WithWatch watches file-based ruleset sources; changes invalidate the
// checker cache and re-run the last check. Pump events with
// [Driver.RunOnEvent].
func WithWatch(watch bool) DriverOpt {
	return func(d *Driver) error {
		d.watch = watch

		return nil
	}
}

// NewDriver creates a [Driver] that fetches checkers from cache. Without
// [WithDefaultRuleset], files fall back to the bundled standard ruleset.
func NewDriver(cache *checker.Cache, opts ...DriverOpt) (*Driver, error) {
	if cache == nil {
		return nil, errors.New("nil cache")
	}

	d := &Driver{
		tracer:       otel.Tracer("lint-driver"),
		cache:        cache,
		defaultLoc:   ruleset.NewBuiltinLocation("standard"),
		moduleLocs:   make(map[string]*ruleset.Location),
		watchedFiles: make(map[string]struct{}),
	}

	for _, opt := range opts {
		err := opt(d)
		if err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	d.watcher = watcher

	if d.watch {
		err := d.watchSources()
		if err != nil {
			d.Close()

			return nil, err
		}
	}

	return d, nil
}

// Check expands paths into files, groups them by module, and audits each
// group with its module's checker. Groups whose ruleset cannot be resolved
// are counted as skipped; the failure has already been notified.
func (d *Driver) Check(ctx context.Context, paths ...string) (*Result, error) {
	start := time.Now()

	ctx, span := d.tracer.Start(ctx, "check", trace.WithAttributes(
		attribute.Int("paths.count", len(paths)),
	))
	defer span.End()

	d.broadcast(EventCheckStarted{})

	files, err := expandPaths(paths)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.lastPaths = slices.Clone(paths)
	d.mu.Unlock()

	result := &Result{Started: start}

	for _, group := range d.groupByModule(files) {
		groupFiles := group.files
		if d.skipTests && group.module != nil {
			groupFiles = slices.DeleteFunc(slices.Clone(groupFiles), group.module.InTestRoot)
		}

		if len(groupFiles) == 0 {
			continue
		}

		entry, err := d.cache.Get(ctx, d.locationFor(group.module), group.module, d.registry)
		if err != nil {
			return nil, err
		}

		if entry == nil {
			result.Skipped += len(groupFiles)

			continue
		}

		listener := &engine.CollectingListener{}

		err = entry.Process(ctx, listener, groupFiles)
		if err != nil {
			return nil, fmt.Errorf("process files: %w", err)
		}

		result.Violations = append(result.Violations, listener.Violations()...)
		result.Files += listener.Files()
	}

	sortViolations(result.Violations)
	result.Duration = time.Since(start)

	log.WithContext(ctx).Debug("check pass finished",
		slog.Int("files", result.Files),
		slog.Int("violations", len(result.Violations)),
		slog.Duration("duration", result.Duration),
	)
	d.broadcast(EventCheckFinished{Result: result})

	return result, nil
}

// moduleGroup is one module's slice of the requested files.
type moduleGroup struct {
	module *workspace.Module
	files  []string
}

// groupByModule buckets files by owning module, preserving first-seen
// order. Files outside every module share the nil-module group.
func (d *Driver) groupByModule(files []string) []*moduleGroup {
	var (
		groups []*moduleGroup
		index  = make(map[*workspace.Module]*moduleGroup)
	)

	for _, f := range files {
		mod := d.project.ModuleFor(f)

		g, ok := index[mod]
		if !ok {
			g = &moduleGroup{module: mod}
			index[mod] = g
			groups = append(groups, g)
		}

		g.files = append(g.files, f)
	}

	return groups
}

func (d *Driver) locationFor(mod *workspace.Module) *ruleset.Location {
	if mod != nil {
		if loc, ok := d.moduleLocs[mod.Name()]; ok {
			return loc
		}
	}

	return d.defaultLoc
}

// rulesetLocations returns every configured ruleset location.
func (d *Driver) rulesetLocations() []*ruleset.Location {
	locs := []*ruleset.Location{d.defaultLoc}

	names := slices.Sorted(maps.Keys(d.moduleLocs))
	for _, name := range names {
		locs = append(locs, d.moduleLocs[name])
	}

	return locs
}

// watchSources registers the directories of file-based ruleset sources with
// the filesystem watcher.
func (d *Driver) watchSources() error {
	watchedDirs := make(map[string]struct{})

	for _, loc := range d.rulesetLocations() {
		path := loc.FilePath()
		if path == "" {
			continue
		}

		d.watchedFiles[path] = struct{}{}

		dir := filepath.Dir(path)
		if _, ok := watchedDirs[dir]; ok {
			continue
		}

		err := d.watcher.Add(dir)
		if err != nil {
			return fmt.Errorf("watch ruleset directory %q: %w", dir, err)
		}

		watchedDirs[dir] = struct{}{}
	}

	slog.Debug("watching ruleset sources",
		slog.Int("files", len(d.watchedFiles)),
		slog.Int("dirs", len(watchedDirs)),
	)

	return nil
}

// isFileWatched reports whether the path is a watched ruleset source.
func (d *Driver) isFileWatched(path string) bool {
	_, ok := d.watchedFiles[path]

	return ok
}

// RunOnEvent listens for ruleset file changes; each change invalidates the
// checker cache and re-runs the last check. Results should be collected via
// [Driver.Subscribe]. It returns when the watcher closes.
func (d *Driver) RunOnEvent() {
	for {
		select {
		case evt, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			if !d.isFileWatched(evt.Name) || evt.Has(fsnotify.Chmod) {
				continue
			}

			ctx := context.Background()
			log.WithContext(ctx).Info("ruleset changed, invalidating cached checkers",
				slog.String("path", evt.Name),
			)

			d.cache.InvalidateAll()
			d.broadcast(EventInvalidated{Path: evt.Name})

			d.mu.Lock()
			paths := slices.Clone(d.lastPaths)
			d.mu.Unlock()

			if len(paths) == 0 {
				continue
			}

			_, err := d.Check(ctx, paths...)
			if err != nil {
				d.broadcast(EventCheckFinished{Err: err})
			}

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}

			slog.Error("ruleset watcher", slog.Any("error", err))
		}
	}
}

// Subscribe registers a channel to receive driver events. It must be called
// before the first check.
func (d *Driver) Subscribe(ch chan<- Event) {
	d.listeners = append(d.listeners, ch)
}

func (d *Driver) broadcast(evt Event) {
	for _, ch := range d.listeners {
		ch <- evt
	}
}

// Close releases the filesystem watcher.
func (d *Driver) Close() {
	err := d.watcher.Close()
	if err != nil {
		slog.Error("close watcher", slog.Any("err", err))
	}
}

// expandPaths flattens files and directories into a file list. Hidden
// directories are not descended into.
func expandPaths(paths []string) ([]string, error) {
	var files []string

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat path %q: %w", path, err)
		}

		if !info.IsDir() {
			files = append(files, path)

			continue
		}

		err = filepath.WalkDir(path, func(p string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if entry.IsDir() {
				if p != path && strings.HasPrefix(entry.Name(), ".") {
					return filepath.SkipDir
				}

				return nil
			}

			files = append(files, p)

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %q: %w", path, err)
		}
	}

	return files, nil
}

func sortViolations(vs []engine.Violation) {
	slices.SortFunc(vs, func(a, b engine.Violation) int {
		if c := strings.Compare(a.File, b.File); c != 0 {
			return c
		}

		if c := cmp.Compare(a.Line, b.Line); c != 0 {
			return c
		}

		if c := cmp.Compare(a.Column, b.Column); c != 0 {
			return c
		}

		return strings.Compare(a.Check, b.Check)
	})
}
