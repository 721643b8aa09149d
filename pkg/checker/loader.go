package checker

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lintelhq/lintel/pkg/engine"
	"github.com/lintelhq/lintel/pkg/log"
	"github.com/lintelhq/lintel/pkg/ruleset"
	"github.com/lintelhq/lintel/pkg/workspace"
)

// buildOutcome carries one finished build across the goroutine boundary.
type buildOutcome struct {
	entry *CachedChecker
	err   error
}

// build constructs a checker for loc on a dedicated goroutine and waits for
// the result. Goroutines are never pooled: each build captures its registry
// at spawn and cannot be affected by later reconfiguration. A panic inside
// the build is recovered and surfaced as a build error instead of taking
// down the caller.
func (c *Cache) build(ctx context.Context, loc *ruleset.Location, mod *workspace.Module, reg *engine.Registry) (*CachedChecker, error) {
	if reg == nil {
		reg = engine.DefaultRegistry()
	}

	resCh := make(chan buildOutcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resCh <- buildOutcome{err: fmt.Errorf("checker build panicked: %v", r)}
			}
		}()

		entry, err := c.runBuild(ctx, loc, mod, reg)
		resCh <- buildOutcome{entry: entry, err: err}
	}()

	out := <-resCh

	return out.entry, out.err
}

// runBuild resolves, parses, rewrites, and instantiates one checker.
func (c *Cache) runBuild(ctx context.Context, loc *ruleset.Location, mod *workspace.Module, reg *engine.Registry) (*CachedChecker, error) {
	ctx, span := c.tracer.Start(ctx, "build-checker", trace.WithAttributes(
		attribute.String("location", loc.String()),
	))
	defer span.End()

	stream, err := loc.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	defer func() {
		cerr := stream.Close()
		if cerr != nil {
			log.WithContext(ctx).Debug("close ruleset stream",
				slog.String("location", loc.String()),
				slog.Any("error", cerr),
			)
		}
	}()

	cfg, err := engine.LoadConfig(stream, engine.NewProperties(loc.Properties...))
	if err != nil {
		return nil, err
	}

	rewritten := RewriteSuppressions(ctx, cfg, loc, mod, c.notifier)

	eng, err := c.builder(rewritten, reg)
	if err != nil {
		return nil, err
	}

	return newCachedChecker(eng, rewritten, c.ttl, c.now), nil
}
