package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lintelhq/lintel/pkg/engine"
	"github.com/lintelhq/lintel/pkg/log"
	"github.com/lintelhq/lintel/pkg/notify"
	"github.com/lintelhq/lintel/pkg/ruleset"
	"github.com/lintelhq/lintel/pkg/workspace"
)

// DefaultTTL is how long a cached checker stays valid before it is rebuilt.
const DefaultTTL = 5 * time.Minute

// EngineBuilder instantiates the engine for a parsed ruleset configuration.
type EngineBuilder func(cfg engine.Config, reg *engine.Registry) (Engine, error)

func defaultEngineBuilder(cfg engine.Config, reg *engine.Registry) (Engine, error) {
	return engine.NewChecker(cfg, engine.WithRegistry(reg))
}

// Cache hands out ready-to-run checkers keyed by ruleset location.
//
// Checkers are expensive to build, so the cache keeps at most one per
// [ruleset.Location] key and revalidates it on every lookup. One mutex
// guards the whole lookup-or-build-and-store sequence: at most one build or
// cache mutation happens at a time.
type Cache struct {
	tracer   trace.Tracer
	notifier notify.Notifier
	now      func() time.Time
	entries  map[string]*CachedChecker
	builder  EngineBuilder
	ttl      time.Duration
	mu       sync.Mutex
}

// CacheOpt configures a [Cache] during construction.
type CacheOpt func(c *Cache) error

// WithNotifier sets the sink for user-facing notifications.
func WithNotifier(n notify.Notifier) CacheOpt {
	return func(c *Cache) error {
		if n == nil {
			return errors.New("nil notifier")
		}

		c.notifier = n

		return nil
	}
}

// WithTTL sets how long cached checkers stay valid. A non-positive TTL
// keeps entries valid forever.
func WithTTL(ttl time.Duration) CacheOpt {
	return func(c *Cache) error {
		c.ttl = ttl

		return nil
	}
}

// WithClock sets the time source used for entry validity.
func WithClock(now func() time.Time) CacheOpt {
	return func(c *Cache) error {
		if now == nil {
			return errors.New("nil clock")
		}

		c.now = now

		return nil
	}
}

// WithEngineBuilder sets the builder used to instantiate engines from
// parsed configurations.
func WithEngineBuilder(b EngineBuilder) CacheOpt {
	return func(c *Cache) error {
		if b == nil {
			return errors.New("nil engine builder")
		}

		c.builder = b

		return nil
	}
}

// NewCache creates a [Cache].
func NewCache(opts ...CacheOpt) (*Cache, error) {
	c := &Cache{
		tracer:   otel.Tracer("checker-cache"),
		notifier: notify.LogNotifier{},
		now:      time.Now,
		entries:  make(map[string]*CachedChecker),
		builder:  defaultEngineBuilder,
		ttl:      DefaultTTL,
	}

	for _, opt := range opts {
		err := opt(c)
		if err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	return c, nil
}

// MustNewCache creates a [Cache], panicking on error.
func MustNewCache(opts ...CacheOpt) *Cache {
	c, err := NewCache(opts...)
	if err != nil {
		panic(err)
	}

	return c
}

// Get returns a ready checker for loc, building one when the cache holds no
// valid entry. The returned instance is freshly built or passed validity
// during this call.
//
// A (nil, nil) return means the ruleset could not be resolved; the failure
// has already been reported through the notifier, and the caller should
// skip checking this time. A nil loc is a programming error and panics.
func (c *Cache) Get(ctx context.Context, loc *ruleset.Location, mod *workspace.Module, reg *engine.Registry) (*CachedChecker, error) {
	if loc == nil {
		panic("checker: Get called with a nil location")
	}

	ctx, span := c.tracer.Start(ctx, "get-checker", trace.WithAttributes(
		attribute.String("location", loc.String()),
	))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	key := loc.Key()

	if entry, ok := c.entries[key]; ok {
		if entry.Valid() {
			span.SetAttributes(attribute.Bool("cache.hit", true))

			return entry, nil
		}

		// Stale entries are evicted and closed before any caller can
		// observe them again.
		delete(c.entries, key)

		err := entry.Close()
		if err != nil {
			log.WithContext(ctx).Warn("close evicted checker",
				slog.String("location", loc.String()),
				slog.Any("error", err),
			)
		}
	}

	span.SetAttributes(attribute.Bool("cache.hit", false))

	entry, err := c.build(ctx, loc, mod, reg)
	if err != nil {
		var resErr *ruleset.ResolveError
		if errors.As(err, &resErr) {
			c.notifier.Error(ctx, notify.Format(
				"The ruleset %s could not be loaded: %v", resErr.Location, resErr.Err))

			return nil, nil
		}

		return nil, fmt.Errorf("build checker for %s: %w", loc, err)
	}

	c.entries[key] = entry

	return entry, nil
}

// Config returns the parsed configuration for a location previously loaded
// with [Cache.Get]. Calling it without a valid entry is a programming error
// and panics: callers must Get first.
func (c *Cache) Config(loc *ruleset.Location) engine.Config {
	if loc == nil {
		panic("checker: Config called with a nil location")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[loc.Key()]
	if !ok || !entry.Valid() {
		panic(fmt.Sprintf("checker: no valid cached checker for %s", loc))
	}

	return entry.Config()
}

// InvalidateAll drops every cache entry without closing the evicted
// checkers, so instances already handed out keep working. Entries are
// simply rebuilt on next use.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
