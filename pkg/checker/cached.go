package checker

import (
	"context"
	"sync"
	"time"

	"github.com/lintelhq/lintel/pkg/engine"
)

// Engine is the checker contract the cache manages. [*engine.Checker] is the
// production implementation; tests substitute fakes.
type Engine interface {
	// Process audits files, reporting findings to listener.
	Process(ctx context.Context, listener engine.AuditListener, files []string) error
	// Close releases the checker. A closed checker refuses further work.
	Close() error
}

// CachedChecker pairs a built [Engine] with the configuration tree it was
// built from and tracks how long the pair stays valid.
type CachedChecker struct {
	checker Engine
	config  engine.Config
	now     func() time.Time
	builtAt time.Time
	ttl     time.Duration
	mu      sync.Mutex
}

func newCachedChecker(checker Engine, config engine.Config, ttl time.Duration, now func() time.Time) *CachedChecker {
	return &CachedChecker{
		checker: checker,
		config:  config,
		now:     now,
		builtAt: now(),
		ttl:     ttl,
	}
}

// Valid reports whether the entry may still be served from the cache. The
// predicate is deliberately cheap: no I/O, just an age check against the
// cache's clock. A non-positive TTL never expires.
func (c *CachedChecker) Valid() bool {
	if c.ttl <= 0 {
		return true
	}

	return c.now().Sub(c.builtAt) < c.ttl
}

// Config returns the configuration tree the checker was built from, with
// any suppression path rewrites applied.
func (c *CachedChecker) Config() engine.Config {
	return c.config
}

// Process audits the given files. Overlapping calls on the same instance are
// serialized: the engine contract does not allow concurrent runs on one
// checker.
func (c *CachedChecker) Process(ctx context.Context, listener engine.AuditListener, files []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.checker.Process(ctx, listener, files)
}

// Close releases the underlying checker.
func (c *CachedChecker) Close() error {
	return c.checker.Close()
}
