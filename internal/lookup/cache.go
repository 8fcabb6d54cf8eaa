package lookup

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"hookbridge/internal/platform/metrics"
)

// Cache layers a process-memoized copy over the persistent store over the
// upstream fetcher.
//
// The memoized copy, once populated, is never revalidated against the
// persistent layer for the life of the process (bypass excepted). A batch run
// therefore does at most one store round trip per resource type, accepting
// staleness within the run as the cost.
type Cache struct {
	fetcher Fetcher
	store   Store // may be nil: memo-only operation
	log     *slog.Logger
	metrics *metrics.Metrics
	ttl     time.Duration

	mu   sync.Mutex
	memo map[ResourceType]Titles
}

// NewCache builds a cache. store may be nil; metrics may be nil.
func NewCache(fetcher Fetcher, store Store, ttl time.Duration, log *slog.Logger, m *metrics.Metrics) *Cache {
	return &Cache{
		fetcher: fetcher,
		store:   store,
		log:     log,
		metrics: m,
		ttl:     ttl,
		memo:    make(map[ResourceType]Titles),
	}
}

// Get resolves the title set for typ. Resolution order: memoized copy,
// persistent layer, upstream fetch. bypass skips both cache reads and always
// refetches, repopulating both layers on success.
//
// A nil result with an error means the fetch failed (or is misconfigured)
// and nothing was cached; an empty non-nil result means upstream returned a
// valid but empty set, which is suspicious and deliberately not cached.
func (c *Cache) Get(ctx context.Context, typ ResourceType, bypass bool) (Titles, error) {
	if err := typ.validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !bypass {
		if titles, ok := c.memo[typ]; ok {
			c.log.DebugContext(ctx, "lookup cache hit", "layer", "memo", "type", string(typ))
			c.metrics.IncCacheHit("memo")
			return titles, nil
		}

		if c.store != nil {
			titles, err := c.store.Get(ctx, typ)
			if err != nil {
				c.log.WarnContext(ctx, "persistent cache read failed", "type", string(typ), "error", err)
			} else if titles != nil {
				c.log.DebugContext(ctx, "lookup cache hit", "layer", "persistent", "type", string(typ))
				c.metrics.IncCacheHit("persistent")
				c.memo[typ] = titles
				return titles, nil
			}
		}
	}

	c.log.DebugContext(ctx, "lookup cache miss, fetching upstream",
		"type", string(typ), "bypass", bypass)
	c.metrics.IncFetch()

	titles, err := c.fetcher.Fetch(ctx, typ)
	if err != nil {
		// Not cached: the next call retries.
		return nil, err
	}

	if len(titles) == 0 {
		// An empty set probably means someone flipped the listing to
		// private upstream. Return it, but keep it out of both layers so
		// recovery is immediate.
		c.log.WarnContext(ctx, "upstream returned no titles, not caching",
			"type", string(typ))
		return titles, nil
	}

	if c.store != nil {
		if err := c.store.Set(ctx, typ, titles, c.ttl); err != nil {
			c.log.WarnContext(ctx, "persistent cache write failed", "type", string(typ), "error", err)
		}
	}
	c.memo[typ] = titles
	c.log.InfoContext(ctx, "cached upstream titles",
		"type", string(typ), "count", len(titles), "ttl", c.ttl.String())
	return titles, nil
}

// Warm refetches both resource types, bypassing every cache layer. Run it
// from a scheduled job so batch runs rarely pay the upstream round trip.
func (c *Cache) Warm(ctx context.Context) error {
	for _, typ := range []ResourceType{TypeAction, TypePetition} {
		if _, err := c.Get(ctx, typ, true); err != nil {
			return err
		}
	}
	return nil
}
