package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Source tells where a LoadingCache value came from.
type Source int

const (
	// SourceHit is a fresh cached value.
	SourceHit Source = iota
	// SourceLoaded is a value fetched by this or a concurrent call.
	SourceLoaded
	// SourceStale is an expired value served because the loader failed.
	SourceStale
)

func (s Source) String() string {
	switch s {
	case SourceHit:
		return "hit"
	case SourceLoaded:
		return "miss"
	case SourceStale:
		return "stale"
	}
	return "unknown"
}

// DefaultFailureTTL is how long a failed load is remembered before the
// loader is tried again.
const DefaultFailureTTL = time.Minute

// LoadFunc fetches the value for a key.
type LoadFunc[V any] func(ctx context.Context) (V, error)

// LoadingCache wraps an LRUCache with single-flight loading: concurrent
// misses on the same key share one LoadFunc invocation.
//
// A failed load is remembered for the failure TTL. Calls inside that window
// get the stale value or the remembered error without invoking the loader.
type LoadingCache[V any] struct {
	entries    *LRUCache[string, V]
	group      singleflight.Group
	failures   map[string]failedLoad
	ttl        time.Duration
	failureTTL time.Duration
	mu         sync.Mutex
}

type failedLoad struct {
	until time.Time
	err   error
}

// NewLoadingCache creates a loading cache whose entries live for ttl.
func NewLoadingCache[V any](capacity int, ttl time.Duration) *LoadingCache[V] {
	return &LoadingCache[V]{
		entries:    NewLRUCache[string, V](capacity, ttl),
		failures:   make(map[string]failedLoad),
		ttl:        ttl,
		failureTTL: DefaultFailureTTL,
	}
}

// SetFailureTTL changes how long a failed load suppresses new loads.
// A non-positive d disables failure memory.
func (c *LoadingCache[V]) SetFailureTTL(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureTTL = d
}

// Entries exposes the underlying cache.
func (c *LoadingCache[V]) Entries() *LRUCache[string, V] {
	return c.entries
}

// GetOrLoad returns the cached value for key, loading it on a miss.
//
// When the load fails and an expired value is still resident, the stale
// value is returned with SourceStale and a nil error.
func (c *LoadingCache[V]) GetOrLoad(ctx context.Context, key string, load LoadFunc[V]) (V, Source, error) {
	if v, ok := c.entries.Get(key); ok {
		return v, SourceHit, nil
	}
	if err := c.recentFailure(key); err != nil {
		return c.fallback(key, err)
	}

	// The load outlives any single caller: others may be waiting on it.
	loadCtx := context.WithoutCancel(ctx)
	res, err, _ := c.group.Do(key, func() (any, error) {
		// A flight that finished between our Get and Do already filled the cache.
		if v, ok := c.entries.Get(key); ok {
			return v, nil
		}
		v, err := load(loadCtx)
		if err != nil {
			c.rememberFailure(key, err)
			return nil, err
		}
		c.entries.Set(key, v, c.ttl)
		c.forgetFailure(key)
		return v, nil
	})
	if err != nil {
		return c.fallback(key, err)
	}
	return res.(V), SourceLoaded, nil
}

// Invalidate drops key so the next GetOrLoad reloads it.
func (c *LoadingCache[V]) Invalidate(key string) {
	c.entries.Remove(key)
	c.forgetFailure(key)
}

func (c *LoadingCache[V]) fallback(key string, err error) (V, Source, error) {
	if stale, _, ok := c.entries.Peek(key); ok {
		slog.Warn("cache: load failed, serving stale value", "key", key, "error", err)
		return stale, SourceStale, nil
	}
	var zero V
	return zero, SourceLoaded, err
}

func (c *LoadingCache[V]) recentFailure(key string) error {
	now := c.entries.clock()
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.failures[key]
	if !ok {
		return nil
	}
	if !now.Before(f.until) {
		delete(c.failures, key)
		return nil
	}
	return f.err
}

func (c *LoadingCache[V]) rememberFailure(key string, err error) {
	now := c.entries.clock()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failureTTL <= 0 {
		return
	}
	c.failures[key] = failedLoad{until: now.Add(c.failureTTL), err: err}
}

func (c *LoadingCache[V]) forgetFailure(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.failures, key)
}
