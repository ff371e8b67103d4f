// Package infra provides shared infrastructure used across the application:
// the result cache, its Redis-backed variant and cache key derivation.
package infra

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultTTL is the cache lifetime used when none is configured.
const DefaultTTL = 15 * time.Minute

// --- In-memory TTL cache ---

// entry is one cache slot. It is expired once now - createdAt > ttl.
type entry[T any] struct {
	value     T
	createdAt time.Time
	ttl       time.Duration
}

func (e entry[T]) expired(now time.Time) bool {
	return now.Sub(e.createdAt) > e.ttl
}

// Cache is a thread-safe in-memory cache with per-entry TTL. Expired entries
// are evicted lazily by the next Get, Has or RemainingTTL on their key;
// SweepExpired evicts them all at once.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]entry[T]
	ttl     time.Duration
	now     func() time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	now func() time.Time
}

// WithClock sets the clock used for expiry. Tests use it to advance time.
func WithClock(now func() time.Time) CacheOption {
	return func(o *cacheOptions) { o.now = now }
}

// NewCache creates a cache with the given default TTL. A non-positive ttl
// uses DefaultTTL.
func NewCache[T any](ttl time.Duration, opts ...CacheOption) *Cache[T] {
	o := cacheOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[T]{
		entries: make(map[string]entry[T]),
		ttl:     ttl,
		now:     o.now,
	}
}

// TTL returns the default TTL.
func (c *Cache[T]) TTL() time.Duration { return c.ttl }

// lookup returns the live entry for key, deleting it if expired.
// Must be called with mu held.
func (c *Cache[T]) lookup(key string) (entry[T], bool) {
	e, ok := c.entries[key]
	if !ok {
		return e, false
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		return entry[T]{}, false
	}
	return e, true
}

// Get retrieves a value. It returns the zero value and false if the key is
// absent or expired.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lookup(key)
	return e.value, ok
}

// Set stores a value with the default TTL.
func (c *Cache[T]) Set(key string, value T) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL. A non-positive ttl uses the
// default.
func (c *Cache[T]) SetWithTTL(key string, value T, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.mu.Lock()
	c.entries[key] = entry[T]{value: value, createdAt: c.now(), ttl: ttl}
	c.mu.Unlock()
}

// Has reports whether key holds a live value.
func (c *Cache[T]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.lookup(key)
	return ok
}

// RemainingTTL returns how long key stays live.
func (c *Cache[T]) RemainingTTL(key string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lookup(key)
	if !ok {
		return 0, false
	}
	return e.ttl - c.now().Sub(e.createdAt), true
}

// Delete removes a key.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes all entries.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry[T])
	c.mu.Unlock()
}

// SweepExpired removes every expired entry and returns how many it removed.
func (c *Cache[T]) SweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// RunSweeper calls SweepExpired every interval until ctx is done.
func (c *Cache[T]) RunSweeper(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.SweepExpired(); n > 0 {
				logger.Debug("cache sweep", "removed", n, "remaining", c.Len())
			}
		}
	}
}

// --- Store adapters ---

// Store is the result cache as seen by the pipeline: a keyed TTL store that
// may live in process or in Redis. Failures read as misses.
type Store[T any] interface {
	Load(ctx context.Context, key string) (T, bool)
	Save(ctx context.Context, key string, value T, ttl time.Duration)
	Remove(ctx context.Context, key string)
}

// Load implements Store.
func (c *Cache[T]) Load(_ context.Context, key string) (T, bool) { return c.Get(key) }

// Save implements Store.
func (c *Cache[T]) Save(_ context.Context, key string, value T, ttl time.Duration) {
	c.SetWithTTL(key, value, ttl)
}

// Remove implements Store.
func (c *Cache[T]) Remove(_ context.Context, key string) { c.Delete(key) }
