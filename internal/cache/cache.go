package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"go.uber.org/zap"

	"github.com/discochess/codeassist/internal/sizeest"
	"github.com/discochess/codeassist/internal/stats"
)

// ErrInvalidConfig is returned by New when a bound is not positive.
var ErrInvalidConfig = errors.New("cache: invalid config")

// Config bounds a Cache.
type Config struct {
	// MaxEntries is the maximum number of entries. Must be > 0.
	MaxEntries int

	// MaxMemoryBytes is the estimated memory budget. Must be > 0.
	MaxMemoryBytes int64

	// DefaultTTL applies to entries stored without an explicit TTL.
	// Zero means such entries never expire.
	DefaultTTL time.Duration
}

func (c Config) validate() error {
	if c.MaxEntries <= 0 {
		return fmt.Errorf("%w: MaxEntries must be positive, got %d", ErrInvalidConfig, c.MaxEntries)
	}
	if c.MaxMemoryBytes <= 0 {
		return fmt.Errorf("%w: MaxMemoryBytes must be positive, got %d", ErrInvalidConfig, c.MaxMemoryBytes)
	}
	if c.DefaultTTL < 0 {
		return fmt.Errorf("%w: DefaultTTL must not be negative, got %s", ErrInvalidConfig, c.DefaultTTL)
	}
	return nil
}

// Entry is a cached value with its bookkeeping.
type Entry[V any] struct {
	Value          V
	CreatedAt      time.Time
	LastAccessedAt time.Time
	AccessCount    uint64
	SizeBytes      int64
	ExpiresAt      time.Time // zero => never expires
}

func (e *Entry[V]) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Cache is a TTL-aware LRU cache with an entry and memory budget.
// A Cache is safe for concurrent use by multiple goroutines.
type Cache[V any] struct {
	cfg       Config
	sizer     func(V) sizeest.Value
	collector stats.Collector
	logger    *zap.Logger
	now       func() time.Time

	mu     sync.Mutex
	order  *simplelru.LRU[string, *Entry[V]] // front is most recently used
	memory int64

	hits      int64
	misses    int64
	evictions int64
}

// New creates a cache whose values are sized with sizeest.Of.
func New[V any](cfg Config, opts ...Option) (*Cache[V], error) {
	return NewWithSizer(cfg, func(v V) sizeest.Value { return sizeest.Of(v) }, opts...)
}

// NewWithSizer creates a cache that describes values with sizer before
// estimating their size.
func NewWithSizer[V any](cfg Config, sizer func(V) sizeest.Value, opts ...Option) (*Cache[V], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cache[V]{
		cfg:       cfg,
		sizer:     sizer,
		collector: o.collector,
		logger:    o.logger,
		now:       o.now,
	}

	// Eviction is always driven by Set, so the list itself is sized one
	// above the bound and never drops entries on its own.
	order, err := simplelru.NewLRU[string, *Entry[V]](cfg.MaxEntries+1, func(_ string, e *Entry[V]) {
		c.memory -= e.SizeBytes
	})
	if err != nil {
		return nil, fmt.Errorf("creating recency list: %w", err)
	}
	c.order = order

	return c, nil
}

// Get returns the value stored under key.
// A hit refreshes the entry's recency; an expired entry is removed and
// reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	now := c.now()

	e, ok := c.order.Peek(key)
	if !ok {
		c.miss()
		return zero, false
	}
	if e.expired(now) {
		c.order.Remove(key)
		c.miss()
		c.publishSize()
		return zero, false
	}

	c.order.Get(key)
	e.LastAccessedAt = now
	e.AccessCount++
	c.hits++
	c.collector.IncCounter(stats.MetricCacheHits, 1)

	return e.Value, true
}

// Set stores value under key using the default TTL.
func (c *Cache[V]) Set(key string, value V) {
	var expiresAt time.Time
	if c.cfg.DefaultTTL > 0 {
		expiresAt = c.now().Add(c.cfg.DefaultTTL)
	}
	c.set(key, value, expiresAt)
}

// SetWithTTL stores value under key, expiring ttl from now.
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.set(key, value, c.now().Add(ttl))
}

func (c *Cache[V]) set(key string, value V, expiresAt time.Time) {
	size := sizeest.Estimate(c.sizer(value))

	c.mu.Lock()
	defer c.mu.Unlock()

	// Replacing a key is neither a hit nor an eviction.
	c.order.Remove(key)

	for c.order.Len() >= c.cfg.MaxEntries || c.memory+size > c.cfg.MaxMemoryBytes {
		evicted, _, ok := c.order.RemoveOldest()
		if !ok {
			// Nothing left to evict; store the oversized value anyway.
			c.logger.Debug("storing entry above memory budget",
				zap.String("key", key),
				zap.Int64("sizeBytes", size),
				zap.Int64("maxMemoryBytes", c.cfg.MaxMemoryBytes),
			)
			break
		}
		c.evictions++
		c.collector.IncCounter(stats.MetricCacheEvictions, 1)
		c.logger.Debug("evicted entry", zap.String("key", evicted))
	}

	now := c.now()
	c.order.Add(key, &Entry[V]{
		Value:          value,
		CreatedAt:      now,
		LastAccessedAt: now,
		SizeBytes:      size,
		ExpiresAt:      expiresAt,
	})
	c.memory += size
	c.publishSize()
}

// Delete removes key and reports whether it was present.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := c.order.Remove(key)
	if removed {
		c.publishSize()
	}
	return removed
}

// Clear removes every entry. Hit, miss and eviction counters are kept.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Purge()
	c.memory = 0
	c.publishSize()
}

// CleanupExpired removes all expired entries and returns how many were
// removed. Removals are not counted as evictions.
func (c *Cache[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, key := range c.order.Keys() {
		e, ok := c.order.Peek(key)
		if ok && e.expired(now) {
			c.order.Remove(key)
			removed++
		}
	}
	if removed > 0 {
		c.publishSize()
	}
	return removed
}

// RunJanitor calls CleanupExpired every interval until ctx is done.
func (c *Cache[V]) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.CleanupExpired(); n > 0 {
				c.logger.Debug("removed expired entries", zap.Int("count", n))
			}
		}
	}
}

// Inspect returns a copy of the entry stored under key without touching its
// recency, its access count or the hit/miss counters.
func (c *Cache[V]) Inspect(key string) (Entry[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.order.Peek(key)
	if !ok {
		return Entry[V]{}, false
	}
	return *e, true
}

// Keys returns the stored keys from least to most recently used.
func (c *Cache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Keys()
}

// Len returns the number of stored entries, including expired ones not yet
// purged.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns a snapshot of the cache counters and bounds.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Size:            c.order.Len(),
		MaxSize:         c.cfg.MaxEntries,
		MemoryUsedBytes: c.memory,
		MaxMemoryBytes:  c.cfg.MaxMemoryBytes,
		Hits:            c.hits,
		Misses:          c.misses,
		Evictions:       c.evictions,
	}
}

// miss must be called with c.mu held.
func (c *Cache[V]) miss() {
	c.misses++
	c.collector.IncCounter(stats.MetricCacheMisses, 1)
}

// publishSize must be called with c.mu held.
func (c *Cache[V]) publishSize() {
	c.collector.SetGauge(stats.MetricCacheSize, int64(c.order.Len()))
	c.collector.SetGauge(stats.MetricCacheMemory, c.memory)
}
