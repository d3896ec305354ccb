// Package cache provides the bounded-lifetime key/value store used to avoid
// redundant provider calls.
package cache

import (
	"sync"
	"time"

	"github.com/newthinker/folio/internal/core"
)

// DefaultQuoteTTL is how long a fetched quote is served from cache.
const DefaultQuoteTTL = 5 * time.Minute

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// TTL is a string-keyed store whose entries expire a fixed duration after
// they were written. Expired entries are dropped on the next read of their key.
type TTL[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a TTL store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock, for deterministic expiry in tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New creates a TTL store.
func New[V any](ttl time.Duration, opts ...Option) *TTL[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if ttl <= 0 {
		ttl = DefaultQuoteTTL
	}
	return &TTL[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		now:     o.now,
	}
}

// Get returns the value for key if it was stored less than ttl ago.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, replacing any previous entry.
func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, storedAt: c.now()}
}

// Delete removes key.
func (c *TTL[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of entries, including ones not yet evicted.
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// TTL returns the configured lifetime.
func (c *TTL[V]) TTL() time.Duration {
	return c.ttl
}

// QuoteCache maps symbol to the last successfully fetched quote.
type QuoteCache struct {
	store *TTL[core.Quote]
}

// NewQuoteCache creates a quote cache with the given lifetime.
func NewQuoteCache(ttl time.Duration, opts ...Option) *QuoteCache {
	return &QuoteCache{store: New[core.Quote](ttl, opts...)}
}

// Get returns the cached quote for symbol while it is fresh.
func (c *QuoteCache) Get(symbol string) (core.Quote, bool) {
	return c.store.Get(symbol)
}

// Put caches q under its symbol. Invalid quotes are never stored.
func (c *QuoteCache) Put(q core.Quote) bool {
	if !q.IsValid() {
		return false
	}
	c.store.Set(q.Symbol, q)
	return true
}

// Len returns the number of cached symbols.
func (c *QuoteCache) Len() int {
	return c.store.Len()
}
