package pricing

import (
	"sync"
	"time"
)

type entry struct {
	price    float64
	storedAt time.Time
}

// Cache is a bounded in-memory price cache with a fixed time-to-live.
// Expiry is checked on read; when full, expired entries go first and then
// the oldest entry.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	entries map[string]entry
}

type CacheOption func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

func NewCache(ttl time.Duration, maxSize int, opts ...CacheOption) *Cache {
	if maxSize <= 0 {
		maxSize = 100
	}
	c := &Cache{
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		entries: make(map[string]entry, maxSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a fresh price for symbol.
func (c *Cache) Get(symbol string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[symbol]
	if !ok {
		return 0, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, symbol)
		return 0, false
	}
	return e.price, true
}

func (c *Cache) Set(symbol string, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[symbol]; !exists && len(c.entries) >= c.maxSize {
		c.evictLocked(now)
	}
	c.entries[symbol] = entry{price: price, storedAt: now}
}

func (c *Cache) evictLocked(now time.Time) {
	var (
		oldestKey string
		oldestAt  time.Time
	)
	for k, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			delete(c.entries, k)
			continue
		}
		if oldestKey == "" || e.storedAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.storedAt
		}
	}
	if len(c.entries) >= c.maxSize && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
