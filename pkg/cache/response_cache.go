// Package cache holds the process-wide response cache that answers
// repeated single-turn questions without another provider round trip.
package cache

import (
	"strings"
	"sync"
	"time"
)

const (
	DefaultMaxEntries = 100
	DefaultTTL        = time.Hour
)

type entry struct {
	response string
	storedAt time.Time
}

// ResponseCache is a bounded key-to-response store. Expired entries are
// purged lazily on lookup; when the store is full the earliest-inserted
// entry is evicted (insertion order, not access order, so FIFO on
// capacity rather than a true LRU). Shared across concurrent requests: Get and
// Put are individually atomic, racing identical requests may both miss
// and both populate, last write wins.
type ResponseCache struct {
	mu         sync.Mutex
	entries    map[string]entry
	order      []string // insertion order, oldest first
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

type Option func(*ResponseCache)

// WithClock injects the time source. Tests use it to control expiry.
func WithClock(now func() time.Time) Option {
	return func(c *ResponseCache) {
		c.now = now
	}
}

func New(maxEntries int, ttl time.Duration, opts ...Option) *ResponseCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &ResponseCache{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key derives the cache key for a (model, query) pair. The query is
// lower-cased and trimmed so trivially different phrasings collide;
// distinct models never do.
func Key(model, query string) string {
	return model + ":" + strings.ToLower(strings.TrimSpace(query))
}

// Get returns the cached response, or ("", false) if the key was never
// stored or its entry has outlived the TTL. An expired hit is deleted as
// a side effect of the lookup.
func (c *ResponseCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.now().Sub(e.storedAt) > c.ttl {
		c.remove(key)
		return "", false
	}
	return e.response, true
}

// Put stores a response, evicting the earliest-inserted entry first when
// the store is at capacity. Overwriting an existing key keeps its
// original insertion position.
func (c *ResponseCache) Put(key, response string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.entries) >= c.maxEntries {
			c.evictOldest()
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = entry{
		response: response,
		storedAt: c.now(),
	}
}

// Len reports the number of currently stored entries, expired or not.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Cap reports the configured capacity.
func (c *ResponseCache) Cap() int {
	return c.maxEntries
}

func (c *ResponseCache) evictOldest() {
	for len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.entries[oldest]; ok {
			delete(c.entries, oldest)
			return
		}
	}
}

// remove deletes an entry and its slot in the insertion order.
// Caller holds the lock.
func (c *ResponseCache) remove(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
