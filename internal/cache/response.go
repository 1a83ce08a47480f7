// Package cache implements the TTL response cache sitting under the
// request coordinator.
package cache

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultTTL bounds cached responses when no TTL is configured.
const DefaultTTL = 5 * time.Minute

type entry struct {
	data     json.RawMessage
	storedAt time.Time
}

// ResponseCache is a TTL-bounded cache keyed by (method, endpoint, body).
// Expired entries are evicted lazily on access; there is no background sweep.
type ResponseCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
	total   *prometheus.CounterVec
}

// New creates a cache. total is a counter vec with label "result"
// ("hit"/"miss"), passed explicitly; it can be nil.
func New(ttl time.Duration, total *prometheus.CounterVec) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResponseCache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
		total:   total,
	}
}

// WithClock overrides the time source, for tests.
func (c *ResponseCache) WithClock(now func() time.Time) *ResponseCache {
	c.now = now
	return c
}

// Key derives the cache key for a request. A nil body serializes as "{}" so
// that "no body" and "empty body" collapse to the same key.
func Key(method, endpoint string, body any) string {
	serialized := "{}"
	if body != nil {
		if b, err := json.Marshal(body); err == nil {
			serialized = string(b)
		}
	}
	return method + ":" + endpoint + ":" + serialized
}

// Get returns the cached value iff it is present and no older than the TTL.
// An entry aged exactly TTL still counts as a hit. Expired entries are
// removed on the way out, so absence and expiry are indistinguishable to
// the caller.
func (c *ResponseCache) Get(key string) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		c.count("miss")
		return nil, false
	}
	if c.now().Sub(e.storedAt) > c.ttl {
		delete(c.entries, key)
		c.count("miss")
		return nil, false
	}
	c.count("hit")
	return e.data, true
}

// Set unconditionally overwrites the entry, stamping the current time.
func (c *ResponseCache) Set(key string, data json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{data: data, storedAt: c.now()}
}

// Clear deletes every entry whose key contains pattern and returns how many
// were removed. Used to invalidate a whole resource class after a mutation.
func (c *ResponseCache) Clear(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k := range c.entries {
		if strings.Contains(k, pattern) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// ClearAll drops every entry.
func (c *ResponseCache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len reports the number of live entries, including not-yet-evicted
// expired ones.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ResponseCache) count(result string) {
	if c.total != nil {
		c.total.WithLabelValues(result).Inc()
	}
}
