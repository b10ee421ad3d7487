package stores

import (
	"sync"
	"time"
)

// ttlCache is a small expiring read cache over hot configuration rows
// (tier definitions, reaction-role entries). Writes through the store
// invalidate the affected key, so the TTL only bounds staleness caused
// by writers in other processes.
type ttlCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value   interface{}
	expires time.Time
}

func newTTLCache(ttl time.Duration) *ttlCache {
	return &ttlCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *ttlCache) get(key string) (interface{}, bool) {
	if c.ttl <= 0 {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

func (c *ttlCache) put(key string, value interface{}) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expires: time.Now().Add(c.ttl)}
}

func (c *ttlCache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
