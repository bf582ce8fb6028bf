// Package cache memoizes the answers of slow optional queries (smartctl
// power-on hours, ATA temperature) by drive serial, so every path of a
// multipathed drive costs one query.
package cache

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Defaults used when the config leaves the cache section out. Temperature
// readings go stale quickly, so the TTL stays short of a polling interval.
const (
	DefaultSize = 256
	DefaultTTL  = 5 * time.Minute
)

// Key namespaces, one per memoized query.
const (
	PowerOnHours = "poh"
	Temperature  = "temp"
)

// Cache is an LRU of string answers keyed by namespace and serial. It is
// safe for concurrent use.
type Cache struct {
	lru    *expirable.LRU[string, string]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates a cache holding at most size entries, each living ttl.
func New(size int, ttl time.Duration) *Cache {
	return &Cache{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

func key(ns, serial string) string { return ns + ":" + serial }

// Get returns the memoized answer. A nil cache or empty serial always misses.
func (c *Cache) Get(ns, serial string) (string, bool) {
	if c == nil || serial == "" {
		return "", false
	}
	v, ok := c.lru.Get(key(ns, serial))
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

func (c *Cache) Set(ns, serial, value string) {
	if c == nil || serial == "" {
		return
	}
	c.lru.Add(key(ns, serial), value)
}

// Stats reports hits and misses since creation.
func (c *Cache) Stats() (hits, misses uint64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
