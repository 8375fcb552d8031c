// Package memcache is the short-TTL in-process cache tier. It holds hot query
// results in a bounded LRU; entries expire by TTL and are evicted lazily on
// read.
package memcache

import (
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/statlinehq/statline/internal/stats/common/clock"
	"github.com/statlinehq/statline/internal/stats/domain"
)

type entry struct {
	table     domain.Table
	expiresAt time.Time
}

// Cache is a TTL-aware LRU of query result tables keyed by cache key.
type Cache struct {
	lru *lru.Cache[string, entry]
	clk clock.Clock
}

// New returns a Cache bounded to size entries. A nil clk defaults to the
// real clock.
func New(size int, clk clock.Clock) (*Cache, error) {
	if size <= 0 {
		return nil, errors.New("memcache size must be positive")
	}
	backing, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Cache{lru: backing, clk: clk}, nil
}

// Get returns the cached table for key if present and unexpired. Expired
// entries are removed on the way out.
func (c *Cache) Get(key string) (domain.Table, bool) {
	e, found := c.lru.Get(key)
	if !found {
		return domain.Table{}, false
	}
	if c.clk.Now().After(e.expiresAt) {
		c.lru.Remove(key)
		return domain.Table{}, false
	}
	return e.table, true
}

// Set stores table under key for ttl. A non-positive ttl stores nothing,
// since the entry would be born expired.
func (c *Cache) Set(key string, table domain.Table, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.lru.Add(key, entry{table: table, expiresAt: c.clk.Now().Add(ttl)})
}

// Delete removes the entry for key.
func (c *Cache) Delete(key string) {
	c.lru.Remove(key)
}

// Len returns the number of entries currently stored, including any that
// have expired but not yet been evicted.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.lru.Purge()
}
