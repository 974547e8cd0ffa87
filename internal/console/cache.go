package console

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type cacheEntry struct {
	value   any
	fetched time.Time
}

// Cache holds the latest fetched snapshot per key until it is invalidated or
// older than the TTL. Concurrent misses for one key share a single fetch.
type Cache struct {
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]cacheEntry
	gen     map[string]uint64
}

// NewCache returns a cache. A zero ttl keeps entries until invalidated.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
		gen:     make(map[string]uint64),
	}
}

// Invalidate drops the given keys so the next read refetches.
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
		c.gen[k]++
		c.group.Forget(k)
	}
}

func (c *Cache) lookup(key string) (any, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if ok && c.ttl > 0 && c.now().Sub(e.fetched) > c.ttl {
		ok = false
	}
	return e.value, c.gen[key], ok
}

// store saves value unless the key was invalidated while the fetch ran.
func (c *Cache) store(key string, gen uint64, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen[key] != gen {
		return
	}
	c.entries[key] = cacheEntry{value: value, fetched: c.now()}
}

// cached returns the cached value for key or fetches it.
func cached[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	if v, _, ok := c.lookup(key); ok {
		return v.(T), nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		cur, gen, ok := c.lookup(key)
		if ok {
			return cur, nil
		}
		val, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, gen, val)
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
