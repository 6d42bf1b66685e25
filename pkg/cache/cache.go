// Package cache is a small in-process TTL map.
package cache

import (
	"sync"
	"time"
)

type Item[V any] struct {
	Value      V
	Expiration int64
}

type Cache[V any] struct {
	items map[string]Item[V]
	mu    sync.RWMutex
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// New starts a cache whose expired entries are swept every interval.
func New[V any](interval time.Duration) *Cache[V] {
	c := &Cache[V]{
		items: make(map[string]Item[V]),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	if interval > 0 {
		go c.startGC(interval)
	}
	return c
}

func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = Item[V]{
		Value:      value,
		Expiration: c.now().Add(ttl).UnixNano(),
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero V
	item, found := c.items[key]
	if !found {
		return zero, false
	}
	if c.now().UnixNano() > item.Expiration {
		return zero, false
	}
	return item.Value, true
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len counts entries, including expired ones not yet swept.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the sweeper.
func (c *Cache[V]) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache[V]) startGC(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache[V]) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now().UnixNano()
	for k, v := range c.items {
		if now > v.Expiration {
			delete(c.items, k)
		}
	}
}
