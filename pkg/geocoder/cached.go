package geocoder

import (
	"context"
	"time"

	"github.com/Payphone-Digital/devcamper/internal/constants"
	"github.com/Payphone-Digital/devcamper/pkg/cache"
	"github.com/Payphone-Digital/devcamper/pkg/logger"
)

type Cache interface {
	Get(ctx context.Context, address string) (*Location, bool)
	Set(ctx context.Context, address string, loc *Location, ttl time.Duration)
}

// MemoryCache keeps results in process.
type MemoryCache struct {
	items *cache.Cache[Location]
}

func NewMemoryCache(sweep time.Duration) *MemoryCache {
	return &MemoryCache{items: cache.New[Location](sweep)}
}

func (m *MemoryCache) Get(_ context.Context, address string) (*Location, bool) {
	loc, ok := m.items.Get(address)
	if !ok {
		return nil, false
	}
	return &loc, true
}

func (m *MemoryCache) Set(_ context.Context, address string, loc *Location, ttl time.Duration) {
	m.items.Set(address, *loc, ttl)
}

func (m *MemoryCache) Close() {
	m.items.Close()
}

// JSONStore is the subset of the redis client the cache needs.
type JSONStore interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// RedisCache shares results between instances. Store errors degrade to misses.
type RedisCache struct {
	store JSONStore
}

func NewRedisCache(store JSONStore) *RedisCache {
	return &RedisCache{store: store}
}

func (r *RedisCache) Get(ctx context.Context, address string) (*Location, bool) {
	var loc Location
	found, err := r.store.GetJSON(ctx, constants.CacheKeyGeocode+address, &loc)
	if err != nil {
		logger.WarnWithContext(ctx, "Geocode cache read failed").Err(err).Log()
		return nil, false
	}
	if !found {
		return nil, false
	}
	return &loc, true
}

func (r *RedisCache) Set(ctx context.Context, address string, loc *Location, ttl time.Duration) {
	if err := r.store.SetJSON(ctx, constants.CacheKeyGeocode+address, loc, ttl); err != nil {
		logger.WarnWithContext(ctx, "Geocode cache write failed").Err(err).Log()
	}
}

// Cached serves repeated lookups from a cache. Failures are not cached.
type Cached struct {
	next  Geocoder
	cache Cache
	ttl   time.Duration
}

func NewCached(next Geocoder, c Cache, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: c, ttl: ttl}
}

func (c *Cached) Geocode(ctx context.Context, address string) (*Location, error) {
	key := normalize(address)
	if loc, ok := c.cache.Get(ctx, key); ok {
		return loc, nil
	}

	loc, err := c.next.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}
	c.cache.Set(ctx, key, loc, c.ttl)
	return loc, nil
}
