package cache

import (
	"context"
	"strings"
	"time"

	"github.com/flexprice/tiersync/internal/config"
	"github.com/flexprice/tiersync/internal/logger"
	goCache "github.com/patrickmn/go-cache"
)

// DefaultExpiration is used when the caller passes a zero expiration
const DefaultExpiration = 30 * time.Second

// DefaultCleanupInterval is how often expired items are removed from the cache
const DefaultCleanupInterval = 5 * time.Minute

// InMemoryCache implements Cache using github.com/patrickmn/go-cache.
// When caching is disabled every read misses and writes are dropped.
type InMemoryCache struct {
	cache   *goCache.Cache
	enabled bool
}

var _ Cache = (*InMemoryCache)(nil)

// NewInMemoryCache builds the process local cache from config
func NewInMemoryCache(cfg *config.Configuration, log *logger.Logger) *InMemoryCache {
	expiration := cfg.Billing.ReadCacheTTL
	if expiration <= 0 {
		expiration = DefaultExpiration
	}

	log.Infow("initializing in-memory cache",
		"enabled", cfg.Cache.Enabled,
		"default_expiration", expiration.String(),
	)

	return &InMemoryCache{
		cache:   goCache.New(expiration, DefaultCleanupInterval),
		enabled: cfg.Cache.Enabled,
	}
}

// NewCache exposes the in-memory cache through the Cache interface
func NewCache(c *InMemoryCache) Cache {
	return c
}

func (c *InMemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	if !c.enabled {
		return nil, false
	}
	span := StartCacheSpan(ctx, "inmemory", "get", map[string]interface{}{"key": key})

	v, ok := c.cache.Get(key)
	FinishSpan(span, ok)
	return v, ok
}

func (c *InMemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) {
	if !c.enabled {
		return
	}
	if expiration == 0 {
		expiration = goCache.DefaultExpiration
	}
	c.cache.Set(key, value, expiration)
}

// Delete runs even when caching is disabled so a toggled cache never
// serves an entry that outlived its invalidation.
func (c *InMemoryCache) Delete(_ context.Context, key string) {
	c.cache.Delete(key)
}

func (c *InMemoryCache) DeleteByPrefix(_ context.Context, prefix string) {
	for k := range c.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			c.cache.Delete(k)
		}
	}
}

func (c *InMemoryCache) Flush(_ context.Context) {
	c.cache.Flush()
}
