package cache

import (
	"context"
	"testing"
	"time"

	"github.com/flexprice/tiersync/internal/config"
	"github.com/flexprice/tiersync/internal/logger"
	"github.com/stretchr/testify/assert"
)

func newTestCache(enabled bool) *InMemoryCache {
	cfg := config.GetDefaultConfig()
	cfg.Cache.Enabled = enabled
	cfg.Billing.ReadCacheTTL = time.Minute
	return NewInMemoryCache(cfg, logger.NewNoop())
}

func TestInMemoryCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(true)

	c.Set(ctx, TierKey("t1"), "pro", 0)
	v, ok := c.Get(ctx, TierKey("t1"))
	assert.True(t, ok)
	assert.Equal(t, "pro", v)

	c.Delete(ctx, TierKey("t1"))
	_, ok = c.Get(ctx, TierKey("t1"))
	assert.False(t, ok)
}

func TestInMemoryCache_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(true)

	c.Set(ctx, TierKey("t1"), "pro", 0)
	c.Set(ctx, TierKey("t2"), "free", 0)
	c.Set(ctx, GenerateKey(PrefixTenant, "t1"), "x", 0)

	c.DeleteByPrefix(ctx, PrefixTier)

	_, ok := c.Get(ctx, TierKey("t1"))
	assert.False(t, ok)
	_, ok = c.Get(ctx, TierKey("t2"))
	assert.False(t, ok)
	_, ok = c.Get(ctx, GenerateKey(PrefixTenant, "t1"))
	assert.True(t, ok)
}

func TestInMemoryCache_Disabled(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(false)

	c.Set(ctx, TierKey("t1"), "pro", 0)
	_, ok := c.Get(ctx, TierKey("t1"))
	assert.False(t, ok)
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "tier:v1::t1", TierKey("t1"))
	assert.Equal(t, "tenant:v1::a:2", GenerateKey(PrefixTenant, "a", 2))
}
