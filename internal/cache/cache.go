package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Cache defines the interface for caching operations
type Cache interface {
	// Get returns the value and whether the key was found
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value. An expiration of 0 uses the cache default.
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)

	Delete(ctx context.Context, key string)

	// DeleteByPrefix removes all keys with the given prefix
	DeleteByPrefix(ctx context.Context, prefix string)

	Flush(ctx context.Context)
}

// Key prefixes
const (
	PrefixTier          = "tier:v1:"
	PrefixBillingRecord = "billing_record:v1:"
	PrefixTenant        = "tenant:v1:"
)

// GenerateKey joins the params with a colon and appends them to the prefix
func GenerateKey(prefix string, params ...interface{}) string {
	parts := make([]string, len(params)+1)
	parts[0] = prefix

	for i, param := range params {
		parts[i+1] = fmt.Sprintf("%v", param)
	}

	return strings.Join(parts, ":")
}

// TierKey is the cache key of a tenant's current tier
func TierKey(tenantID string) string {
	return GenerateKey(PrefixTier, tenantID)
}
