package middleware

import (
	"sync"
	"time"

	"github.com/flexprice/tiersync/internal/config"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// TenantRateLimiter keeps one token bucket per tenant
type TenantRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewTenantRateLimiter(perMinute, burst int) *TenantRateLimiter {
	return &TenantRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(max(perMinute, 1))),
		burst:    max(burst, 1),
	}
}

func (l *TenantRateLimiter) Allow(tenantID string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[tenantID]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[tenantID] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}

// SyncRateLimitMiddleware bounds how often one tenant can force a sync.
// It keys on the tenant being synced, so operators share the tenant's budget.
func SyncRateLimitMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	limiter := NewTenantRateLimiter(cfg.Billing.Sync.RatePerMinute, cfg.Billing.Sync.Burst)

	return func(c *gin.Context) {
		tenantID := c.Param("tenant_id")
		if tenantID == "" {
			tenantID = types.GetTenantID(c.Request.Context())
		}

		if !limiter.Allow(tenantID) {
			_ = c.Error(ierr.NewError("sync rate limit exceeded").
				WithHint("Too many sync requests, please retry shortly").
				WithReportableDetails(map[string]any{"tenant_id": tenantID}).
				Mark(ierr.ErrRateLimited))
			c.Abort()
			return
		}
		c.Next()
	}
}
