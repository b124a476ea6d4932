package middleware

import (
	"context"

	"github.com/flexprice/tiersync/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/grafana/pyroscope-go"
)

// PyroscopeMiddleware labels the profile samples of each request with its route
func PyroscopeMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	if !cfg.Pyroscope.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		labels := pyroscope.Labels("method", c.Request.Method, "route", route)
		if tenantID := c.Param("tenant_id"); tenantID != "" {
			labels = pyroscope.Labels("method", c.Request.Method, "route", route, "tenant_id", tenantID)
		}

		pyroscope.TagWrapper(context.Background(), labels, func(context.Context) {
			c.Next()
		})
	}
}
