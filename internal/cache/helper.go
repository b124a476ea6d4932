package cache

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// StartCacheSpan opens a span under the request's Sentry hub. It returns
// nil when the context carries no hub.
func StartCacheSpan(ctx context.Context, cache, operation string, params map[string]interface{}) *sentry.Span {
	if sentry.GetHubFromContext(ctx) == nil {
		return nil
	}

	span := sentry.StartSpan(ctx, "cache."+cache+"."+operation)
	span.Description = "cache." + cache + "." + operation
	span.Op = "db.cache"
	span.SetData("cache", cache)
	span.SetData("operation", operation)
	for k, v := range params {
		span.SetData(k, v)
	}
	return span
}

// FinishSpan records whether the lookup hit and closes the span
func FinishSpan(span *sentry.Span, hit bool) {
	if span == nil {
		return
	}
	span.Status = sentry.SpanStatusOK
	span.SetData("cache.hit", hit)
	span.Finish()
}
