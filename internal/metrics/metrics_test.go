package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.Reconciliation("manual_sync", "provider", "changed", 20*time.Millisecond)
	m.Reconciliation("manual_sync", "provider", "changed", 10*time.Millisecond)
	m.Webhook("invoice.paid", http.StatusOK, time.Millisecond)
	m.ProviderError("list_subscriptions", "unavailable")
	m.VersionConflict()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.reconciliations.WithLabelValues("manual_sync", "provider", "changed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhookRequests.WithLabelValues("invoice.paid", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.providerErrors.WithLabelValues("list_subscriptions", "unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.versionConflicts))
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Reconciliation("sweep", "cached", "error", time.Second)
		m.TierChange("free", "pro")
		m.SweepTenant("failed")
		m.AsyncDispatchFailure()
	})
}
