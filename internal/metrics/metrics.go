package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tiersync"

// Metrics holds the service's Prometheus collectors on a private registry.
// All methods are safe on a nil receiver, so tests may omit metrics.
type Metrics struct {
	registry *prometheus.Registry

	reconciliations     *prometheus.CounterVec
	reconcileDuration   *prometheus.HistogramVec
	tierChanges         *prometheus.CounterVec
	versionConflicts    prometheus.Counter
	webhookRequests     *prometheus.CounterVec
	webhookDuration     *prometheus.HistogramVec
	providerErrors      *prometheus.CounterVec
	sweepTenants        *prometheus.CounterVec
	asyncDispatchErrors prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		reconciliations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Reconciliation passes by trigger, deciding rule and outcome.",
		}, []string{"trigger", "source", "outcome"}),
		reconcileDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconciliation_duration_seconds",
			Help:      "Reconciliation latency in seconds, provider calls included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"trigger"}),
		tierChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_changes_total",
			Help:      "Persisted tier transitions.",
		}, []string{"from", "to"}),
		versionConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_version_conflicts_total",
			Help:      "Conditional billing record writes that lost a race.",
		}),
		webhookRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "requests_total",
			Help:      "Billing provider webhook requests by event type and HTTP status.",
		}, []string{"event_type", "status"}),
		webhookDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "duration_seconds",
			Help:      "Webhook processing duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
		providerErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "errors_total",
			Help:      "Failed billing provider calls by operation and class.",
		}, []string{"operation", "class"}),
		sweepTenants: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "tenants_total",
			Help:      "Tenants visited by the periodic sweep by outcome.",
		}, []string{"outcome"}),
		asyncDispatchErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "async_dispatch_failures_total",
			Help:      "Reconciliation requests that could not be published and ran inline.",
		}),
	}
}

// Handler exposes the registry for scraping
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Reconciliation(trigger, source, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.reconciliations.WithLabelValues(trigger, source, outcome).Inc()
	m.reconcileDuration.WithLabelValues(trigger).Observe(took.Seconds())
}

func (m *Metrics) TierChange(from, to string) {
	if m == nil {
		return
	}
	m.tierChanges.WithLabelValues(from, to).Inc()
}

func (m *Metrics) VersionConflict() {
	if m == nil {
		return
	}
	m.versionConflicts.Inc()
}

func (m *Metrics) Webhook(eventType string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.webhookRequests.WithLabelValues(eventType, http.StatusText(status)).Inc()
	m.webhookDuration.WithLabelValues(eventType).Observe(took.Seconds())
}

func (m *Metrics) ProviderError(operation, class string) {
	if m == nil {
		return
	}
	m.providerErrors.WithLabelValues(operation, class).Inc()
}

func (m *Metrics) SweepTenant(outcome string) {
	if m == nil {
		return
	}
	m.sweepTenants.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AsyncDispatchFailure() {
	if m == nil {
		return
	}
	m.asyncDispatchErrors.Inc()
}
