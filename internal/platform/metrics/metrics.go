package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	WebhooksReceived  prometheus.Counter
	WebhooksRejected  *prometheus.CounterVec
	ItemsProcessed    prometheus.Counter
	ItemsDeadLettered prometheus.Counter
	ContactsCreated   prometheus.Counter
	LookupCacheHits   *prometheus.CounterVec
	LookupFetches     prometheus.Counter
	ProcessingSeconds prometheus.Histogram
}

// New creates and registers all Prometheus metrics. Call once per process;
// components treat a nil *Metrics as "metrics disabled".
func New() *Metrics {
	return &Metrics{
		WebhooksReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hookbridge_webhooks_received_total",
			Help: "Webhook deliveries accepted onto the queue",
		}),
		WebhooksRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hookbridge_webhooks_rejected_total",
			Help: "Webhook deliveries rejected before enqueue, by fault category",
		}, []string{"category"}),
		ItemsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hookbridge_queue_items_processed_total",
			Help: "Queue items processed successfully",
		}),
		ItemsDeadLettered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hookbridge_queue_items_dead_lettered_total",
			Help: "Queue items moved to the dead-letter queue",
		}),
		ContactsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hookbridge_contacts_created_total",
			Help: "New contact records created by the resolver",
		}),
		LookupCacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hookbridge_lookup_cache_hits_total",
			Help: "Title lookup cache hits, by layer",
		}, []string{"layer"}),
		LookupFetches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hookbridge_lookup_fetches_total",
			Help: "Title lookups that went to the upstream API",
		}),
		ProcessingSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "hookbridge_item_processing_seconds",
			Help:    "Wall-clock time spent processing one queue item",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// ObserveProcessing records one item's processing duration.
func (m *Metrics) ObserveProcessing(d time.Duration) {
	if m == nil {
		return
	}
	m.ProcessingSeconds.Observe(d.Seconds())
}

// IncCacheHit records a cache hit on the given layer ("memo" or "persistent").
func (m *Metrics) IncCacheHit(layer string) {
	if m == nil {
		return
	}
	m.LookupCacheHits.WithLabelValues(layer).Inc()
}

// IncFetch records an upstream fetch attempt.
func (m *Metrics) IncFetch() {
	if m == nil {
		return
	}
	m.LookupFetches.Inc()
}

// IncRejected records a pre-enqueue rejection.
func (m *Metrics) IncRejected(category string) {
	if m == nil {
		return
	}
	m.WebhooksRejected.WithLabelValues(category).Inc()
}
