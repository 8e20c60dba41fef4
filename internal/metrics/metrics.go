package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the instrumentation of the sync core. A nil *Metrics is
// valid and records nothing, so tests and embedders can opt out.
type Metrics struct {
	EventsProcessed  *prometheus.CounterVec
	Batches          prometheus.Counter
	BatchEntities    prometheus.Counter
	BatchDuration    prometheus.Histogram
	SyncRetries      prometheus.Counter
	ListenerFailures *prometheus.CounterVec
}

// New registers the sync-core collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "driftchat",
			Name:      "events_processed_total",
			Help:      "Events processed by the handler, by event type.",
		}, []string{"type"}),
		Batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "driftchat",
			Name:      "batches_total",
			Help:      "Event batches committed to the cache.",
		}),
		BatchEntities: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "driftchat",
			Name:      "batch_entities_written_total",
			Help:      "Entities written by batch commits.",
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "driftchat",
			Name:      "batch_duration_seconds",
			Help:      "Wall time of one batch read-mutate-commit cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		SyncRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "driftchat",
			Name:      "sync_retries_total",
			Help:      "Entities resubmitted by the background sync.",
		}),
		ListenerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "driftchat",
			Name:      "listener_failures_total",
			Help:      "Mutation listener reconciliations that ended in failure.",
		}, []string{"listener", "kind"}),
	}

	reg.MustRegister(
		m.EventsProcessed,
		m.Batches,
		m.BatchEntities,
		m.BatchDuration,
		m.SyncRetries,
		m.ListenerFailures,
	)
	return m
}

// ObserveEvent counts one processed event. Safe on a nil receiver.
func (m *Metrics) ObserveEvent(eventType string) {
	if m == nil {
		return
	}
	m.EventsProcessed.WithLabelValues(eventType).Inc()
}

// ObserveBatch records one committed batch. Safe on a nil receiver.
func (m *Metrics) ObserveBatch(entities int, seconds float64) {
	if m == nil {
		return
	}
	m.Batches.Inc()
	m.BatchEntities.Add(float64(entities))
	m.BatchDuration.Observe(seconds)
}

// ObserveRetry counts one resubmitted entity. Safe on a nil receiver.
func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.SyncRetries.Inc()
}

// ObserveListenerFailure counts a failed reconciliation. Safe on a nil
// receiver.
func (m *Metrics) ObserveListenerFailure(listener, kind string) {
	if m == nil {
		return
	}
	m.ListenerFailures.WithLabelValues(listener, kind).Inc()
}
