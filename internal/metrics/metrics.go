// Package metrics defines the prometheus collectors for the ledger, the
// cleanup scheduler and event delivery. A nil *Metrics records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "splitledger"

// Metrics holds every collector the service exports.
type Metrics struct {
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	retries           *prometheus.CounterVec
	splitsRebalanced  prometheus.Counter
	groupsPurged      prometheus.Counter
	purgeFailures     prometheus.Counter
	cleanupRuns       *prometheus.CounterVec
	eventsEmitted     *prometheus.CounterVec
	eventsDropped     prometheus.Counter
	eventFailures     *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Ledger operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		operationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_operation_duration_seconds",
			Help:      "Ledger operation latency, including transaction retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		retries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_transaction_retries_total",
			Help:      "Transactions retried after a concurrent modification.",
		}, []string{"operation"}),
		splitsRebalanced: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_splits_rebalanced_total",
			Help:      "Expense splits rewritten by redistribution.",
		}),
		groupsPurged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_groups_purged_total",
			Help:      "Soft-deleted groups purged after the retention window.",
		}),
		purgeFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_purge_failures_total",
			Help:      "Per-group purge transactions that rolled back.",
		}),
		cleanupRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_runs_total",
			Help:      "Cleanup scheduler runs by outcome.",
		}, []string{"outcome"}),
		eventsEmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_emitted_total",
			Help:      "Events handed to the event sink.",
		}, []string{"type"}),
		eventsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events dropped because the dispatch queue was full.",
		}),
		eventFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_delivery_failures_total",
			Help:      "Event deliveries that returned an error.",
		}, []string{"type"}),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveOperation records one ledger operation that started at start.
func (m *Metrics) ObserveOperation(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome(err)).Inc()
	m.operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// TransactionRetried counts one retry of op.
func (m *Metrics) TransactionRetried(op string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(op).Inc()
}

// SplitsRebalanced counts rewritten splits.
func (m *Metrics) SplitsRebalanced(n int) {
	if m == nil {
		return
	}
	m.splitsRebalanced.Add(float64(n))
}

// PurgeCompleted records the outcome of one purge sweep.
func (m *Metrics) PurgeCompleted(purged, failed int) {
	if m == nil {
		return
	}
	m.groupsPurged.Add(float64(purged))
	m.purgeFailures.Add(float64(failed))
}

// CleanupRun records one scheduler run: "ok", "error" or "skipped".
func (m *Metrics) CleanupRun(result string) {
	if m == nil {
		return
	}
	m.cleanupRuns.WithLabelValues(result).Inc()
}

// EventEmitted counts an event handed to the sink.
func (m *Metrics) EventEmitted(eventType string) {
	if m == nil {
		return
	}
	m.eventsEmitted.WithLabelValues(eventType).Inc()
}

// EventDropped counts an event lost to a full queue.
func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}

// EventFailed counts a failed delivery.
func (m *Metrics) EventFailed(eventType string) {
	if m == nil {
		return
	}
	m.eventFailures.WithLabelValues(eventType).Inc()
}
