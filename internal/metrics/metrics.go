// Package metrics exposes Prometheus collectors for the pipeline.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Task outcome labels.
const (
	OutcomeWritten   = "written"
	OutcomeRejected  = "rejected"
	OutcomeMalformed = "malformed"
	OutcomeFailed    = "failed"
)

// Fetch attempt classification labels.
const (
	FetchSuccess   = "success"
	FetchTerminal  = "terminal"
	FetchTransient = "transient"
)

var (
	scoutTasksTotal         *prometheus.CounterVec
	scoutFetchAttemptsTotal *prometheus.CounterVec
	scoutRowsWrittenTotal   prometheus.Counter
	scoutActiveWorkers      prometheus.Gauge
	scoutBackoffSeconds     prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		scoutTasksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_tasks_total",
				Help: "Postal code tasks processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		scoutFetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_fetch_attempts_total",
				Help: "Upstream fetch attempts, labeled by classification.",
			},
			[]string{"result"},
		)

		scoutRowsWrittenTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scout_rows_written_total",
				Help: "Rows appended to the output ledger.",
			},
		)

		scoutActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scout_active_workers",
				Help: "Workers currently processing a task.",
			},
		)

		scoutBackoffSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scout_retry_backoff_seconds",
				Help:    "Histogram of retry backoff sleeps.",
				Buckets: []float64{1, 2, 5, 10, 15, 30},
			},
		)
	})
}

// ObserveTask increments the task counter for the given outcome.
func ObserveTask(outcome string) {
	scoutTasksTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetchAttempt increments the attempt counter for a classification.
func ObserveFetchAttempt(result string) {
	scoutFetchAttemptsTotal.WithLabelValues(result).Inc()
}

// ObserveRowWritten increments the ledger row counter.
func ObserveRowWritten() {
	scoutRowsWrittenTotal.Inc()
}

// ObserveBackoff records one retry backoff sleep.
func ObserveBackoff(d time.Duration) {
	scoutBackoffSeconds.Observe(d.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	scoutActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	scoutActiveWorkers.Dec()
}
