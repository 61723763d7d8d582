// Package metrics exposes Prometheus metrics for split planning and record
// reading.
//
// # Basic Usage
//
//	metrics.DiscoveryAttempts.WithLabelValues("pb", metrics.OutcomeSuccess).Inc()
//
//	timer := metrics.NewTimer()
//	rec, err := conn.Fetch(ctx, container, key)
//	metrics.FetchDuration.Observe(timer.Stop().Seconds())
//
// All metrics are registered with the default registry on package load.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeNotFound = "not_found"
)

var (
	// DiscoveryAttempts counts key discovery attempts per endpoint.
	// Labels: protocol (pb/http/https), outcome (success/failure)
	DiscoveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvsplit_discovery_attempts_total",
			Help: "Key discovery attempts by endpoint protocol and outcome",
		},
		[]string{"protocol", "outcome"},
	)

	// KeysDiscovered holds the number of ids found by the last successful
	// discovery.
	KeysDiscovered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kvsplit_keys_discovered",
			Help: "Record ids found by the most recent key discovery",
		},
	)

	// SplitsPlanned counts planned splits.
	SplitsPlanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kvsplit_splits_planned_total",
			Help: "Total number of splits planned",
		},
	)

	// RecordsFetched counts record fetches by outcome.
	// Labels: outcome (success/failure/not_found)
	RecordsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvsplit_records_fetched_total",
			Help: "Record fetches by outcome",
		},
		[]string{"outcome"},
	)

	// FetchDuration tracks single record fetch latency in seconds.
	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "kvsplit_fetch_duration_seconds",
			Help: "Latency of single record fetches",
			Buckets: []float64{
				0.0005, // 500μs - local node
				0.001,
				0.005,
				0.01,
				0.05,
				0.1,
				0.5,
				1,
				5,
			},
		},
	)

	// RecordsWritten counts records stored by output writers.
	// Labels: outcome (success/failure)
	RecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvsplit_records_written_total",
			Help: "Records stored into the output container by outcome",
		},
		[]string{"outcome"},
	)
)

// Timer measures elapsed time from its creation.
type Timer struct {
	start time.Time
}

// NewTimer creates a timer and starts it immediately.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the time elapsed since creation. It may be called repeatedly.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// Outcome maps an error to the success/failure label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
