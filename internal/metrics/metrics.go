// Package metrics holds the prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync engine
	SyncTaskOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agencylens_sync_task_outcomes_total",
			Help: "Per company per platform sync task results",
		},
		[]string{"platform", "outcome"},
	)

	SyncTaskRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agencylens_sync_rows_written_total",
			Help: "Daily metric rows upserted by sync tasks",
		},
		[]string{"platform"},
	)

	SyncRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agencylens_sync_run_duration_seconds",
			Help:    "Wall clock duration of a full sync pass",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 180, 270, 400},
		},
		[]string{"trigger"},
	)

	SyncBatchesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agencylens_sync_batches_total",
			Help: "Batches issued by the scheduler",
		},
	)

	SyncBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agencylens_sync_batch_duration_seconds",
			Help:    "Duration of one batch of concurrent company syncs",
			Buckets: prometheus.DefBuckets,
		},
	)

	SyncPartialRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agencylens_sync_partial_runs_total",
			Help: "Runs truncated by the execution budget",
		},
	)

	// Cache
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agencylens_cache_requests_total",
			Help: "Read-through cache lookups by data type and result",
		},
		[]string{"data_type", "result"}, // hit, miss, expired
	)

	// Providers
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agencylens_provider_requests_total",
			Help: "Outbound provider API calls by status class",
		},
		[]string{"platform", "status"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agencylens_provider_request_duration_seconds",
			Help:    "Latency of outbound provider API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"platform"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agencylens_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agencylens_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)
