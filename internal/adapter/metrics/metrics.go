package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ProcessorMetrics holds all Prometheus metrics for the aggregation engine.
type ProcessorMetrics struct {
	EventsTotal       *prometheus.CounterVec
	DuplicatesTotal   prometheus.Counter
	CommitsTotal      prometheus.Counter
	CommitRetries     prometheus.Counter
	BatchRetries      prometheus.Counter
	BatchSize         prometheus.Histogram
	SnapshotsTotal    prometheus.Counter
	LedgerErrorsTotal prometheus.Counter
}

// NewProcessorMetrics initializes and registers the engine metrics.
func NewProcessorMetrics() *ProcessorMetrics {
	return &ProcessorMetrics{
		EventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leaderboard",
			Subsystem: "processor",
			Name:      "events_total",
			Help:      "Total number of routed events by kind and outcome.",
		}, []string{"kind", "status"}), // status: applied, invalid, unknown_kind, handler_error, store_error
		DuplicatesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "leaderboard",
			Subsystem: "processor",
			Name:      "duplicates_total",
			Help:      "Total number of events skipped as already applied.",
		}),
		CommitsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "leaderboard",
			Subsystem: "processor",
			Name:      "commits_total",
			Help:      "Total number of successful checkpoint commits.",
		}),
		CommitRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "leaderboard",
			Subsystem: "processor",
			Name:      "commit_retries_total",
			Help:      "Total number of checkpoint commit attempts that failed and were retried.",
		}),
		BatchRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "leaderboard",
			Subsystem: "processor",
			Name:      "batch_retries_total",
			Help:      "Total number of batches reprocessed after a transient store failure.",
		}),
		BatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leaderboard",
			Subsystem: "processor",
			Name:      "batch_size",
			Help:      "Distribution of polled batch sizes.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		SnapshotsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "leaderboard",
			Subsystem: "processor",
			Name:      "snapshots_total",
			Help:      "Total number of observability leaderboard snapshots taken.",
		}),
		LedgerErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "leaderboard",
			Subsystem: "processor",
			Name:      "ledger_errors_total",
			Help:      "Total number of dedup ledger failures.",
		}),
	}
}
