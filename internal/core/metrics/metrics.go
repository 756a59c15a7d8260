package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PositionReports counts position reports accepted by the relay.
	PositionReports = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fieldops_position_reports_total",
		Help: "Total position reports received from partners",
	})
	// PositionFanout counts location updates forwarded to subscribers.
	PositionFanout = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fieldops_position_fanout_total",
		Help: "Total location updates forwarded to channel subscribers",
	})
	// SubscriberEvictions counts subscribers dropped on failed sends.
	SubscriberEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fieldops_subscriber_evictions_total",
		Help: "Subscribers removed from a channel after a failed send",
	})
	// OptimizeRuns counts route optimization requests by outcome.
	OptimizeRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldops_optimize_runs_total",
		Help: "Route optimization runs by outcome",
	}, []string{"outcome"})
	// OptimizeLatency measures wall time of a single annealing run.
	OptimizeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fieldops_optimize_latency_seconds",
		Help:    "Latency of one route optimization run",
		Buckets: prometheus.DefBuckets,
	})
	// OutboxFlushes counts batch flush attempts by outcome.
	OutboxFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldops_outbox_flushes_total",
		Help: "Offline action queue flush attempts by outcome",
	}, []string{"outcome"})
)

// ObserveOptimizeLatency records the elapsed time of an optimization run.
func ObserveOptimizeLatency(start time.Time) {
	OptimizeLatency.Observe(time.Since(start).Seconds())
}
