package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opentimes_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// ScheduleSubmissions counts weekly grid submissions by outcome.
	ScheduleSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opentimes_schedule_submissions_total",
		Help: "Total number of schedule submissions by outcome",
	}, []string{"outcome"})

	// MembershipChanges counts ledger mutations by operation.
	MembershipChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opentimes_membership_changes_total",
		Help: "Total number of membership ledger operations by type",
	}, []string{"operation"})

	// CombineDuration records the latency of combined-schedule aggregation.
	CombineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "opentimes_combine_duration_seconds",
		Help:    "Latency of combined schedule aggregation",
		Buckets: prometheus.DefBuckets,
	})
)

// ObserveCombine records one aggregation run started at `start`.
func ObserveCombine(start time.Time) {
	CombineDuration.Observe(time.Since(start).Seconds())
}
