package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MatchRuns counts match-finder executions by urgency.
	MatchRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servimatch_match_runs_total",
			Help: "Total number of match finder runs",
		},
		[]string{"urgency"},
	)

	// MatchCandidates observes how many candidates each match run produced.
	MatchCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "servimatch_match_candidates",
			Help:    "Candidates returned per match run",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	// CandidateExclusions counts candidates dropped per filter stage.
	CandidateExclusions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servimatch_candidate_exclusions_total",
			Help: "Candidates excluded during matching by reason",
		},
		[]string{"reason"},
	)

	// NotificationsDispatched counts notification deliveries by channel and outcome
	// (sent|deduplicated|suppressed|failed).
	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servimatch_notifications_total",
			Help: "Notification delivery attempts by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	// Rescores counts ranking recomputations by result (ok|error).
	Rescores = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servimatch_rescores_total",
			Help: "Ranking score recomputations",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "servimatch_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
