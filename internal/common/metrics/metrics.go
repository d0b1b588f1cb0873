// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ApplicantsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_applicants_processed_total",
			Help: "Total number of applicants fully processed",
		},
		[]string{"batch_id"},
	)

	MatchesAutoApproved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_matches_auto_approved_total",
			Help: "Total number of matches approved by the scorer",
		},
		[]string{"batch_id"},
	)

	PairsEscalated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_pairs_escalated_total",
			Help: "Total number of pairs sent to the judgment service",
		},
		[]string{"batch_id"},
	)

	EscalationsApproved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_escalations_approved_total",
			Help: "Total number of pairs approved after escalation",
		},
		[]string{"batch_id"},
	)

	EscalationsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_escalations_rejected_total",
			Help: "Total number of pairs rejected after escalation (fail-open included)",
		},
		[]string{"batch_id"},
	)

	PairsAutoRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_pairs_auto_rejected_total",
			Help: "Total number of pairs rejected by the scorer",
		},
		[]string{"batch_id"},
	)

	RecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_records_skipped_total",
			Help: "Total number of malformed applicant records skipped",
		},
		[]string{"batch_id", "reason"},
	)

	ChunkDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "engine_chunk_duration_seconds",
			Help: "Duration of chunk processing in seconds",
		},
		[]string{"batch_id"},
	)

	EscalatorBreakerOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_escalator_breaker_open",
			Help: "1 while the judgment circuit breaker is open",
		},
	)
)
