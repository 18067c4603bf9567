// Package metrics provides Prometheus metrics for the triage backend
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the triage backend
type Metrics struct {
	// Session metrics
	SessionsStartedTotal  prometheus.Counter
	SessionsRestoredTotal prometheus.Counter
	SessionsResetTotal    prometheus.Counter

	// Analysis metrics
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram

	// Feedback metrics
	FeedbackTotal *prometheus.CounterVec

	// Emergency follow-up metrics
	EmergencyLookupsTotal prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	m := &Metrics{}

	m.SessionsStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_sessions_started_total",
			Help: "Total number of triage sessions started",
		},
	)

	m.SessionsRestoredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_sessions_restored_total",
			Help: "Total number of triage sessions resumed from a snapshot",
		},
	)

	m.SessionsResetTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_sessions_reset_total",
			Help: "Total number of triage session resets",
		},
	)

	m.AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_analyses_total",
			Help: "Total number of symptom analyses by risk level and status",
		},
		[]string{"risk_level", "status"},
	)

	m.AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "triage_analysis_duration_seconds",
			Help:    "Duration of analysis gateway calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	m.FeedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_feedback_total",
			Help: "Total number of feedback signals by direction",
		},
		[]string{"signal"},
	)

	m.EmergencyLookupsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_emergency_lookups_total",
			Help: "Total number of automatic emergency provider lookups",
		},
	)

	return m
}

// RecordAnalysis records a completed or failed analysis
func (m *Metrics) RecordAnalysis(riskLevel string, status string, duration time.Duration) {
	m.AnalysesTotal.WithLabelValues(riskLevel, status).Inc()
	m.AnalysisDuration.Observe(duration.Seconds())
}
