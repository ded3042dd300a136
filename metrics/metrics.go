package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var once sync.Once

var (
	// TurnsProcessedTotal counts processed caller turns by outcome.
	TurnsProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "emergency",
		Subsystem: "triage",
		Name:      "turns_processed_total",
		Help:      "Total number of caller turns processed by the triage engine, labeled by outcome.",
	}, []string{"outcome"})

	// DispatchesTotal counts dispatch authorizations.
	DispatchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "emergency",
		Subsystem: "triage",
		Name:      "dispatches_total",
		Help:      "Total number of dispatches authorized by the triage engine.",
	})

	// CranksDetectedTotal counts turns classified as crank/false reports.
	CranksDetectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "emergency",
		Subsystem: "triage",
		Name:      "cranks_detected_total",
		Help:      "Total number of turns the crank detector classified as false reports.",
	})

	// ActiveSessions is the current number of live caller sessions.
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "emergency",
		Subsystem: "triage",
		Name:      "active_sessions",
		Help:      "Current number of live caller sessions held in the session store.",
	})

	// TurnDurationSeconds is end-to-end time per turn inside the engine.
	TurnDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "emergency",
		Subsystem: "triage",
		Name:      "turn_duration_seconds",
		Help:      "End-to-end time to process one caller turn.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})
)

// Register registers all triage metrics with the default registry. Safe to
// call more than once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			TurnsProcessedTotal,
			DispatchesTotal,
			CranksDetectedTotal,
			ActiveSessions,
			TurnDurationSeconds,
		)
	})
}
