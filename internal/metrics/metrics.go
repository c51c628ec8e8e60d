// Package metrics holds the process counters for occurrence generation,
// budget gating and phase repair. They live in a private registry so the
// CLI can dump them to a node-exporter textfile on exit.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry collects every phaseplan metric.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	OccurrencesGenerated = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phaseplan_occurrences_generated_total",
			Help: "Occurrences persisted from recurring templates",
		},
		[]string{"mode"}, // mode: configure, ensure, regenerate
	)

	GenerationFailures = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "phaseplan_generation_failures_total",
			Help: "Occurrence create calls that failed inside a batch",
		},
	)

	BudgetRejections = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phaseplan_budget_rejections_total",
			Help: "Writes refused by the budget gate",
		},
		[]string{"site"}, // site: milestone, load, split, edit
	)

	PhaseRepairs = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phaseplan_phase_repairs_total",
			Help: "Phases moved by overlap repair or cascading date moves",
		},
		[]string{"kind"}, // kind: overlap, cascade
	)

	StoreOpDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "phaseplan_store_op_duration_seconds",
			Help:    "Storage call latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		},
		[]string{"operation"},
	)
)

// AddOccurrencesGenerated records n persisted occurrences.
func AddOccurrencesGenerated(mode string, n int) {
	if n > 0 {
		OccurrencesGenerated.WithLabelValues(mode).Add(float64(n))
	}
}

// IncrementGenerationFailure records one failed occurrence create.
func IncrementGenerationFailure() {
	GenerationFailures.Inc()
}

// IncrementBudgetRejection records one refused write.
func IncrementBudgetRejection(site string) {
	BudgetRejections.WithLabelValues(site).Inc()
}

// AddPhaseRepairs records n phases moved.
func AddPhaseRepairs(kind string, n int) {
	if n > 0 {
		PhaseRepairs.WithLabelValues(kind).Add(float64(n))
	}
}

// ObserveStoreOp records the latency of a storage call started at start.
func ObserveStoreOp(operation string, start time.Time) {
	StoreOpDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// WriteTextfile writes the registry in the text exposition format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
