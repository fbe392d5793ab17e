// Package metrics holds the Prometheus instruments for analysis runs,
// provider calls and catalog lookups.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AnalysisRuns counts finished runs by mode (fresh, append) and
	// outcome (applied, failed, discarded).
	AnalysisRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibetrack_analysis_runs_total",
			Help: "Total number of analysis runs by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	SuggestionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vibetrack_suggestion_duration_seconds",
			Help:    "Duration of AI suggestion calls in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"result"},
	)

	// CatalogLookups counts catalog searches by result (hit, miss, error, rejected)
	CatalogLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibetrack_catalog_lookups_total",
			Help: "Total number of catalog lookups by result",
		},
		[]string{"result"},
	)

	CatalogBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vibetrack_catalog_circuit_breaker_state",
			Help: "Catalog circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	PreviewHandles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vibetrack_preview_handles",
			Help: "Number of live image preview handles",
		},
	)
)
