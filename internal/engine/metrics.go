package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// simulateTotal counts simulated days by crop
	simulateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phenosim_simulate_total",
		Help: "Total simulated crop days by crop",
	}, []string{"crop"})

	// simulateDuration tracks the latency of one simulate call
	simulateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "phenosim_simulate_duration_seconds",
		Help:    "Simulate call duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
	}, []string{"crop"})

	// regressionsPrevented counts raw codes the tracker held back
	regressionsPrevented = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phenosim_stage_regressions_prevented_total",
		Help: "Total raw stage codes below the highest reached code",
	}, []string{"crop"})

	// lookupMisses counts reconciled codes missing from the catalog
	lookupMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phenosim_stage_lookup_miss_total",
		Help: "Total stage codes resolved by season estimate",
	}, []string{"crop"})

	// harvestForecasts counts harvest predictions by confidence
	harvestForecasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phenosim_harvest_forecasts_total",
		Help: "Total harvest forecasts by crop and confidence",
	}, []string{"crop", "confidence"})
)
