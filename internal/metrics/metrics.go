// Package metrics exposes the driver's own operational counters to
// Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal counts polling cycles started
	CyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minerdriver_cycles_total",
			Help: "Total number of polling cycles started",
		},
	)

	// ProbesTotal counts decoded probe outcomes
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerdriver_probes_total",
			Help: "Total number of device probes by outcome",
		},
		[]string{"outcome"},
	)

	// FetchDuration measures device round trips
	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "minerdriver_fetch_duration_seconds",
			Help:    "Device request/reply duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// ForwardsTotal counts forward attempts by endpoint and result
	ForwardsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerdriver_forwards_total",
			Help: "Total number of forward attempts by endpoint and result",
		},
		[]string{"endpoint", "result"},
	)

	// TasksInFlight is the number of device tasks currently running
	TasksInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "minerdriver_tasks_in_flight",
			Help: "Number of device tasks currently running",
		},
	)
)

const (
	OutcomeStats = "stats"
	OutcomeError = "error"
)
