package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	optimizationsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swarmopt_optimizations_started_total",
		Help: "Number of optimization runs accepted by the service.",
	})

	optimizationsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swarmopt_optimizations_completed_total",
		Help: "Number of optimization runs finished, by terminal status.",
	}, []string{"status"})

	evaluationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swarmopt_evaluations_total",
		Help: "Total objective-function evaluations across all runs.",
	})
)
