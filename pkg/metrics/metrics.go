// Package metrics exposes Prometheus instruments for bond inference.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BondsCreated counts bonds added to crystal graphs, by method.
	BondsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crystal_bonds",
		Name:      "bonds_created_total",
		Help:      "Bonds created by inference, by method.",
	}, []string{"method"})

	// InferenceDuration observes whole inference runs, by method.
	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crystal_bonds",
		Name:      "inference_duration_seconds",
		Help:      "Wall time of one bond inference run.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 0.1ms to ~26s
	}, []string{"method"})

	// SanityViolations counts sanity check failures, by kind.
	SanityViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crystal_bonds",
		Name:      "sanity_violations_total",
		Help:      "Sanity check violations found after inference, by kind.",
	}, []string{"kind"})

	// Runs counts analysis runs, by trigger and outcome.
	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crystal_bonds",
		Name:      "runs_total",
		Help:      "Analysis runs, by trigger and outcome.",
	}, []string{"trigger", "outcome"})
)
