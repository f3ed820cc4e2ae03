package ranker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rankingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "testribute_rankings_total",
		Help: "Ranking requests by mode and outcome",
	}, []string{"mode", "outcome"})

	rankingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "testribute_ranking_duration_seconds",
		Help:    "Time spent answering a ranking request",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	combinationsGenerated = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "testribute_combinations_generated",
		Help:    "Service combinations generated per request",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	combinationsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "testribute_combinations_dropped_total",
		Help: "Service combinations dropped, by pipeline stage",
	}, []string{"stage"})

	endpointFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "testribute_endpoint_failures_total",
		Help: "Endpoint lookups that failed, by endpoint kind",
	}, []string{"kind"})
)
