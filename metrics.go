package shrike

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shrike_validations_total",
			Help: "Validation requests by outcome: ok, degraded, stale, invalid, unavailable.",
		},
		[]string{"outcome"},
	)

	metricLookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shrike_domain_lookup_duration_seconds",
			Help:    "Duration of full domain fact lookups.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"result"},
	)

	metricCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shrike_cache_requests_total",
			Help: "Domain fact cache lookups by result: hit, miss, stale.",
		},
		[]string{"result"},
	)

	metricSharedLookups = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shrike_shared_lookups_total",
			Help: "Requests that attached to another request's in-flight lookup.",
		},
	)
)
