package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_recommend_requests_total",
			Help: "Recommendation requests by outcome",
		},
		[]string{"outcome"},
	)

	GenerationFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_generation_fallbacks_total",
			Help: "Generations that fell back to the deterministic reply",
		},
		[]string{"reason"},
	)

	RetrievalAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_retrieval_attempts_total",
			Help: "Search backend attempts by result",
		},
		[]string{"backend", "result"},
	)

	RetrievalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "advisor_retrieval_duration_seconds",
			Help:    "Time spent retrieving candidates, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "advisor_generation_duration_seconds",
			Help:    "Time spent in the language model call",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "advisor_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "advisor_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)
