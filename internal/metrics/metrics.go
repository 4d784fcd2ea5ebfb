package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchwise_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matchwise_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchwise_provider_requests_total",
			Help: "Total number of semantic provider calls.",
		},
		[]string{"op", "status"},
	)

	EmbeddingsComputedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "matchwise_embeddings_computed_total",
			Help: "Total number of catalog item embeddings computed on cache miss.",
		},
	)

	ExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchwise_preference_extractions_total",
			Help: "Total number of preference extraction attempts.",
		},
		[]string{"status"},
	)

	MatchRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "matchwise_match_requests_total",
			Help: "Total number of catalog ranking requests.",
		},
	)

	RecommendationsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matchwise_recommendations_returned",
			Help:    "Number of recommendations returned per ranking request.",
			Buckets: []float64{0, 1, 3, 5, 10, 20, 50},
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ProviderRequestsTotal,
		EmbeddingsComputedTotal,
		ExtractionsTotal,
		MatchRequestsTotal,
		RecommendationsReturned,
	)
}
