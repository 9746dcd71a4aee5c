package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval pipeline Prometheus metrics.
var (
	RetrievalRelevanceScore = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "studyrag",
			Name:      "retrieval_relevance_score",
			Help:      "Mean similarity score of merged retrieval results",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"collection"},
	)

	SearchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "studyrag",
			Name:      "search_request_duration_seconds",
			Help:      "Vector search request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"collection"},
	)

	SearchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studyrag",
			Name:      "search_errors_total",
			Help:      "Total vector search errors",
		},
		[]string{"collection", "error_type"},
	)

	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studyrag",
			Name:      "generation_requests_total",
			Help:      "Total number of text generation requests",
		},
		[]string{"model", "purpose", "status"}, // purpose: "expand" / "compress"
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "studyrag",
			Name:      "generation_request_duration_seconds",
			Help:      "Text generation request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model", "purpose"},
	)

	CompressionRatio = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "studyrag",
			Name:      "compression_ratio",
			Help:      "Compressed over original content length per document",
			Buckets:   []float64{0.1, 0.25, 0.5, 0.75, 1, 1.5},
		},
	)

	CompressionDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studyrag",
			Name:      "compression_dropped_total",
			Help:      "Documents dropped during contextual compression",
		},
		[]string{"reason"}, // "not_relevant" / "budget"
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers Prometheus retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalRelevanceScore)
	prometheus.MustRegister(SearchRequestDuration)
	prometheus.MustRegister(SearchErrorsTotal)
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationRequestDuration)
	prometheus.MustRegister(CompressionRatio)
	prometheus.MustRegister(CompressionDroppedTotal)
	retrievalMetricsRegistered = true
}
