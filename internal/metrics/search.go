package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardsearch",
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"mode", "status"}, // mode: "hybrid" / "browse" / "dense_only"
	)

	SearchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cardsearch",
			Name:      "search_request_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"mode"},
	)

	SearchCandidatesFetched = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cardsearch",
			Name:      "search_candidates_fetched",
			Help:      "Candidates fetched per retrieval branch before fusion",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"branch"}, // "dense" / "sparse"
	)

	TaggingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardsearch",
			Name:      "tagging_requests_total",
			Help:      "Total number of LLM tagging requests",
		},
		[]string{"model", "status"},
	)

	ScrapeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardsearch",
			Name:      "scrape_requests_total",
			Help:      "Total number of realm scrape requests",
		},
		[]string{"kind", "status"}, // kind: "list" / "detail"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search pipeline metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchRequestDuration)
	prometheus.MustRegister(SearchCandidatesFetched)
	prometheus.MustRegister(TaggingRequestsTotal)
	prometheus.MustRegister(ScrapeRequestsTotal)
	searchMetricsRegistered = true
}
