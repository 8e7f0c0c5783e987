// Prometheus instrumentation for the dashboard data path
package dashboard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts fetches and model builds for the /metrics endpoint.
type Metrics struct {
	FetchesTotal  prometheus.Counter
	FetchFailures prometheus.Counter
	StaleDropped  prometheus.Counter
	BuildSeconds  prometheus.Histogram
	SpansPerBuild prometheus.Histogram
}

// NewMetrics registers the dashboard collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FetchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "spanview_fetches_total",
			Help: "Hit fetches issued against the search backend.",
		}),
		FetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "spanview_fetch_failures_total",
			Help: "Hit fetches that returned an error.",
		}),
		StaleDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "spanview_stale_responses_dropped_total",
			Help: "Fetch responses discarded because a newer load superseded them.",
		}),
		BuildSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "spanview_model_build_seconds",
			Help:    "Time spent deriving chart models from raw hits.",
			Buckets: prometheus.DefBuckets,
		}),
		SpansPerBuild: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "spanview_spans_per_build",
			Help:    "Spans laid out per model build.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}
