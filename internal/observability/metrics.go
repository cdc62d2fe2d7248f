package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// analysis service.
type Metrics struct {
	AnalysesTotal    *prometheus.CounterVec // labels: source={upload,file,url,postgres,sqlite}, outcome={success,error,empty}
	AnalysisDuration prometheus.Histogram
	SitesProcessed   prometheus.Counter
	RowsDropped      prometheus.Counter
	ResultsCached    prometheus.Gauge
	HTTPRequests     *prometheus.CounterVec // labels: route, code
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "site_analysis",
			Name:      "analyses_total",
			Help:      "Analysis runs by input source and outcome.",
		}, []string{"source", "outcome"}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "site_analysis",
			Name:      "analysis_duration_seconds",
			Help:      "Duration of a complete clean-index-classify run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		SitesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "site_analysis",
			Name:      "sites_processed_total",
			Help:      "Total sites that survived validation and were analyzed.",
		}),
		RowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "site_analysis",
			Name:      "rows_dropped_total",
			Help:      "Total input rows dropped during validation.",
		}),
		ResultsCached: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "site_analysis",
			Name:      "results_cached",
			Help:      "Download entries currently held in the result cache.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "site_analysis",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"route", "code"}),
	}

	prometheus.MustRegister(
		m.AnalysesTotal,
		m.AnalysisDuration,
		m.SitesProcessed,
		m.RowsDropped,
		m.ResultsCached,
		m.HTTPRequests,
	)

	return m
}

// NewMetricsForTesting creates Metrics with nothing registered to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		AnalysesTotal:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "site_analysis", Name: "analyses_total"}, []string{"source", "outcome"}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "site_analysis", Name: "analysis_duration_seconds"}),
		SitesProcessed:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "site_analysis", Name: "sites_processed_total"}),
		RowsDropped:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "site_analysis", Name: "rows_dropped_total"}),
		ResultsCached:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "site_analysis", Name: "results_cached"}),
		HTTPRequests:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "site_analysis", Name: "http_requests_total"}, []string{"route", "code"}),
	}
}
