package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetricsForTesting()

	m.AnalysesTotal.WithLabelValues("upload", "success").Inc()
	m.AnalysesTotal.WithLabelValues("upload", "success").Inc()
	m.AnalysesTotal.WithLabelValues("postgres", "error").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("upload", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("postgres", "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("sqlite", "empty")))
}

func TestMetrics_Gauge(t *testing.T) {
	m := NewMetricsForTesting()

	m.ResultsCached.Set(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ResultsCached))

	m.ResultsCached.Dec()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ResultsCached))
}

func TestMetrics_SitesAndDrops(t *testing.T) {
	m := NewMetricsForTesting()

	m.SitesProcessed.Add(120)
	m.RowsDropped.Add(5)

	assert.Equal(t, 120.0, testutil.ToFloat64(m.SitesProcessed))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.RowsDropped))
}

func TestMetrics_HTTPRequests(t *testing.T) {
	m := NewMetricsForTesting()

	m.HTTPRequests.WithLabelValues("/v1/analyze", "200").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/v1/analyze", "200")))
}
