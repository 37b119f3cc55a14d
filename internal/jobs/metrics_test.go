package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	assert.NoError(t, metrics.Track("dataset_refresh").End(nil))
	failure := errors.New("load failed")
	assert.Equal(t, failure, metrics.Track("dataset_refresh").End(failure))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("dataset_refresh", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("dataset_refresh", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues("dataset_refresh")))
}

func TestNilMetricsTrackerPassesErrorThrough(t *testing.T) {
	var metrics *Metrics
	failure := errors.New("boom")
	assert.Equal(t, failure, metrics.Track("dataset_refresh").End(failure))
}
