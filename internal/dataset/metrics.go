package dataset

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Metrics observes load cycles. A nil *Metrics records nothing.
type Metrics struct {
	loads    *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics registers the loader collectors. Collectors that are already registered
// on reg are reused, so several loaders may share one registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "observatorio_dataset_loads_total",
			Help: "Dataset load cycles partitioned by outcome.",
		}, []string{"outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "observatorio_dataset_load_failures_total",
			Help: "Failed dataset loads partitioned by the resource that failed.",
		}, []string{"resource"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "observatorio_dataset_load_duration_seconds",
			Help:    "Wall time of a full dataset load cycle.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	if err := reg.Register(m.loads); err != nil {
		existing, err := reuse(err)
		if err != nil {
			return nil, err
		}
		m.loads = existing.(*prometheus.CounterVec)
	}
	if err := reg.Register(m.failures); err != nil {
		existing, err := reuse(err)
		if err != nil {
			return nil, err
		}
		m.failures = existing.(*prometheus.CounterVec)
	}
	if err := reg.Register(m.duration); err != nil {
		existing, err := reuse(err)
		if err != nil {
			return nil, err
		}
		m.duration = existing.(prometheus.Histogram)
	}
	return m, nil
}

func reuse(err error) (prometheus.Collector, error) {
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return already.ExistingCollector, nil
	}
	return nil, err
}

func (m *Metrics) observe(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(elapsed.Seconds())
	if err == nil {
		m.loads.WithLabelValues(outcomeSuccess).Inc()
		return
	}
	m.loads.WithLabelValues(outcomeFailure).Inc()
	resource := FailedResource(err)
	if resource == "" {
		resource = "unknown"
	}
	m.failures.WithLabelValues(resource).Inc()
}
