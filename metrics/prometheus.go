// Package metrics exposes limiter metrics to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	ratelimiter "github.com/jassus213/go-bucket-limiter"
)

// Prometheus implements ratelimiter.Recorder with client_golang collectors.
type Prometheus struct {
	Calls       prometheus.Counter
	Rejected    *prometheus.CounterVec
	StoreErrors prometheus.Counter
	Latency     prometheus.Histogram
}

// NewPrometheus builds the collectors under namespace and registers them
// with reg. It panics if registration fails, like prometheus.MustRegister.
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	m := &Prometheus{
		Calls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_calls_total",
			Help:      "Total Consume calls",
		}),
		Rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ratelimit_rejected_total",
				Help:      "Total calls rejected, by the first violated rule",
			},
			[]string{"rule"},
		),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_store_errors_total",
			Help:      "Total calls that failed because the store was unavailable",
		}),
		Latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ratelimit_duration_seconds",
			Help:      "Consume duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.Calls, m.Rejected, m.StoreErrors, m.Latency)
	return m
}

// Add implements ratelimiter.Recorder. Unknown names are ignored.
func (m *Prometheus) Add(name string, value float64, tags map[string]string) {
	switch name {
	case ratelimiter.MetricCalls:
		m.Calls.Add(value)
	case ratelimiter.MetricRejected:
		m.Rejected.WithLabelValues(tags["rule"]).Add(value)
	case ratelimiter.MetricStoreError:
		m.StoreErrors.Add(value)
	}
}

// Observe implements ratelimiter.Recorder. Unknown names are ignored.
func (m *Prometheus) Observe(name string, value float64, tags map[string]string) {
	if name == ratelimiter.MetricLatency {
		m.Latency.Observe(value)
	}
}
