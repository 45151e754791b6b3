package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	ratelimiter "github.com/jassus213/go-bucket-limiter"
	"github.com/jassus213/go-bucket-limiter/store"
)

func TestPrometheus_RecordsLimiterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheus(reg, "test")

	limiter := ratelimiter.NewFixedWindow(store.NewMemory(context.Background(), 0), ratelimiter.WithRecorder(m))
	rule := ratelimiter.MustRule(time.Hour, 2, 1)

	for i := 0; i < 3; i++ {
		if _, err := limiter.Consume(context.Background(), "k", rule); err != nil {
			t.Fatal(err)
		}
	}

	if got := testutil.ToFloat64(m.Calls); got != 3 {
		t.Errorf("calls: got %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.Rejected.WithLabelValues(rule.String())); got != 1 {
		t.Errorf("rejected: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.StoreErrors); got != 0 {
		t.Errorf("store errors: got %v, want 0", got)
	}
	if got := testutil.CollectAndCount(m.Latency); got != 1 {
		t.Errorf("expected the latency histogram to be collected, got %d", got)
	}
}

func TestPrometheus_IgnoresUnknownNames(t *testing.T) {
	m := NewPrometheus(prometheus.NewRegistry(), "test")
	m.Add("something.else", 1, nil)
	m.Observe("something.else", 1, nil)

	if got := testutil.ToFloat64(m.Calls); got != 0 {
		t.Errorf("calls: got %v, want 0", got)
	}
}

func TestPrometheus_StoreErrors(t *testing.T) {
	m := NewPrometheus(prometheus.NewRegistry(), "test")
	m.Add(ratelimiter.MetricStoreError, 1, nil)

	if got := testutil.ToFloat64(m.StoreErrors); got != 1 {
		t.Errorf("store errors: got %v, want 1", got)
	}
}
