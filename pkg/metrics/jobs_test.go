package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestJobMetricsExportsRunsAndEvictions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)
	m.ObserveRun("session-reaper", 40*time.Millisecond, nil)
	m.ObserveRun("session-reaper", 10*time.Millisecond, errors.New("flush failed"))
	m.AddEvicted(3)
	m.AddEvicted(-1)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	for _, result := range []string{"success", "failure"} {
		got, err := fetchCounterValue(mfs, "storefront_job_runs_total", map[string]string{"job": "session-reaper", "result": result})
		if err != nil {
			t.Fatalf("fetch %s: %v", result, err)
		}
		if got != 1 {
			t.Fatalf("expected %s=1, got %f", result, got)
		}
	}

	if got, err := fetchHistogramSum(mfs, "storefront_job_duration_seconds", "job", "session-reaper"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	mf := findMetricFamily(mfs, "storefront_sessions_evicted_total")
	if mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 3 {
		t.Fatalf("expected 3 evictions")
	}
}

func TestNilJobMetricsAreNoops(t *testing.T) {
	var m *JobMetrics
	m.ObserveRun("x", time.Second, nil)
	m.AddEvicted(1)
	NewJobMetrics(nil).ObserveRun("x", time.Second, nil)
}
