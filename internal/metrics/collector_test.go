package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/judgefire/judgefire/internal/metrics"
)

func TestCollectorStats(t *testing.T) {
	c := metrics.NewCollector()
	c.RecordDispatch(10*time.Millisecond, nil)
	c.RecordDispatch(20*time.Millisecond, nil)
	c.RecordDispatch(90*time.Millisecond, errors.New("boom"))
	c.RecordResolutionMisses(3)

	stats := c.Stats(2 * time.Second)

	if stats.Dispatched != 3 {
		t.Errorf("dispatched %d, expected 3", stats.Dispatched)
	}
	if stats.Failed != 1 {
		t.Errorf("failed %d, expected 1", stats.Failed)
	}
	if stats.ResolutionMisses != 3 {
		t.Errorf("misses %d, expected 3", stats.ResolutionMisses)
	}
	if stats.MinLatency != 10*time.Millisecond {
		t.Errorf("min %s, expected 10ms", stats.MinLatency)
	}
	if stats.MaxLatency != 90*time.Millisecond {
		t.Errorf("max %s, expected 90ms", stats.MaxLatency)
	}
	if stats.MeanLatency != 40*time.Millisecond {
		t.Errorf("mean %s, expected 40ms", stats.MeanLatency)
	}
	if stats.P50Latency <= 0 || stats.P99Latency < stats.P50Latency {
		t.Errorf("implausible percentiles: p50=%s p99=%s", stats.P50Latency, stats.P99Latency)
	}
	if got, want := stats.DispatchesPerSec, 1.5; got != want {
		t.Errorf("rate %g, expected %g", got, want)
	}
	if stats.Errors["*errors.errorString"] != 1 {
		t.Errorf("errors %v, expected the error type counted", stats.Errors)
	}
}

func TestCollectorEmpty(t *testing.T) {
	stats := metrics.NewCollector().Stats(time.Second)
	if stats.Dispatched != 0 || stats.Failed != 0 {
		t.Errorf("unexpected counts: %+v", stats)
	}
	if stats.DispatchesPerSec != 0 {
		t.Errorf("rate %g for zero dispatches", stats.DispatchesPerSec)
	}
	if stats.Errors != nil {
		t.Errorf("expected nil error map, got %v", stats.Errors)
	}
}
