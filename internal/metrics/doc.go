// Package metrics collects dispatch latency and outcome counters for a
// simulation run.
//
// The central [Collector] type aggregates measurements from the scheduler:
//
//	collector := metrics.NewCollector()
//	collector.RecordDispatch(latency, err)
//	stats := collector.Stats(elapsed)
//
// Latency percentiles are backed by an HDR histogram tracking 1µs to 60s with
// three significant figures. The Collector is safe for concurrent use,
// although the scheduler dispatches from a single goroutine.
package metrics
