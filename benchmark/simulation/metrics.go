package simulation

import (
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Metrics summarizes a Result.
type Metrics struct {
	Requests      int
	Errors        int
	ProviderCalls int

	// Throughput is completed requests per second of wall time.
	Throughput float64

	// Latency distribution in milliseconds.
	MeanLatency float64
	P50Latency  float64
	P95Latency  float64
	P99Latency  float64
	MaxLatency  float64

	// CallsSaved is the fraction of requests that did not reach the provider.
	CallsSaved   float64
	CacheHitRate float64
}

// ComputeMetrics derives Metrics from a run.
func ComputeMetrics(r *Result) *Metrics {
	m := &Metrics{
		Requests:      len(r.Latencies),
		Errors:        r.Errors,
		ProviderCalls: r.ProviderCalls,
	}
	if r.CacheEnabled {
		m.CacheHitRate = r.Cache.HitRate()
	}
	if m.Requests == 0 {
		return m
	}

	if r.Elapsed > 0 {
		m.Throughput = float64(m.Requests) / r.Elapsed.Seconds()
	}
	m.CallsSaved = 1 - float64(r.ProviderCalls)/float64(m.Requests)

	sorted := slices.Clone(r.Latencies)
	slices.Sort(sorted)
	m.MeanLatency = stat.Mean(sorted, nil)
	m.P50Latency = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	m.P95Latency = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	m.P99Latency = stat.Quantile(0.99, stat.Empirical, sorted, nil)
	m.MaxLatency = sorted[len(sorted)-1]
	return m
}

// Milliseconds converts a latency sample back to a duration.
func Milliseconds(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
