// Package stats provides a unified interface for collecting metrics.
package stats

// Metric names used throughout the library.
const (
	// Client metrics.
	MetricRequests       = "codeassist_requests_total"
	MetricRequestErrors  = "codeassist_request_errors_total"
	MetricProviderCalls  = "codeassist_provider_calls_total"
	MetricTokensUsed     = "codeassist_tokens_used_total"
	MetricValidationFail = "codeassist_validation_failures_total"

	// Cache metrics.
	MetricCacheHits      = "codeassist_cache_hits_total"
	MetricCacheMisses    = "codeassist_cache_misses_total"
	MetricCacheEvictions = "codeassist_cache_evictions_total"
	MetricCacheSize      = "codeassist_cache_size"
	MetricCacheMemory    = "codeassist_cache_memory_bytes"

	// Operation recorder metrics.
	MetricOperationDuration = "codeassist_operation_duration_seconds"

	// Batch metrics.
	MetricBatchDispatches = "codeassist_batch_dispatches_total"
	MetricBatchSize       = "codeassist_batch_size"

	// Limiter metrics.
	MetricLimiterActive = "codeassist_limiter_active"

	// Watchdog metrics.
	MetricProcessMemory   = "codeassist_process_memory_bytes"
	MetricProcessCPU      = "codeassist_process_cpu_percent"
	MetricWatchdogActions = "codeassist_watchdog_actions_total"
)

var descriptions = map[string]string{
	MetricRequests:          "Coordinator operations started.",
	MetricRequestErrors:     "Coordinator operations that returned an error.",
	MetricProviderCalls:     "Calls made to the LLM provider.",
	MetricTokensUsed:        "Total tokens reported by the provider.",
	MetricValidationFail:    "Inputs rejected by the security validator.",
	MetricCacheHits:         "Response cache hits.",
	MetricCacheMisses:       "Response cache misses, including expired entries.",
	MetricCacheEvictions:    "Entries evicted to satisfy cache bounds.",
	MetricCacheSize:         "Entries currently held by the response cache.",
	MetricCacheMemory:       "Estimated bytes held by the response cache.",
	MetricOperationDuration: "Duration of recorded operations.",
	MetricBatchDispatches:   "Batches dispatched by the batch coordinator.",
	MetricBatchSize:         "Number of requests per dispatched batch.",
	MetricLimiterActive:     "Tasks currently holding a limiter permit.",
	MetricProcessMemory:     "Process memory sampled by the watchdog.",
	MetricProcessCPU:        "Process CPU usage sampled by the watchdog.",
	MetricWatchdogActions:   "Mitigations triggered by the watchdog.",
}

// Describe returns the help text for a metric name.
// Unknown names are described by the name itself.
func Describe(name string) string {
	if d, ok := descriptions[name]; ok {
		return d
	}
	return name
}

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}

// OrNoop returns c, or a no-op collector when c is nil.
func OrNoop(c Collector) Collector {
	if c == nil {
		return NewNoop()
	}
	return c
}
