// Package recorder keeps a bounded history of operation samples and derives
// per-operation and overall statistics from it.
package recorder

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/discochess/codeassist/internal/stats"
)

// DefaultMaxSamples is the number of samples kept when no limit is given.
const DefaultMaxSamples = 10000

// Sample is a single recorded operation.
type Sample struct {
	Name       string
	Duration   time.Duration
	MemoryUsed int64 // may be negative when the heap shrank
	CacheHit   bool
	Timestamp  time.Time
	Metadata   map[string]any
}

// OperationStats summarizes the samples of one operation.
// Count is zero, and every other field except Operation is unset, when the
// operation has no samples.
type OperationStats struct {
	Operation      string
	Count          int
	AvgDuration    time.Duration
	MinDuration    time.Duration
	MaxDuration    time.Duration
	P50Duration    time.Duration
	P95Duration    time.Duration
	StdDevDuration time.Duration
	AvgMemory      float64
	CacheHitRate   float64
	LastRun        time.Time
}

// OverallStats summarizes every retained sample.
type OverallStats struct {
	TotalOperations  int
	UniqueOperations int
	TotalDuration    time.Duration
	AvgDuration      time.Duration
	TotalMemory      int64
	AvgMemory        float64
	CacheHitRate     float64
	Operations       []string // in order of first appearance
}

// Recorder is a bounded, append-only sample log.
// A Recorder is safe for concurrent use by multiple goroutines.
type Recorder struct {
	maxSamples int
	collector  stats.Collector
	logger     *zap.Logger
	now        func() time.Time

	mu      sync.Mutex
	samples []Sample
}

// New creates a Recorder.
func New(opts ...Option) *Recorder {
	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}

	return &Recorder{
		maxSamples: o.maxSamples,
		collector:  o.collector,
		logger:     o.logger,
		now:        o.now,
	}
}

// Record appends s, dropping the oldest samples beyond the limit.
// A zero Timestamp is set to the current time.
func (r *Recorder) Record(s Sample) {
	if s.Timestamp.IsZero() {
		s.Timestamp = r.now()
	}

	r.mu.Lock()
	r.samples = append(r.samples, s)
	if over := len(r.samples) - r.maxSamples; over > 0 {
		// Copy down so the backing array does not grow without bound.
		n := copy(r.samples, r.samples[over:])
		clear(r.samples[n:])
		r.samples = r.samples[:n]
	}
	r.mu.Unlock()

	r.collector.ObserveHistogram(stats.MetricOperationDuration, s.Duration.Seconds())
}

// Len returns the number of retained samples.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

// Samples returns a copy of the retained samples, oldest first.
func (r *Recorder) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

// StatsFor summarizes the retained samples named name.
func (r *Recorder) StatsFor(name string) OperationStats {
	r.mu.Lock()
	var matched []Sample
	for _, s := range r.samples {
		if s.Name == name {
			matched = append(matched, s)
		}
	}
	r.mu.Unlock()

	out := OperationStats{Operation: name, Count: len(matched)}
	if len(matched) == 0 {
		return out
	}

	durations := make([]float64, len(matched))
	var memory float64
	var hits int
	out.MinDuration = matched[0].Duration
	for i, s := range matched {
		durations[i] = float64(s.Duration)
		memory += float64(s.MemoryUsed)
		if s.CacheHit {
			hits++
		}
		out.MinDuration = min(out.MinDuration, s.Duration)
		out.MaxDuration = max(out.MaxDuration, s.Duration)
		if s.Timestamp.After(out.LastRun) {
			out.LastRun = s.Timestamp
		}
	}

	n := float64(len(matched))
	out.AvgDuration = time.Duration(stat.Mean(durations, nil))
	out.AvgMemory = memory / n
	out.CacheHitRate = float64(hits) / n

	sort.Float64s(durations)
	out.P50Duration = time.Duration(stat.Quantile(0.5, stat.Empirical, durations, nil))
	out.P95Duration = time.Duration(stat.Quantile(0.95, stat.Empirical, durations, nil))
	if len(durations) > 1 {
		out.StdDevDuration = time.Duration(stat.StdDev(durations, nil))
	}

	return out
}

// Overall summarizes every retained sample. It returns the zero value when
// nothing has been recorded.
func (r *Recorder) Overall() OverallStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.samples) == 0 {
		return OverallStats{}
	}

	var out OverallStats
	seen := make(map[string]struct{})
	var hits int
	for _, s := range r.samples {
		if _, ok := seen[s.Name]; !ok {
			seen[s.Name] = struct{}{}
			out.Operations = append(out.Operations, s.Name)
		}
		out.TotalDuration += s.Duration
		out.TotalMemory += s.MemoryUsed
		if s.CacheHit {
			hits++
		}
	}

	n := len(r.samples)
	out.TotalOperations = n
	out.UniqueOperations = len(seen)
	out.AvgDuration = out.TotalDuration / time.Duration(n)
	out.AvgMemory = float64(out.TotalMemory) / float64(n)
	out.CacheHitRate = float64(hits) / float64(n)

	return out
}

// Reset drops every sample.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = nil
}
