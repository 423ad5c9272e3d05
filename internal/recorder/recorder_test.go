package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/discochess/codeassist/internal/stats"
)

func TestRecorder_BoundsSamples(t *testing.T) {
	r := New(WithMaxSamples(5))

	for i := 0; i < 12; i++ {
		r.Record(Sample{Name: fmt.Sprintf("op%d", i), Duration: time.Duration(i)})
	}

	if got := r.Len(); got != 5 {
		t.Fatalf("Len() = %d, want 5", got)
	}
	samples := r.Samples()
	for i, s := range samples {
		if want := fmt.Sprintf("op%d", 7+i); s.Name != want {
			t.Errorf("Samples()[%d].Name = %q, want %q", i, s.Name, want)
		}
	}
}

func TestRecorder_DefaultMaxSamples(t *testing.T) {
	r := New(WithMaxSamples(0))
	if r.maxSamples != DefaultMaxSamples {
		t.Errorf("maxSamples = %d, want %d", r.maxSamples, DefaultMaxSamples)
	}
}

func TestRecorder_StatsForUnknown(t *testing.T) {
	r := New()
	r.Record(Sample{Name: "other", Duration: time.Second})

	got := r.StatsFor("missing")
	if got.Operation != "missing" || got.Count != 0 {
		t.Errorf("StatsFor() = %+v, want operation=missing count=0", got)
	}
	if got.AvgDuration != 0 || !got.LastRun.IsZero() {
		t.Errorf("StatsFor() should leave other fields unset, got %+v", got)
	}
}

func TestRecorder_StatsFor(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := New()

	r.Record(Sample{Name: "analyze", Duration: 100 * time.Millisecond, MemoryUsed: 100, CacheHit: true, Timestamp: base})
	r.Record(Sample{Name: "analyze", Duration: 300 * time.Millisecond, MemoryUsed: -50, Timestamp: base.Add(2 * time.Second)})
	r.Record(Sample{Name: "chat", Duration: time.Second, Timestamp: base.Add(5 * time.Second)})
	r.Record(Sample{Name: "analyze", Duration: 200 * time.Millisecond, MemoryUsed: 250, CacheHit: true, Timestamp: base.Add(time.Second)})

	got := r.StatsFor("analyze")

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"Count", got.Count, 3},
		{"AvgDuration", got.AvgDuration, 200 * time.Millisecond},
		{"MinDuration", got.MinDuration, 100 * time.Millisecond},
		{"MaxDuration", got.MaxDuration, 300 * time.Millisecond},
		{"P50Duration", got.P50Duration, 200 * time.Millisecond},
		{"P95Duration", got.P95Duration, 300 * time.Millisecond},
		{"StdDevDuration", got.StdDevDuration, 100 * time.Millisecond},
		{"AvgMemory", got.AvgMemory, 100.0},
		{"CacheHitRate", got.CacheHitRate, 2.0 / 3.0},
		{"LastRun", got.LastRun, base.Add(2 * time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestRecorder_StatsForSingleSample(t *testing.T) {
	r := New()
	r.Record(Sample{Name: "x", Duration: 42 * time.Millisecond})

	got := r.StatsFor("x")
	if got.StdDevDuration != 0 {
		t.Errorf("StdDevDuration = %v, want 0", got.StdDevDuration)
	}
	if got.P50Duration != 42*time.Millisecond || got.P95Duration != 42*time.Millisecond {
		t.Errorf("percentiles = %v/%v, want 42ms", got.P50Duration, got.P95Duration)
	}
}

func TestRecorder_OverallEmpty(t *testing.T) {
	r := New()
	got := r.Overall()
	if got.TotalOperations != 0 || got.Operations != nil {
		t.Errorf("Overall() = %+v, want zero value", got)
	}
}

func TestRecorder_Overall(t *testing.T) {
	r := New()
	r.Record(Sample{Name: "a", Duration: time.Second, MemoryUsed: 10, CacheHit: true})
	r.Record(Sample{Name: "b", Duration: 3 * time.Second, MemoryUsed: 30})
	r.Record(Sample{Name: "a", Duration: 2 * time.Second, MemoryUsed: -10})
	r.Record(Sample{Name: "c", Duration: 2 * time.Second, MemoryUsed: 10})

	got := r.Overall()
	if got.TotalOperations != 4 {
		t.Errorf("TotalOperations = %d, want 4", got.TotalOperations)
	}
	if got.UniqueOperations != 3 {
		t.Errorf("UniqueOperations = %d, want 3", got.UniqueOperations)
	}
	if got.TotalDuration != 8*time.Second {
		t.Errorf("TotalDuration = %v, want 8s", got.TotalDuration)
	}
	if got.AvgDuration != 2*time.Second {
		t.Errorf("AvgDuration = %v, want 2s", got.AvgDuration)
	}
	if got.TotalMemory != 40 || got.AvgMemory != 10 {
		t.Errorf("memory = %d/%v, want 40/10", got.TotalMemory, got.AvgMemory)
	}
	if got.CacheHitRate != 0.25 {
		t.Errorf("CacheHitRate = %v, want 0.25", got.CacheHitRate)
	}
	want := []string{"a", "b", "c"}
	if fmt.Sprint(got.Operations) != fmt.Sprint(want) {
		t.Errorf("Operations = %v, want %v", got.Operations, want)
	}
}

func TestRecorder_RecordSetsTimestamp(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r := New(WithClock(func() time.Time { return now }))

	r.Record(Sample{Name: "x"})
	if got := r.Samples()[0].Timestamp; !got.Equal(now) {
		t.Errorf("Timestamp = %v, want %v", got, now)
	}
}

func TestRecorder_Reset(t *testing.T) {
	r := New()
	r.Record(Sample{Name: "x"})
	r.Reset()
	if r.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", r.Len())
	}
}

func TestRecorder_ConcurrentRecord(t *testing.T) {
	r := New(WithMaxSamples(100))

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				r.Record(Sample{Name: "op", Duration: time.Millisecond})
			}
		}()
	}
	wg.Wait()

	if r.Len() != 100 {
		t.Errorf("Len() = %d, want 100", r.Len())
	}
}

type histogramCollector struct {
	stats.Noop
	mu       sync.Mutex
	observed map[string][]float64
}

func (c *histogramCollector) ObserveHistogram(name string, v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.observed == nil {
		c.observed = make(map[string][]float64)
	}
	c.observed[name] = append(c.observed[name], v)
}

func TestRecorder_ObservesDuration(t *testing.T) {
	c := &histogramCollector{}
	r := New(WithCollector(c))

	r.Record(Sample{Name: "x", Duration: 1500 * time.Millisecond})

	got := c.observed[stats.MetricOperationDuration]
	if len(got) != 1 || got[0] != 1.5 {
		t.Errorf("observed = %v, want [1.5]", got)
	}
}

func TestTrack(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name    string
		fn      func(context.Context) (string, error)
		want    string
		wantErr error
	}{
		{
			name: "success",
			fn:   func(context.Context) (string, error) { return "ok", nil },
			want: "ok",
		},
		{
			name:    "failure",
			fn:      func(context.Context) (string, error) { return "", errBoom },
			wantErr: errBoom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()

			got, err := Track(context.Background(), r, tt.name, tt.fn, CacheHit(true), WithMetadata("file", "main.go"))
			if got != tt.want || !errors.Is(err, tt.wantErr) {
				t.Fatalf("Track() = %q, %v; want %q, %v", got, err, tt.want, tt.wantErr)
			}

			samples := r.Samples()
			if len(samples) != 1 {
				t.Fatalf("recorded %d samples, want 1", len(samples))
			}
			s := samples[0]
			if s.Name != tt.name || !s.CacheHit {
				t.Errorf("sample = %+v", s)
			}
			if s.Metadata["success"] != (tt.wantErr == nil) {
				t.Errorf("Metadata[success] = %v", s.Metadata["success"])
			}
			if s.Metadata["file"] != "main.go" {
				t.Errorf("Metadata[file] = %v, want main.go", s.Metadata["file"])
			}
			if tt.wantErr != nil && s.Metadata["error"] != tt.wantErr.Error() {
				t.Errorf("Metadata[error] = %v, want %q", s.Metadata["error"], tt.wantErr.Error())
			}
		})
	}
}

func TestTrack_NilRecorder(t *testing.T) {
	got, err := Track(context.Background(), nil, "x", func(context.Context) (int, error) { return 7, nil })
	if got != 7 || err != nil {
		t.Errorf("Track() = %d, %v; want 7, nil", got, err)
	}
}

func TestTrack_RecordsPanics(t *testing.T) {
	r := New()

	func() {
		defer func() {
			if p := recover(); p != "boom" {
				t.Errorf("recover() = %v, want boom", p)
			}
		}()
		_, _ = Track(context.Background(), r, "explode", func(context.Context) (int, error) {
			panic("boom")
		})
		t.Error("Track() returned, want the panic re-raised")
	}()

	samples := r.Samples()
	if len(samples) != 1 {
		t.Fatalf("Samples() len = %d, want 1", len(samples))
	}
	s := samples[0]
	if s.Name != "explode" || s.Metadata["success"] != false {
		t.Errorf("sample = %+v, want a failed explode sample", s)
	}
	if s.Metadata["error"] != "panic: boom" {
		t.Errorf("error metadata = %v, want %q", s.Metadata["error"], "panic: boom")
	}
}
