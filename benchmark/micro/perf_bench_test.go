package micro

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/discochess/codeassist"
	"github.com/discochess/codeassist/benchmark/simulation"
	"github.com/discochess/codeassist/internal/cache"
	"github.com/discochess/codeassist/internal/limiter"
	"github.com/discochess/codeassist/internal/provider/memprovider"
	"github.com/discochess/codeassist/internal/recorder"
	"github.com/discochess/codeassist/internal/sizeest"
)

var sink any

// BenchmarkCache_GetHit measures a hit on a warm cache.
func BenchmarkCache_GetHit(b *testing.B) {
	c, err := cache.New[string](cache.Config{MaxEntries: 1024, MaxMemoryBytes: 1 << 20})
	if err != nil {
		b.Fatal(err)
	}
	for i := range 1024 {
		c.Set(fmt.Sprint(i), "value")
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sink, _ = c.Get(fmt.Sprint(i % 1024))
	}
}

// BenchmarkCache_SetEvict measures inserts into a full cache.
func BenchmarkCache_SetEvict(b *testing.B) {
	c, err := cache.New[string](cache.Config{MaxEntries: 128, MaxMemoryBytes: 1 << 20})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Set(fmt.Sprint(i), "value")
	}
}

// BenchmarkSizeEstimate measures estimating a nested value.
func BenchmarkSizeEstimate(b *testing.B) {
	v := map[string]any{
		"content": simulation.Snippet(7),
		"tags":    []string{"go", "explain", "cached"},
		"tokens":  42,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sink = sizeest.EstimateAny(v)
	}
}

// BenchmarkLimiter_Submit measures the overhead of an uncontended submit.
func BenchmarkLimiter_Submit(b *testing.B) {
	l, err := limiter.New(8)
	if err != nil {
		b.Fatal(err)
	}
	defer l.Shutdown(context.Background(), true)
	ctx := context.Background()
	task := func(context.Context) (int, error) { return 1, nil }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := limiter.Submit(ctx, l, task); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkRecorder_Track measures tracking a no-op operation.
func BenchmarkRecorder_Track(b *testing.B) {
	rec := recorder.New()
	ctx := context.Background()
	fn := func(context.Context) (int, error) { return 0, nil }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sink, _ = recorder.Track(ctx, rec, "noop", fn)
	}
}

// BenchmarkExplain_Cached measures a full client call answered from the
// response cache.
func BenchmarkExplain_Cached(b *testing.B) {
	benchmarkExplain(b)
}

// BenchmarkExplain_Uncached measures a full client call that always reaches
// the provider.
func BenchmarkExplain_Uncached(b *testing.B) {
	benchmarkExplain(b, codeassist.WithoutCache())
}

func benchmarkExplain(b *testing.B, opts ...codeassist.Option) {
	opts = append([]codeassist.Option{
		codeassist.WithProvider(memprovider.New("explained")),
		codeassist.WithAutoSave(false),
	}, opts...)
	client, err := codeassist.New(opts...)
	if err != nil {
		b.Fatal(err)
	}
	defer client.Close()

	ctx := context.Background()
	code := simulation.Snippet(1)

	b.ResetTimer()
	start := time.Now()
	for i := 0; i < b.N; i++ {
		if _, err := client.ExplainCode(ctx, code, "go"); err != nil {
			b.Fatal(err)
		}
	}
	b.ReportMetric(float64(time.Since(start).Microseconds())/float64(b.N), "us/call")
}
