package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/discochess/codeassist/internal/stats"
)

// recordingCollector captures batch metrics.
type recordingCollector struct {
	stats.Noop
	mu         sync.Mutex
	dispatches int64
	sizes      []float64
}

func (c *recordingCollector) IncCounter(name string, v int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name == stats.MetricBatchDispatches {
		c.dispatches += v
	}
}

func (c *recordingCollector) ObserveHistogram(name string, v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name == stats.MetricBatchSize {
		c.sizes = append(c.sizes, v)
	}
}

func double(_ context.Context, n int) (int, error) { return n * 2, nil }

func mustNew(t *testing.T, cfg Config, opts ...Option) *Coordinator[int, int] {
	t.Helper()
	c, err := New[int, int](cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero size", Config{BatchSize: 0, MaxWait: time.Second}},
		{"zero wait", Config{BatchSize: 1, MaxWait: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New[int, int](tt.cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestCoordinator_DispatchesOnMaxWait(t *testing.T) {
	c := mustNew(t, Config{BatchSize: 100, MaxWait: 20 * time.Millisecond})

	start := time.Now()
	got, err := c.Submit(context.Background(), 21, double)
	if err != nil || got != 42 {
		t.Fatalf("Submit() = %d, %v; want 42, nil", got, err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("dispatched after %v, want at least MaxWait", elapsed)
	}
}

func TestCoordinator_DispatchesOnBatchSize(t *testing.T) {
	col := &recordingCollector{}
	c := mustNew(t, Config{BatchSize: 3, MaxWait: time.Hour}, WithCollector(col))

	var wg sync.WaitGroup
	results := make([]int, 3)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Submit(context.Background(), i, double)
			if err != nil {
				t.Errorf("Submit(%d) error = %v", i, err)
			}
			results[i] = v
		}()
	}
	wg.Wait()

	for i, v := range results {
		if v != i*2 {
			t.Errorf("results[%d] = %d, want %d", i, v, i*2)
		}
	}
	col.mu.Lock()
	defer col.mu.Unlock()
	if col.dispatches != 1 || len(col.sizes) != 1 || col.sizes[0] != 3 {
		t.Errorf("dispatches = %d, sizes = %v; want one batch of 3", col.dispatches, col.sizes)
	}
}

func TestCoordinator_IsolatesFailures(t *testing.T) {
	errBad := errors.New("bad payload")
	c := mustNew(t, Config{BatchSize: 3, MaxWait: time.Hour})

	process := func(_ context.Context, n int) (int, error) {
		if n == 1 {
			return 0, errBad
		}
		return n * 10, nil
	}

	type result struct {
		v   int
		err error
	}
	results := make([]result, 3)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Submit(context.Background(), i, process)
			results[i] = result{v, err}
		}()
	}
	wg.Wait()

	if results[0].err != nil || results[0].v != 0 {
		t.Errorf("request 0 = %+v, want 0, nil", results[0])
	}
	if !errors.Is(results[1].err, errBad) {
		t.Errorf("request 1 error = %v, want %v", results[1].err, errBad)
	}
	if results[2].err != nil || results[2].v != 20 {
		t.Errorf("request 2 = %+v, want 20, nil", results[2])
	}
}

func TestCoordinator_RecoversPanic(t *testing.T) {
	c := mustNew(t, Config{BatchSize: 1, MaxWait: time.Hour})

	_, err := c.Submit(context.Background(), 1, func(context.Context, int) (int, error) {
		panic("kaboom")
	})
	if !errors.Is(err, ErrPanic) {
		t.Fatalf("Submit() error = %v, want ErrPanic", err)
	}

	got, err := c.Submit(context.Background(), 4, double)
	if err != nil || got != 8 {
		t.Errorf("Submit() after panic = %d, %v; want 8, nil", got, err)
	}
}

func TestCoordinator_NoStrandedRequests(t *testing.T) {
	col := &recordingCollector{}
	c := mustNew(t, Config{BatchSize: 7, MaxWait: 5 * time.Millisecond}, WithCollector(col))

	const n = 100
	var failures atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Submit(context.Background(), i, func(ctx context.Context, n int) (int, error) {
				time.Sleep(time.Millisecond)
				return double(ctx, n)
			})
			if err != nil || v != i*2 {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	if f := failures.Load(); f != 0 {
		t.Fatalf("%d requests got a wrong result", f)
	}
	if p := c.Pending(); p != 0 {
		t.Errorf("Pending() = %d, want 0", p)
	}

	col.mu.Lock()
	defer col.mu.Unlock()
	var total float64
	for _, s := range col.sizes {
		if s > n {
			t.Errorf("batch size %v larger than submitted requests", s)
		}
		total += s
	}
	if total != n {
		t.Errorf("dispatched %v requests, want %d", total, n)
	}
}

func TestCoordinator_ContextCancel(t *testing.T) {
	c := mustNew(t, Config{BatchSize: 10, MaxWait: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := c.Submit(ctx, 1, double)
		errc <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Submit() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Submit() did not return after cancel")
	}
}

func TestCoordinator_Close(t *testing.T) {
	c, err := New[int, int](Config{BatchSize: 10, MaxWait: time.Hour})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// A queued request is still dispatched by Close.
	resc := make(chan int, 1)
	go func() {
		v, _ := c.Submit(context.Background(), 5, double)
		resc <- v
	}()
	for c.Pending() == 0 {
		time.Sleep(time.Millisecond)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	select {
	case v := <-resc:
		if v != 10 {
			t.Errorf("queued Submit() = %d, want 10", v)
		}
	case <-time.After(time.Second):
		t.Fatal("queued request was not drained by Close")
	}

	if _, err := c.Submit(context.Background(), 1, double); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit() after Close error = %v, want ErrClosed", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func ExampleCoordinator_Submit() {
	c, _ := New[string, int](Config{BatchSize: 1, MaxWait: time.Second})
	defer c.Close()

	n, _ := c.Submit(context.Background(), "hello", func(_ context.Context, s string) (int, error) {
		return len(s), nil
	})
	fmt.Println(n)
	// Output: 5
}
