// Package simulation replays synthetic coding-session workloads against a
// codeassist client backed by a latency-injected provider.
package simulation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/discochess/codeassist"
	"github.com/discochess/codeassist/internal/cache"
	"github.com/discochess/codeassist/internal/provider"
	"github.com/discochess/codeassist/internal/provider/memprovider"
)

// Workload describes one simulated run.
type Workload struct {
	// Name labels the run in reports.
	Name string

	// Requests is the number of ExplainCode calls issued.
	Requests int

	// DistinctSnippets is how many different snippets the requests cycle
	// through. Fewer snippets means more repeated prompts.
	DistinctSnippets int

	// Concurrency is the number of callers issuing requests at once.
	Concurrency int

	// Latency is the simulated provider round trip.
	Latency time.Duration
}

// DefaultWorkload returns a small workload with heavy prompt reuse.
func DefaultWorkload() Workload {
	return Workload{
		Name:             "default",
		Requests:         200,
		DistinctSnippets: 20,
		Concurrency:      8,
		Latency:          20 * time.Millisecond,
	}
}

func (w Workload) validate() error {
	if w.Requests <= 0 || w.DistinctSnippets <= 0 || w.Concurrency <= 0 {
		return fmt.Errorf("simulation: invalid workload %+v", w)
	}
	return nil
}

// Result holds the measurements of one run.
type Result struct {
	Name string

	// Latencies holds the per-request latency in milliseconds, in issue order.
	Latencies []float64

	Errors        int
	ProviderCalls int
	Elapsed       time.Duration

	CacheEnabled bool
	Cache        cache.Stats
}

// Simulator runs workloads against freshly built clients.
type Simulator struct {
	opts []codeassist.Option
}

// NewSimulator returns a simulator whose clients are built with opts on top
// of the simulated provider.
func NewSimulator(opts ...codeassist.Option) *Simulator {
	return &Simulator{opts: opts}
}

// Run executes w and returns its measurements. Each run uses a new client so
// cache state never leaks between runs.
func (s *Simulator) Run(ctx context.Context, w Workload) (*Result, error) {
	if err := w.validate(); err != nil {
		return nil, err
	}

	p := memprovider.NewFunc(func(ctx context.Context, msgs []provider.Message) (string, error) {
		t := time.NewTimer(w.Latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
		return fmt.Sprintf("explanation of %d bytes", len(msgs[len(msgs)-1].Content)), nil
	})

	opts := append([]codeassist.Option{
		codeassist.WithProvider(p),
		codeassist.WithMaxConcurrent(w.Concurrency),
	}, s.opts...)
	client, err := codeassist.New(opts...)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	res := &Result{
		Name:      w.Name,
		Latencies: make([]float64, w.Requests),
	}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.Concurrency)
	start := time.Now()
	for i := range w.Requests {
		g.Go(func() error {
			began := time.Now()
			_, err := client.ExplainCode(ctx, Snippet(i%w.DistinctSnippets), "go")
			res.Latencies[i] = float64(time.Since(began)) / float64(time.Millisecond)
			if err != nil {
				mu.Lock()
				res.Errors++
				mu.Unlock()
			}
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	res.Elapsed = time.Since(start)
	res.ProviderCalls = p.CallCount()
	res.Cache, res.CacheEnabled = client.CacheStats()
	return res, nil
}

// Snippet returns the n-th synthetic Go function.
func Snippet(n int) string {
	return fmt.Sprintf("func value%d() int {\n\treturn %d\n}\n", n, n*n)
}
