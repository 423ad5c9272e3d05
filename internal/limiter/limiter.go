// Package limiter bounds how many tasks run at once.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/discochess/codeassist/internal/stats"
)

// DefaultMaxConcurrent is the permit count used by the CLI and fx modules.
const DefaultMaxConcurrent = 10

var (
	// ErrShutdown is returned for tasks submitted after Shutdown.
	ErrShutdown = errors.New("limiter: shut down")

	// ErrInvalidConfig is returned by New when maxConcurrent is below 1.
	ErrInvalidConfig = errors.New("limiter: invalid config")
)

// Task is a unit of work run under a permit.
type Task[T any] func(ctx context.Context) (T, error)

// Limiter admits at most a fixed number of concurrent tasks.
// A Limiter is safe for concurrent use by multiple goroutines.
type Limiter struct {
	max       int64
	sem       *semaphore.Weighted
	active    atomic.Int64
	closed    atomic.Bool
	collector stats.Collector
	logger    *zap.Logger
}

// New creates a Limiter with maxConcurrent permits.
func New(maxConcurrent int, opts ...Option) (*Limiter, error) {
	if maxConcurrent < 1 {
		return nil, fmt.Errorf("%w: maxConcurrent must be at least 1, got %d", ErrInvalidConfig, maxConcurrent)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}

	return &Limiter{
		max:       int64(maxConcurrent),
		sem:       semaphore.NewWeighted(int64(maxConcurrent)),
		collector: o.collector,
		logger:    o.logger,
	}, nil
}

// MaxConcurrent returns the number of permits.
func (l *Limiter) MaxConcurrent() int {
	return int(l.max)
}

// Active returns the number of tasks currently holding a permit.
func (l *Limiter) Active() int {
	return int(l.active.Load())
}

// Submit waits for a permit, runs task and returns its outcome unchanged.
// The permit is released on every path, including a panicking task.
func Submit[T any](ctx context.Context, l *Limiter, task Task[T]) (T, error) {
	var zero T
	if l.closed.Load() {
		return zero, ErrShutdown
	}

	if err := l.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}
	defer l.sem.Release(1)

	if l.closed.Load() {
		return zero, ErrShutdown
	}

	l.collector.SetGauge(stats.MetricLimiterActive, l.active.Add(1))
	defer func() {
		l.collector.SetGauge(stats.MetricLimiterActive, l.active.Add(-1))
	}()

	return task(ctx)
}

// SubmitAll runs every task under the limiter and returns their results in
// input order. It waits for all tasks to finish and returns the first error
// to occur; results of failed tasks are left as zero values.
func SubmitAll[T any](ctx context.Context, l *Limiter, tasks []Task[T]) ([]T, error) {
	results := make([]T, len(tasks))

	var g errgroup.Group
	for i, task := range tasks {
		g.Go(func() error {
			v, err := Submit(ctx, l, task)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Shutdown rejects further submits. With wait set it blocks until every
// in-flight task has released its permit or ctx is done; otherwise it returns
// at once and in-flight tasks keep running.
func (l *Limiter) Shutdown(ctx context.Context, wait bool) error {
	if l.closed.CompareAndSwap(false, true) {
		l.logger.Debug("limiter shutting down", zap.Int64("active", l.active.Load()))
	}
	if !wait {
		return nil
	}

	// Holding every permit means nothing else is running.
	if err := l.sem.Acquire(ctx, l.max); err != nil {
		return fmt.Errorf("waiting for in-flight tasks: %w", err)
	}
	l.sem.Release(l.max)
	return nil
}
