// Package batch groups concurrent requests into batches and dispatches each
// batch at once, while every caller waits only for its own result.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/codeassist/internal/stats"
)

var (
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("batch: coordinator closed")

	// ErrInvalidConfig is returned by New for a non-positive batch size or wait.
	ErrInvalidConfig = errors.New("batch: invalid config")

	// ErrPanic wraps a panic raised by a request's process function.
	ErrPanic = errors.New("batch: process panicked")
)

// Config controls when a batch is dispatched.
type Config struct {
	// BatchSize dispatches the queue as soon as it holds this many requests.
	BatchSize int

	// MaxWait dispatches whatever is queued once this much time has passed
	// since the cycle began.
	MaxWait time.Duration
}

// DefaultConfig returns a batch size of 10 and a 100ms wait.
func DefaultConfig() Config {
	return Config{BatchSize: 10, MaxWait: 100 * time.Millisecond}
}

func (c Config) validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: BatchSize must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.MaxWait <= 0 {
		return fmt.Errorf("%w: MaxWait must be positive, got %s", ErrInvalidConfig, c.MaxWait)
	}
	return nil
}

// ProcessFunc handles one request payload.
type ProcessFunc[P, R any] func(ctx context.Context, payload P) (R, error)

type outcome[R any] struct {
	value R
	err   error
}

type request[P, R any] struct {
	ctx        context.Context
	payload    P
	process    ProcessFunc[P, R]
	result     chan outcome[R] // buffered, written once
	enqueuedAt time.Time
}

func (r *request[P, R]) run() {
	var out outcome[R]
	defer func() {
		if p := recover(); p != nil {
			out = outcome[R]{err: fmt.Errorf("%w: %v", ErrPanic, p)}
		}
		r.result <- out
	}()

	v, err := r.process(r.ctx, r.payload)
	out = outcome[R]{value: v, err: err}
}

// Coordinator batches requests of payload type P producing results of type R.
// A Coordinator is safe for concurrent use by multiple goroutines.
type Coordinator[P, R any] struct {
	cfg       Config
	collector stats.Collector
	logger    *zap.Logger

	mu      sync.Mutex
	queue   []*request[P, R]
	running bool
	closed  bool

	full      chan struct{} // signals the running cycle that BatchSize was reached
	done      chan struct{}
	closeOnce sync.Once
	cycles    sync.WaitGroup
}

// New creates a Coordinator.
func New[P, R any](cfg Config, opts ...Option) (*Coordinator[P, R], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}

	return &Coordinator[P, R]{
		cfg:       cfg,
		collector: o.collector,
		logger:    o.logger,
		full:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}, nil
}

// Submit queues payload and blocks until process has handled it as part of a
// batch, or ctx is done. The returned error is process's own error, unchanged.
func (c *Coordinator[P, R]) Submit(ctx context.Context, payload P, process ProcessFunc[P, R]) (R, error) {
	var zero R
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	req := &request[P, R]{
		ctx:        ctx,
		payload:    payload,
		process:    process,
		result:     make(chan outcome[R], 1),
		enqueuedAt: time.Now(),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return zero, ErrClosed
	}
	c.queue = append(c.queue, req)
	if len(c.queue) >= c.cfg.BatchSize {
		select {
		case c.full <- struct{}{}:
		default:
		}
	}
	if !c.running {
		c.running = true
		c.cycles.Add(1)
		go c.run()
	}
	c.mu.Unlock()

	select {
	case out := <-req.result:
		return out.value, out.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Pending returns the number of queued requests not yet dispatched.
func (c *Coordinator[P, R]) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Close rejects further submits, dispatches anything still queued without
// waiting for MaxWait, and returns once the last cycle has finished.
// Close must not be called from a ProcessFunc.
func (c *Coordinator[P, R]) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.closeOnce.Do(func() { close(c.done) })
	c.cycles.Wait()
	return nil
}

// run executes cycles until the queue is empty.
func (c *Coordinator[P, R]) run() {
	defer c.cycles.Done()

	for {
		c.waitForBatch()

		c.mu.Lock()
		batch := c.queue
		c.queue = nil
		select {
		case <-c.full:
		default:
		}
		if len(batch) == 0 {
			c.running = false
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		c.dispatch(batch)

		// Requests that arrived during dispatch start the next cycle now.
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.running = false
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
	}
}

func (c *Coordinator[P, R]) waitForBatch() {
	c.mu.Lock()
	ready := len(c.queue) >= c.cfg.BatchSize
	c.mu.Unlock()
	if ready {
		return
	}

	timer := time.NewTimer(c.cfg.MaxWait)
	defer timer.Stop()

	select {
	case <-c.full:
	case <-timer.C:
	case <-c.done:
	}
}

func (c *Coordinator[P, R]) dispatch(batch []*request[P, R]) {
	c.collector.IncCounter(stats.MetricBatchDispatches, 1)
	c.collector.ObserveHistogram(stats.MetricBatchSize, float64(len(batch)))
	c.logger.Debug("dispatching batch",
		zap.Int("size", len(batch)),
		zap.Duration("oldestWait", time.Since(batch[0].enqueuedAt)),
	)

	var wg sync.WaitGroup
	for _, req := range batch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req.run()
		}()
	}
	wg.Wait()
}
