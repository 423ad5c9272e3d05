// Package watchdog periodically samples process memory and CPU and applies
// mild mitigations when they exceed configured thresholds.
//
// Sampling failures are logged and never surfaced to callers.
package watchdog

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/codeassist/internal/stats"
)

// Config holds the watchdog thresholds and timings.
type Config struct {
	Interval       time.Duration
	MaxMemoryBytes uint64
	MaxCPUPercent  float64
	ThrottlePause  time.Duration
	ErrorBackoff   time.Duration
}

// DefaultConfig returns a 5s interval, a 1 GiB memory threshold and an 80%
// CPU threshold.
func DefaultConfig() Config {
	return Config{
		Interval:       5 * time.Second,
		MaxMemoryBytes: 1 << 30,
		MaxCPUPercent:  80,
		ThrottlePause:  500 * time.Millisecond,
		ErrorBackoff:   10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.MaxMemoryBytes == 0 {
		c.MaxMemoryBytes = d.MaxMemoryBytes
	}
	if c.MaxCPUPercent <= 0 {
		c.MaxCPUPercent = d.MaxCPUPercent
	}
	if c.ThrottlePause <= 0 {
		c.ThrottlePause = d.ThrottlePause
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = d.ErrorBackoff
	}
	return c
}

// Watchdog monitors the current process in the background.
type Watchdog struct {
	cfg        Config
	sampler    Sampler
	collector  stats.Collector
	logger     *zap.Logger
	freeMemory func()

	mu      sync.Mutex
	running bool
	gen     uint64 // incremented by Start; a loop exits once its gen is stale
}

// New creates a stopped Watchdog. Zero fields of cfg take their defaults.
func New(cfg Config, opts ...Option) *Watchdog {
	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}

	sampler := o.sampler
	if sampler == nil {
		sampler = DefaultSampler(o.logger)
	}

	return &Watchdog{
		cfg:        cfg.withDefaults(),
		sampler:    sampler,
		collector:  o.collector,
		logger:     o.logger,
		freeMemory: debug.FreeOSMemory,
	}
}

// DefaultSampler returns a ProcSampler, or a RuntimeSampler where /proc is
// unavailable.
func DefaultSampler(logger *zap.Logger) Sampler {
	s, err := NewProcSampler()
	if err != nil {
		logger.Debug("falling back to runtime memory sampling", zap.Error(err))
		return RuntimeSampler{}
	}
	return s
}

// Start begins monitoring until Stop is called or ctx is done.
// Calling Start on a running watchdog does nothing.
func (w *Watchdog) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}
	w.running = true
	w.gen++
	go w.loop(ctx, w.gen)

	w.logger.Info("resource monitoring started",
		zap.Duration("interval", w.cfg.Interval),
		zap.Uint64("maxMemoryBytes", w.cfg.MaxMemoryBytes),
		zap.Float64("maxCPUPercent", w.cfg.MaxCPUPercent),
	)
}

// Stop asks the monitoring loop to exit. The loop notices at its next
// wake-up.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		w.running = false
		w.logger.Info("resource monitoring stopped")
	}
}

// Running reports whether the watchdog is started.
func (w *Watchdog) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watchdog) current(gen uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running && w.gen == gen
}

func (w *Watchdog) loop(ctx context.Context, gen uint64) {
	for w.current(gen) {
		wait := w.cfg.Interval
		if err := w.check(ctx); err != nil {
			w.logger.Warn("resource check failed", zap.Error(err))
			wait = w.cfg.ErrorBackoff
		}

		if !sleep(ctx, wait) {
			w.mu.Lock()
			if w.gen == gen {
				w.running = false
			}
			w.mu.Unlock()
			return
		}
	}
}

// check takes one sample and applies mitigations. A panic during the check
// is returned as an error.
func (w *Watchdog) check(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("resource check panicked: %v", p)
		}
	}()

	u, err := w.sampler.Sample()
	if err != nil {
		return fmt.Errorf("sampling process: %w", err)
	}

	w.collector.SetGauge(stats.MetricProcessMemory, int64(u.MemoryBytes))
	if u.MemoryBytes > w.cfg.MaxMemoryBytes {
		w.logger.Warn("high memory usage, forcing garbage collection",
			zap.Uint64("memoryBytes", u.MemoryBytes),
			zap.Uint64("maxMemoryBytes", w.cfg.MaxMemoryBytes),
		)
		w.collector.IncCounter(stats.MetricWatchdogActions, 1)
		w.freeMemory()
	}

	if !u.HasCPU {
		return nil
	}
	w.collector.SetGauge(stats.MetricProcessCPU, int64(u.CPUPercent))
	if u.CPUPercent > w.cfg.MaxCPUPercent {
		w.logger.Warn("high CPU usage, throttling",
			zap.Float64("cpuPercent", u.CPUPercent),
			zap.Duration("pause", w.cfg.ThrottlePause),
		)
		w.collector.IncCounter(stats.MetricWatchdogActions, 1)
		sleep(ctx, w.cfg.ThrottlePause)
	}
	return nil
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
