package recorder

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// TrackOption adjusts the sample produced by Track.
type TrackOption func(*Sample)

// CacheHit marks the tracked call as served from cache.
func CacheHit(hit bool) TrackOption {
	return func(s *Sample) { s.CacheHit = hit }
}

// WithMetadata adds a metadata key to the tracked sample.
func WithMetadata(key string, value any) TrackOption {
	return func(s *Sample) {
		if s.Metadata == nil {
			s.Metadata = make(map[string]any)
		}
		s.Metadata[key] = value
	}
}

// Track runs fn, records its duration and heap delta under name, and returns
// fn's result unchanged. The sample carries "success" metadata and, on
// failure, the error text under "error". A panicking fn is recorded as a
// failure and the panic is re-raised. A nil rec runs fn untracked.
func Track[T any](ctx context.Context, rec *Recorder, name string, fn func(context.Context) (T, error), opts ...TrackOption) (result T, err error) {
	if rec == nil {
		return fn(ctx)
	}

	before := heapAlloc()
	start := time.Now()

	defer func() {
		p := recover()
		failure := err
		if p != nil {
			failure = fmt.Errorf("panic: %v", p)
		}
		rec.record(name, time.Since(start), int64(heapAlloc())-int64(before), failure, opts)
		if p != nil {
			panic(p)
		}
	}()

	return fn(ctx)
}

func (r *Recorder) record(name string, d time.Duration, mem int64, err error, opts []TrackOption) {
	s := Sample{
		Name:       name,
		Duration:   d,
		MemoryUsed: mem,
		Metadata:   map[string]any{"success": err == nil},
	}
	if err != nil {
		s.Metadata["error"] = err.Error()
	}
	for _, opt := range opts {
		opt(&s)
	}

	r.Record(s)
	if err != nil {
		r.logger.Debug("operation failed",
			zap.String("operation", name),
			zap.Duration("duration", d),
			zap.Error(err),
		)
	}
}

// heapAlloc reports the live heap in bytes.
func heapAlloc() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc
}
