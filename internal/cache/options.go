package cache

import (
	"time"

	"go.uber.org/zap"

	"github.com/discochess/codeassist/internal/stats"
)

// Option configures a Cache.
type Option func(*options)

type options struct {
	collector stats.Collector
	logger    *zap.Logger
	now       func() time.Time
}

func defaultOptions() options {
	return options{
		collector: stats.NewNoop(),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
}

// WithCollector reports hits, misses, evictions and size to c.
func WithCollector(c stats.Collector) Option {
	return func(o *options) {
		o.collector = stats.OrNoop(c)
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}
