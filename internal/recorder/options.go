package recorder

import (
	"time"

	"go.uber.org/zap"

	"github.com/discochess/codeassist/internal/stats"
)

// Option configures a Recorder.
type Option interface {
	apply(*options)
}

type options struct {
	maxSamples int
	collector  stats.Collector
	logger     *zap.Logger
	now        func() time.Time
}

func defaultOptions() options {
	return options{
		maxSamples: DefaultMaxSamples,
		collector:  stats.NewNoop(),
		logger:     zap.NewNop(),
		now:        time.Now,
	}
}

type optionFunc func(*options)

var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithMaxSamples sets how many samples are retained.
// Values below 1 are ignored.
func WithMaxSamples(n int) Option {
	return optionFunc(func(o *options) {
		if n > 0 {
			o.maxSamples = n
		}
	})
}

// WithCollector observes every sample's duration into c.
func WithCollector(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.collector = stats.OrNoop(c)
	})
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		if l != nil {
			o.logger = l
		}
	})
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(o *options) {
		o.now = now
	})
}
