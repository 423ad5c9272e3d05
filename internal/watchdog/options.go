package watchdog

import (
	"go.uber.org/zap"

	"github.com/discochess/codeassist/internal/stats"
)

// Option configures a Watchdog.
type Option interface {
	apply(*options)
}

type options struct {
	sampler   Sampler
	collector stats.Collector
	logger    *zap.Logger
}

func defaultOptions() options {
	return options{
		collector: stats.NewNoop(),
		logger:    zap.NewNop(),
	}
}

type optionFunc func(*options)

var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithSampler replaces the default /proc or runtime sampler.
func WithSampler(s Sampler) Option {
	return optionFunc(func(o *options) {
		o.sampler = s
	})
}

// WithCollector publishes samples and mitigations to c.
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
