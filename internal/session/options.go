package session

import (
	"time"

	"go.uber.org/zap"

	"github.com/discochess/codeassist/internal/store"
)

// Option configures a Manager.
type Option func(*options)

type options struct {
	id       string
	window   int
	autoSave bool
	store    store.Store
	logger   *zap.Logger
	now      func() time.Time
}

func defaultOptions() options {
	return options{
		window: DefaultWindow,
		logger: zap.NewNop(),
		now:    time.Now,
	}
}

// WithWindow sets the number of non-system messages kept after trimming.
// Values below 1 are ignored.
func WithWindow(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.window = n
		}
	}
}

// WithStore persists snapshots to s.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithAutoSave saves after every mutation. It has no effect without a store.
func WithAutoSave(enabled bool) Option {
	return func(o *options) { o.autoSave = enabled }
}

// WithID uses id instead of a generated UUID.
func WithID(id string) Option {
	return func(o *options) { o.id = id }
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
	return func(o *options) { o.now = now }
}
