package codeassist

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/codeassist/internal/batch"
	"github.com/discochess/codeassist/internal/cache"
	"github.com/discochess/codeassist/internal/config"
	"github.com/discochess/codeassist/internal/limiter"
	"github.com/discochess/codeassist/internal/provider"
	"github.com/discochess/codeassist/internal/provider/autoprovider"
	"github.com/discochess/codeassist/internal/security"
	"github.com/discochess/codeassist/internal/session"
	"github.com/discochess/codeassist/internal/sessionstore"
	"github.com/discochess/codeassist/internal/stats"
	"github.com/discochess/codeassist/internal/store"
	"github.com/discochess/codeassist/internal/watchdog"
)

// Option configures a Client.
type Option interface {
	apply(*options)
}

// ProjectFilter selects the files a project scan looks at.
type ProjectFilter struct {
	Include     []string // base-name globs; empty includes every file
	Ignore      []string // matched against base names and relative paths
	MaxFileSize int64    // 0 means no limit
}

// Flags are informational settings reported by Status.
type Flags struct {
	Debug        bool
	Verbose      bool
	ToolsEnabled bool
}

// options holds the client configuration.
type options struct {
	provider        provider.Provider
	model           string
	generate        []provider.GenerateOption
	store           store.Store
	sessionID       string
	contextWindow   int
	autoSave        bool
	cache           *cache.Config
	janitorInterval time.Duration
	maxConcurrent   int
	batch           batch.Config
	watchdog        *watchdog.Config
	security        security.Config
	rateLimit       *rateLimit
	project         ProjectFilter
	flags           Flags
	stats           stats.Collector
	logger          *zap.Logger
}

type rateLimit struct {
	max    int
	window time.Duration
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	d := config.Default()
	return options{
		contextWindow: session.DefaultWindow,
		autoSave:      true,
		cache: &cache.Config{
			MaxEntries:     1000,
			MaxMemoryBytes: 100 << 20,
			DefaultTTL:     time.Hour,
		},
		janitorInterval: time.Minute,
		maxConcurrent:   limiter.DefaultMaxConcurrent,
		batch:           batch.DefaultConfig(),
		security:        security.DefaultConfig(),
		project: ProjectFilter{
			Include:     d.Project.IncludePatterns,
			Ignore:      d.Project.IgnorePatterns,
			MaxFileSize: d.Project.MaxFileSize,
		},
		flags:  Flags{ToolsEnabled: true},
		stats:  stats.NewNoop(),
		logger: zap.NewNop(),
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithProvider sets the LLM backend. It is required.
func WithProvider(p provider.Provider) Option {
	return optionFunc(func(o *options) {
		o.provider = p
	})
}

// WithModel sets the model name reported by Status.
func WithModel(name string) Option {
	return optionFunc(func(o *options) {
		o.model = name
	})
}

// WithGeneration sets the token limit and temperature sent with every
// provider call.
func WithGeneration(maxTokens int, temperature float32) Option {
	return optionFunc(func(o *options) {
		o.generate = []provider.GenerateOption{
			provider.WithMaxTokens(maxTokens),
			provider.WithTemperature(temperature),
		}
	})
}

// WithStore persists the session to s. The client closes s on Close.
func WithStore(s store.Store) Option {
	return optionFunc(func(o *options) {
		o.store = s
	})
}

// WithSessionID resumes the session saved under id. It has no effect
// without a store.
func WithSessionID(id string) Option {
	return optionFunc(func(o *options) {
		o.sessionID = id
	})
}

// WithContextWindow sets how many conversation messages survive trimming.
func WithContextWindow(n int) Option {
	return optionFunc(func(o *options) {
		o.contextWindow = n
	})
}

// WithAutoSave saves the session after every change. Default is true.
func WithAutoSave(enabled bool) Option {
	return optionFunc(func(o *options) {
		o.autoSave = enabled
	})
}

// WithCache bounds the provider response cache.
func WithCache(cfg cache.Config) Option {
	return optionFunc(func(o *options) {
		o.cache = &cfg
	})
}

// WithoutCache disables the provider response cache.
func WithoutCache() Option {
	return optionFunc(func(o *options) {
		o.cache = nil
	})
}

// WithMaxConcurrent caps the number of provider calls in flight.
func WithMaxConcurrent(n int) Option {
	return optionFunc(func(o *options) {
		o.maxConcurrent = n
	})
}

// WithBatch configures how AnalyzeBatch groups files.
func WithBatch(cfg batch.Config) Option {
	return optionFunc(func(o *options) {
		o.batch = cfg
	})
}

// WithWatchdog starts a resource watchdog for the lifetime of the client.
func WithWatchdog(cfg watchdog.Config) Option {
	return optionFunc(func(o *options) {
		o.watchdog = &cfg
	})
}

// WithSecurity sets the input validation rules.
func WithSecurity(cfg security.Config) Option {
	return optionFunc(func(o *options) {
		o.security = cfg
	})
}

// WithRateLimit allows at most max operations per window for the session.
func WithRateLimit(max int, window time.Duration) Option {
	return optionFunc(func(o *options) {
		o.rateLimit = &rateLimit{max: max, window: window}
	})
}

// WithProjectFilter sets the file filter used by AnalyzeProject.
func WithProjectFilter(f ProjectFilter) Option {
	return optionFunc(func(o *options) {
		o.project = f
	})
}

// WithFlags sets the informational flags reported by Status.
func WithFlags(f Flags) Option {
	return optionFunc(func(o *options) {
		o.flags = f
	})
}

// WithStats sets the stats collector.
// If not set, a no-op collector is used.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.stats = c
	})
}

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}

// WithConfig configures the client from a loaded configuration.
// It builds the provider named by the model and opens the session store.
// This is the recommended way to create a client from a config file.
func WithConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Option, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	p, err := autoprovider.New(autoprovider.Settings{
		Model:           cfg.Model.Name,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		Timeout:         cfg.Model.Timeout,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating provider: %w", err)
	}

	st, err := sessionstore.Open(ctx, cfg.Session, logger)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	perf := cfg.Performance
	return optionFunc(func(o *options) {
		o.provider = p
		o.model = cfg.Model.Name
		o.generate = []provider.GenerateOption{
			provider.WithMaxTokens(cfg.Model.MaxTokens),
			provider.WithTemperature(cfg.Model.Temperature),
		}
		o.store = st
		o.contextWindow = cfg.Agent.ContextWindow
		o.autoSave = cfg.Agent.AutoSave
		o.cache = nil
		if perf.EnableCache {
			o.cache = &cache.Config{
				MaxEntries:     perf.CacheEntries,
				MaxMemoryBytes: int64(perf.CacheMemoryMB) << 20,
				DefaultTTL:     perf.CacheTTL,
			}
		}
		o.maxConcurrent = perf.MaxConcurrent
		o.batch = batch.Config{BatchSize: perf.BatchSize, MaxWait: perf.BatchMaxWait}
		o.watchdog = nil
		if perf.EnableWatchdog {
			wd := watchdog.DefaultConfig()
			wd.MaxMemoryBytes = uint64(perf.MaxMemoryMB) << 20
			wd.MaxCPUPercent = perf.MaxCPUPercent
			o.watchdog = &wd
		}
		o.security = cfg.Security
		o.project = ProjectFilter{
			Include:     cfg.Project.IncludePatterns,
			Ignore:      cfg.Project.IgnorePatterns,
			MaxFileSize: cfg.Project.MaxFileSize,
		}
		o.flags = Flags{
			Debug:        cfg.Agent.Debug,
			Verbose:      cfg.Agent.Verbose,
			ToolsEnabled: cfg.Agent.EnableTools,
		}
	}), nil
}
