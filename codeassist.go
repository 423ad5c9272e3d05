// Package codeassist is an AI coding helper. It analyzes, generates, reviews,
// fixes and explains code through an LLM provider, keeping a persistent
// session of the conversation and the files it has seen.
//
// Every provider call goes through a bounded response cache, a concurrency
// limiter and an operation recorder.
//
// Example usage:
//
//	cfg, err := config.Load(".codeassist/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	opt, err := codeassist.WithConfig(ctx, cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := codeassist.New(opt)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	code, err := client.GenerateCode(ctx, "parse a CSV line", "go", "")
package codeassist

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/codeassist/internal/analyzer"
	"github.com/discochess/codeassist/internal/batch"
	"github.com/discochess/codeassist/internal/cache"
	"github.com/discochess/codeassist/internal/generator"
	"github.com/discochess/codeassist/internal/lang"
	"github.com/discochess/codeassist/internal/limiter"
	"github.com/discochess/codeassist/internal/provider"
	"github.com/discochess/codeassist/internal/recorder"
	"github.com/discochess/codeassist/internal/security"
	"github.com/discochess/codeassist/internal/session"
	"github.com/discochess/codeassist/internal/stats"
	"github.com/discochess/codeassist/internal/store"
	"github.com/discochess/codeassist/internal/watchdog"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrClosed indicates the client has been closed.
	ErrClosed = errors.New("codeassist: client closed")

	// ErrNoProvider indicates no provider was configured.
	ErrNoProvider = errors.New("codeassist: no provider configured")

	// ErrInvalidInput indicates input rejected by validation.
	// The concrete error is a *ValidationError.
	ErrInvalidInput = errors.New("codeassist: invalid input")

	// ErrRateLimited indicates the session exceeded its request rate.
	ErrRateLimited = errors.New("codeassist: rate limit exceeded")

	// ErrFileTooLarge indicates a file above the configured size limit.
	ErrFileTooLarge = errors.New("codeassist: file too large")
)

// shutdownTimeout bounds how long Close waits for in-flight provider calls.
const shutdownTimeout = 30 * time.Second

// Client is the coding assistant.
// A Client is safe for concurrent use by multiple goroutines.
type Client struct {
	model    string
	provider provider.Provider
	generate []provider.GenerateOption

	assistant *provider.Assistant
	analyzer  *analyzer.Analyzer
	generator *generator.Generator

	session *session.Manager
	store   store.Store

	responses *cache.Cache[*provider.Response] // nil when caching is off
	limiter   *limiter.Limiter
	recorder  *recorder.Recorder
	batcher   *batch.Coordinator[string, *FileAnalysis]
	watchdog  *watchdog.Watchdog // nil when not configured

	validator *security.Validator
	rate      *security.RateLimiter // nil when not configured
	project   ProjectFilter
	flags     Flags

	stats  stats.Collector
	logger *zap.Logger

	stop   context.CancelFunc
	closed atomic.Bool
}

// New creates a new Client with the given options.
// A provider is required, either through WithProvider or WithConfig.
func New(opts ...Option) (*Client, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	if cfg.provider == nil {
		return nil, ErrNoProvider
	}
	col := stats.OrNoop(cfg.stats)
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lim, err := limiter.New(cfg.maxConcurrent,
		limiter.WithCollector(col),
		limiter.WithLogger(logger.Named("limiter")),
	)
	if err != nil {
		return nil, err
	}
	batcher, err := batch.New[string, *FileAnalysis](cfg.batch,
		batch.WithCollector(col),
		batch.WithLogger(logger.Named("batch")),
	)
	if err != nil {
		return nil, err
	}

	c := &Client{
		model:     cfg.model,
		provider:  cfg.provider,
		generate:  cfg.generate,
		store:     cfg.store,
		limiter:   lim,
		batcher:   batcher,
		validator: security.NewValidator(cfg.security),
		project:   cfg.project,
		flags:     cfg.flags,
		stats:     col,
		logger:    logger,
		recorder: recorder.New(
			recorder.WithCollector(col),
			recorder.WithLogger(logger.Named("recorder")),
		),
	}
	if c.model == "" {
		c.model = cfg.provider.Name()
	}
	if cfg.rateLimit != nil {
		c.rate = security.NewRateLimiter(cfg.rateLimit.max, cfg.rateLimit.window)
	}
	if cfg.cache != nil {
		c.responses, err = cache.NewWithSizer(*cfg.cache, responseSize,
			cache.WithCollector(col),
			cache.WithLogger(logger.Named("cache")),
		)
		if err != nil {
			batcher.Close()
			return nil, err
		}
	}

	c.assistant = provider.NewAssistant(&guardedProvider{c: c, next: cfg.provider})
	c.analyzer = analyzer.New(c.assistant, logger)
	c.generator = generator.New(c.assistant)

	c.session = c.openSession(cfg)

	ctx, stop := context.WithCancel(context.Background())
	c.stop = stop
	if c.responses != nil && cfg.janitorInterval > 0 {
		go c.responses.RunJanitor(ctx, cfg.janitorInterval)
	}
	if cfg.watchdog != nil {
		c.watchdog = watchdog.New(*cfg.watchdog,
			watchdog.WithCollector(col),
			watchdog.WithLogger(logger.Named("watchdog")),
		)
		c.watchdog.Start(ctx)
	}

	c.logger.Debug("client initialized",
		zap.String("provider", cfg.provider.Name()),
		zap.String("model", c.model),
		zap.String("session", c.session.ID()),
		zap.Bool("cache", c.responses != nil),
		zap.Int("maxConcurrent", cfg.maxConcurrent),
	)

	return c, nil
}

func (c *Client) openSession(cfg options) *session.Manager {
	opts := []session.Option{
		session.WithWindow(cfg.contextWindow),
		session.WithLogger(c.logger),
	}
	if cfg.store != nil {
		opts = append(opts, session.WithStore(cfg.store), session.WithAutoSave(cfg.autoSave))
	}
	if cfg.sessionID != "" {
		opts = append(opts, session.WithID(cfg.sessionID))
	}
	m := session.New(opts...)

	if cfg.sessionID != "" && cfg.store != nil {
		if err := m.Load(context.Background(), cfg.sessionID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.logger.Info("starting new session", zap.String("session", cfg.sessionID))
			} else {
				c.logger.Warn("could not resume session", zap.String("session", cfg.sessionID), zap.Error(err))
			}
		}
	}
	m.SetMetadata("model", c.model)
	return m
}

// Session returns the client's session.
func (c *Client) Session() *session.Manager {
	return c.session
}

// Status returns the client's configuration and counters.
func (c *Client) Status() Status {
	s := Status{
		Model:        c.model,
		Provider:     c.provider.Name(),
		Session:      c.session.Summary(),
		Flags:        c.flags,
		CacheEnabled: c.responses != nil,
		Performance:  c.recorder.Overall(),
		ActiveCalls:  c.limiter.Active(),
	}
	if c.responses != nil {
		s.Cache = c.responses.Stats()
	}
	if c.watchdog != nil {
		s.WatchdogActive = c.watchdog.Running()
	}
	return s
}

// CacheStats returns the response cache statistics. ok is false when the
// cache is disabled.
func (c *Client) CacheStats() (s cache.Stats, ok bool) {
	if c.responses == nil {
		return cache.Stats{}, false
	}
	return c.responses.Stats(), true
}

// ClearCache drops every cached provider response.
func (c *Client) ClearCache() {
	if c.responses != nil {
		c.responses.Clear()
	}
}

// OperationStats returns the recorded statistics for one operation, such
// as "analyze_file" or "provider_call".
func (c *Client) OperationStats(name string) recorder.OperationStats {
	return c.recorder.StatsFor(name)
}

// PerformanceSummary returns statistics across every recorded operation.
func (c *Client) PerformanceSummary() recorder.OverallStats {
	return c.recorder.Overall()
}

// ValidateAPIKey reports whether key is well formed for providerName.
func (c *Client) ValidateAPIKey(key, providerName string) bool {
	return c.validator.ValidateAPIKey(key, providerName)
}

// TestConnection sends a minimal request to the provider.
func (c *Client) TestConnection(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return c.assistant.TestConnection(ctx)
}

// Close stops background work, waits for in-flight provider calls and
// closes the session store.
// After Close, the client should not be used.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	c.stop()
	if c.watchdog != nil {
		c.watchdog.Stop()
	}

	var errs []error
	if err := c.batcher.Close(); err != nil {
		errs = append(errs, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := c.limiter.Shutdown(ctx, true); err != nil {
		errs = append(errs, fmt.Errorf("waiting for provider calls: %w", err))
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// run records op, enforces the rate limit and counts requests and errors.
func run[T any](ctx context.Context, c *Client, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if c.closed.Load() {
		return zero, ErrClosed
	}
	if c.rate != nil && !c.rate.Allow(c.session.ID()) {
		return zero, ErrRateLimited
	}

	c.stats.IncCounter(stats.MetricRequests, 1)
	v, err := recorder.Track(ctx, c.recorder, op, fn)
	if err != nil {
		c.stats.IncCounter(stats.MetricRequestErrors, 1)
		return zero, err
	}
	return v, nil
}

// checkInput validates input of kind and returns its sanitized form.
func (c *Client) checkInput(field, input string, kind security.Kind) (string, error) {
	return c.check(field, c.validator.ValidateInput(input, kind))
}

func (c *Client) checkCode(code string, language lang.Language) (string, error) {
	return c.check("code", c.validator.ValidateCode(code, language))
}

func (c *Client) check(field string, res security.ValidationResult) (string, error) {
	if !res.Valid {
		c.stats.IncCounter(stats.MetricValidationFail, 1)
		return "", &ValidationError{Field: field, Result: res}
	}
	if len(res.Warnings) > 0 {
		c.logger.Debug("input accepted with warnings",
			zap.String("field", field),
			zap.Strings("warnings", res.Warnings),
		)
	}
	return res.Sanitized, nil
}

// remember logs a failed session update. The session manager has already
// reported the underlying save error.
func (c *Client) remember(err error) {
	if err != nil {
		c.logger.Debug("session not persisted", zap.Error(err))
	}
}
