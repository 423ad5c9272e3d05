package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/discochess/codeassist"
	"github.com/discochess/codeassist/internal/config"
	promstats "github.com/discochess/codeassist/internal/stats/prometheus"
)

const defaultConfigPath = ".codeassist/config.yaml"

var (
	// Global flags.
	configPath string
	modelName  string
	sessionID  string
	verbose    bool
	debug      bool
	outputJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "codeassist",
	Short: "AI coding helper",
	Long: `codeassist analyzes, generates, reviews, fixes and explains code with
an LLM provider. Conversations and analyzed files are kept in a session
that is saved between runs.

The model is chosen by name: gpt-* models use OpenAI (OPENAI_API_KEY) and
claude-* models use Anthropic (ANTHROPIC_API_KEY).

Examples:
  # Analyze a file
  codeassist analyze main.go

  # Generate code, using the analyzed files as context
  codeassist generate "a function that parses RFC 3339 timestamps" --lang go

  # Start an interactive chat
  codeassist chat --session 5f0c...

  # Show the configuration and performance counters
  codeassist status`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "configuration file")
	rootCmd.PersistentFlags().StringVarP(&modelName, "model", "m", "", "model name (overrides the configuration)")
	rootCmd.PersistentFlags().StringVarP(&sessionID, "session", "s", "", "resume the session with this id")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output results as JSON")
}

// loadConfig reads the configuration file. The default path may be absent.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == defaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if modelName != "" {
		cfg.Model.Name = modelName
	}
	if verbose {
		cfg.Agent.Verbose = true
	}
	if debug {
		cfg.Agent.Debug = true
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Agent.Debug {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if cfg.Agent.Verbose {
		zc.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return zc.Build()
}

// session bundles a client with what it was built from.
type session struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	client   *codeassist.Client
}

func (s *session) Close() {
	if err := s.client.Close(); err != nil {
		s.logger.Warn("closing client", zap.Error(err))
	}
	_ = s.logger.Sync()
}

// openSession loads the configuration and creates a client with
// Prometheus metrics registered on a private registry.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	fromConfig, err := codeassist.WithConfig(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	opts := []codeassist.Option{
		fromConfig,
		codeassist.WithStats(promstats.New(registry)),
		codeassist.WithLogger(logger),
	}
	if sessionID != "" {
		opts = append(opts, codeassist.WithSessionID(sessionID))
	}
	client, err := codeassist.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	return &session{cfg: cfg, logger: logger, registry: registry, client: client}, nil
}

// readCode returns the contents of file, or stdin when file is "" or "-".
func readCode(file string) (string, error) {
	var (
		data []byte
		err  error
	)
	if file == "" || file == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("reading code: %w", err)
	}
	return string(data), nil
}
