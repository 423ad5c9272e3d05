// Package configassistfx provides an fx module for a codeassist client built
// from a configuration file.
package configassistfx

import (
	"context"
	"fmt"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/codeassist"
	"github.com/discochess/codeassist/internal/config"
	"github.com/discochess/codeassist/internal/stats"
	"github.com/discochess/codeassist/internal/stats/logger"
	"github.com/discochess/codeassist/internal/stats/prometheus"
)

// Config locates the configuration file.
type Config struct {
	// Path is the YAML file to load. An empty path means built-in defaults
	// plus the environment.
	Path string
}

// Module provides a codeassist client configured from Config.Path.
// Requires a *zap.Logger to be provided. When a prometheus.Registerer is
// provided, metrics are registered with it; otherwise they are logged.
var Module = fx.Module("configassist",
	fx.Provide(
		newConfig,
		newStatsCollector,
		newClient,
	),
)

func newConfig(c Config) (*config.Config, error) {
	cfg, err := config.Load(c.Path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", c.Path, err)
	}
	return cfg, nil
}

type collectorParams struct {
	fx.In

	Logger     *zap.Logger
	Registerer promclient.Registerer `optional:"true"`
}

func newStatsCollector(p collectorParams) stats.Collector {
	if p.Registerer != nil {
		return prometheus.New(p.Registerer)
	}
	return logger.New(p.Logger.Named("codeassist.stats"))
}

// Params holds dependencies for creating the client.
type Params struct {
	fx.In

	Config    *config.Config
	Logger    *zap.Logger
	Collector stats.Collector
	Lifecycle fx.Lifecycle
}

// Result holds the provided client.
type Result struct {
	fx.Out

	Client *codeassist.Client
}

func newClient(p Params) (Result, error) {
	log := p.Logger.Named("codeassist")
	fromConfig, err := codeassist.WithConfig(context.Background(), p.Config, log)
	if err != nil {
		return Result{}, err
	}

	client, err := codeassist.New(
		fromConfig,
		codeassist.WithStats(p.Collector),
		codeassist.WithLogger(log),
	)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return Result{Client: client}, nil
}
