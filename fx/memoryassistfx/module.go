// Package memoryassistfx provides an fx module for a codeassist client backed
// by a scripted in-memory provider and an in-memory session store.
// Useful for testing.
package memoryassistfx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/codeassist"
	"github.com/discochess/codeassist/internal/provider/memprovider"
	"github.com/discochess/codeassist/internal/stats"
	"github.com/discochess/codeassist/internal/stats/logger"
	"github.com/discochess/codeassist/internal/store/memstore"
)

// Replies scripts the in-memory provider. An empty script echoes the last
// user message.
type Replies []string

// Module provides an in-memory codeassist client for testing.
// Requires a *zap.Logger to be provided; Replies is optional.
var Module = fx.Module("memoryassist",
	fx.Provide(
		newStatsCollector,
		newProvider,
		newMemStore,
		newClient,
	),
)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("codeassist.stats"))
}

type providerParams struct {
	fx.In

	Replies Replies `optional:"true"`
}

func newProvider(p providerParams) *memprovider.Provider {
	return memprovider.New(p.Replies...)
}

func newMemStore() *memstore.Store {
	return memstore.New()
}

// Params holds dependencies for creating the client.
type Params struct {
	fx.In

	Logger    *zap.Logger
	Collector stats.Collector
	Provider  *memprovider.Provider
	Store     *memstore.Store
	Lifecycle fx.Lifecycle
}

// Result holds the provided client.
type Result struct {
	fx.Out

	Client *codeassist.Client
}

func newClient(p Params) (Result, error) {
	client, err := codeassist.New(
		codeassist.WithProvider(p.Provider),
		codeassist.WithStore(p.Store),
		codeassist.WithStats(p.Collector),
		codeassist.WithLogger(p.Logger.Named("codeassist")),
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
