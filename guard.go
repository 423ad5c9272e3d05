package codeassist

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/discochess/codeassist/internal/limiter"
	"github.com/discochess/codeassist/internal/provider"
	"github.com/discochess/codeassist/internal/recorder"
	"github.com/discochess/codeassist/internal/security"
	"github.com/discochess/codeassist/internal/sizeest"
	"github.com/discochess/codeassist/internal/stats"
)

// opProviderCall is the recorder name of every provider round trip,
// including those answered from the cache.
const opProviderCall = "provider_call"

// guardedProvider answers from the response cache when it can, and otherwise
// forwards to next under a limiter permit.
type guardedProvider struct {
	c    *Client
	next provider.Provider
}

// Compile-time check that guardedProvider implements provider.Provider.
var _ provider.Provider = (*guardedProvider)(nil)

func (g *guardedProvider) Name() string { return g.next.Name() }

func (g *guardedProvider) GenerateResponse(ctx context.Context, messages []provider.Message, opts ...provider.GenerateOption) (*provider.Response, error) {
	c := g.c
	// Explicit options follow the client defaults and win over them.
	opts = append(append([]provider.GenerateOption(nil), c.generate...), opts...)
	req := provider.BuildRequest(opts...)
	name := g.next.Name()

	var key string
	if c.responses != nil {
		key = responseKey(name, req, messages)
		if resp, ok := c.responses.Get(key); ok {
			return recorder.Track(ctx, c.recorder, opProviderCall,
				func(context.Context) (*provider.Response, error) { return resp, nil },
				recorder.CacheHit(true),
				recorder.WithMetadata("provider", name),
			)
		}
	}

	resp, err := recorder.Track(ctx, c.recorder, opProviderCall,
		func(ctx context.Context) (*provider.Response, error) {
			return limiter.Submit(ctx, c.limiter, func(ctx context.Context) (*provider.Response, error) {
				return g.next.GenerateResponse(ctx, messages, opts...)
			})
		},
		recorder.CacheHit(false),
		recorder.WithMetadata("provider", name),
	)
	if err != nil {
		return nil, err
	}

	c.stats.IncCounter(stats.MetricProviderCalls, 1)
	c.stats.IncCounter(stats.MetricTokensUsed, int64(resp.TokensUsed()))
	c.logger.Debug("provider call",
		zap.String("provider", name),
		zap.String("model", resp.Model),
		zap.Int("tokens", resp.TokensUsed()),
	)

	if c.responses != nil {
		c.responses.Set(key, resp)
	}
	return resp, nil
}

// responseKey identifies a request by everything that shapes the reply.
func responseKey(providerName string, req provider.Request, messages []provider.Message) string {
	var b strings.Builder
	b.WriteString(providerName)
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(req.MaxTokens))
	b.WriteByte(0)
	b.WriteString(strconv.FormatFloat(float64(req.Temperature), 'g', -1, 32))
	for _, m := range messages {
		b.WriteByte(0)
		b.WriteString(m.Role)
		b.WriteByte(0)
		b.WriteString(m.Content)
	}
	return security.HashContent(b.String())
}

// responseSize describes the parts of a response that dominate its size.
func responseSize(r *provider.Response) sizeest.Value {
	if r == nil {
		return sizeest.Opaque(nil)
	}
	return sizeest.Sequence(
		sizeest.Text(r.Content),
		sizeest.Text(r.Model),
		sizeest.Text(r.FinishReason),
	)
}
