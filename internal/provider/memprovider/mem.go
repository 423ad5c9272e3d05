// Package memprovider provides an in-memory Provider that answers from a
// script. It is used by tests and by the in-memory fx module.
package memprovider

import (
	"context"
	"strings"
	"sync"

	"github.com/discochess/codeassist/internal/provider"
)

// Name is the provider name reported in responses and errors.
const Name = "mem"

// ReplyFunc computes a reply for a conversation.
type ReplyFunc func(ctx context.Context, messages []provider.Message) (string, error)

// Provider replays scripted replies in order. When the script is exhausted
// the last reply repeats; with no script the last user message is echoed.
type Provider struct {
	reply ReplyFunc

	mu      sync.Mutex
	script  []string
	next    int
	calls   [][]provider.Message
	lastReq provider.Request
}

// Compile-time check that Provider implements provider.Provider.
var _ provider.Provider = (*Provider)(nil)

// New returns a provider that answers with replies in order.
func New(replies ...string) *Provider {
	return &Provider{script: replies}
}

// NewFunc returns a provider that answers with fn.
func NewFunc(fn ReplyFunc) *Provider {
	return &Provider{reply: fn}
}

func (p *Provider) Name() string { return Name }

// GenerateResponse records the call and returns the next reply.
func (p *Provider) GenerateResponse(ctx context.Context, messages []provider.Message, opts ...provider.GenerateOption) (*provider.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, provider.Wrap(Name, err)
	}

	p.mu.Lock()
	p.calls = append(p.calls, append([]provider.Message(nil), messages...))
	p.lastReq = provider.BuildRequest(opts...)
	content := p.scripted(messages)
	reply := p.reply
	p.mu.Unlock()

	if reply != nil {
		var err error
		content, err = reply(ctx, messages)
		if err != nil {
			return nil, provider.Wrap(Name, err)
		}
	}

	prompt := 0
	for _, m := range messages {
		prompt += len(strings.Fields(m.Content))
	}
	completion := len(strings.Fields(content))

	return &provider.Response{
		Content:      content,
		Model:        Name,
		FinishReason: "stop",
		Usage: &provider.Usage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
	}, nil
}

// scripted must be called with p.mu held.
func (p *Provider) scripted(messages []provider.Message) string {
	if len(p.script) == 0 {
		for i := len(messages) - 1; i >= 0; i-- {
			if messages[i].Role == provider.RoleUser {
				return messages[i].Content
			}
		}
		return ""
	}
	i := min(p.next, len(p.script)-1)
	p.next++
	return p.script[i]
}

// Calls returns a copy of every conversation received so far.
func (p *Provider) Calls() [][]provider.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]provider.Message(nil), p.calls...)
}

// CallCount returns the number of GenerateResponse calls.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// LastRequest returns the generation settings of the most recent call.
func (p *Provider) LastRequest() provider.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastReq
}
