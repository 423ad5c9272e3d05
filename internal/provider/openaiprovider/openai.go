// Package openaiprovider implements provider.Provider on the OpenAI chat
// completions API.
package openaiprovider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/discochess/codeassist/internal/provider"
)

// Name is the provider name reported in errors.
const Name = "openai"

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4"

// Provider talks to OpenAI.
type Provider struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// Compile-time check that Provider implements provider.Provider.
var _ provider.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*settings)

type settings struct {
	model   string
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
}

// WithModel sets the model name.
func WithModel(m string) Option {
	return func(s *settings) {
		if m != "" {
			s.model = m
		}
	}
}

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(u string) Option {
	return func(s *settings) { s.baseURL = u }
}

// WithTimeout sets the HTTP timeout. Default is 30s.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Provider authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, provider.Wrap(Name, provider.ErrMissingAPIKey)
	}

	s := settings{model: DefaultModel, timeout: 30 * time.Second, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}

	cfg := openai.DefaultConfig(apiKey)
	if s.baseURL != "" {
		cfg.BaseURL = s.baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: s.timeout}

	return &Provider{
		client: openai.NewClientWithConfig(cfg),
		model:  s.model,
		logger: s.logger.Named("openai"),
	}, nil
}

func (p *Provider) Name() string { return Name }

// Model returns the configured model name.
func (p *Provider) Model() string { return p.model }

// GenerateResponse sends messages as a chat completion request.
func (p *Provider) GenerateResponse(ctx context.Context, messages []provider.Message, opts ...provider.GenerateOption) (*provider.Response, error) {
	r := provider.BuildRequest(opts...)

	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    make([]openai.ChatCompletionMessage, len(messages)),
		Temperature: r.Temperature,
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	if r.MaxTokens > 0 {
		req.MaxCompletionTokens = r.MaxTokens
	}

	p.logger.Debug("creating chat completion", zap.String("model", p.model), zap.Int("messages", len(messages)))

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, provider.Wrap(Name, fmt.Errorf("creating chat completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return nil, provider.Wrap(Name, provider.ErrEmptyResponse)
	}

	choice := resp.Choices[0]
	return &provider.Response{
		Content: choice.Message.Content,
		Model:   resp.Model,
		Usage: &provider.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		FinishReason: string(choice.FinishReason),
		Metadata:     map[string]any{"response_id": resp.ID},
	}, nil
}
