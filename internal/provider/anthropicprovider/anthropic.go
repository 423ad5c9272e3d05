// Package anthropicprovider implements provider.Provider on the Anthropic
// Messages API.
package anthropicprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/codeassist/internal/provider"
)

const (
	// Name is the provider name reported in errors.
	Name = "anthropic"

	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-3-sonnet-20240229"

	// DefaultMaxTokens is sent when the caller sets no limit; the API
	// requires one.
	DefaultMaxTokens = 4096

	apiVersion     = "2023-06-01"
	defaultBaseURL = "https://api.anthropic.com/v1/messages"
)

type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	System      string    `json:"system,omitempty"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature *float32  `json:"temperature,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *apiError `json:"error,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Provider talks to Anthropic.
type Provider struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	logger     *zap.Logger
}

// Compile-time check that Provider implements provider.Provider.
var _ provider.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithModel sets the model name.
func WithModel(m string) Option {
	return func(p *Provider) {
		if m != "" {
			p.model = m
		}
	}
}

// WithBaseURL overrides the Messages endpoint URL.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
}

// WithTimeout sets the HTTP timeout. Default is 60s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Provider authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, provider.Wrap(Name, provider.ErrMissingAPIKey)
	}

	p := &Provider{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiKey:     apiKey,
		model:      DefaultModel,
		baseURL:    defaultBaseURL,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("anthropic")

	return p, nil
}

func (p *Provider) Name() string { return Name }

// Model returns the configured model name.
func (p *Provider) Model() string { return p.model }

// GenerateResponse sends messages to the Messages API. System messages are
// joined into the top-level system prompt.
func (p *Provider) GenerateResponse(ctx context.Context, messages []provider.Message, opts ...provider.GenerateOption) (*provider.Response, error) {
	r := provider.BuildRequest(opts...)

	payload := messagesRequest{
		Model:       p.model,
		MaxTokens:   r.MaxTokens,
		Temperature: &r.Temperature,
	}
	if payload.MaxTokens <= 0 {
		payload.MaxTokens = DefaultMaxTokens
	}

	var system []string
	for _, m := range messages {
		if m.Role == provider.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		payload.Messages = append(payload.Messages, message{Role: m.Role, Content: m.Content})
	}
	payload.System = strings.Join(system, "\n\n")

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, provider.Wrap(Name, fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, provider.Wrap(Name, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	p.logger.Debug("sending messages request", zap.String("model", p.model), zap.Int("messages", len(payload.Messages)))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, provider.Wrap(Name, fmt.Errorf("sending request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.Wrap(Name, fmt.Errorf("reading response: %w", err))
	}

	var out messagesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, provider.Wrap(Name, fmt.Errorf("decoding response (status %d): %w", resp.StatusCode, err))
	}
	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if out.Error != nil {
			msg = out.Error.Type + ": " + out.Error.Message
		}
		return nil, provider.Wrap(Name, fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}

	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, provider.Wrap(Name, provider.ErrEmptyResponse)
	}

	return &provider.Response{
		Content: text.String(),
		Model:   out.Model,
		Usage: &provider.Usage{
			PromptTokens:     out.Usage.InputTokens,
			CompletionTokens: out.Usage.OutputTokens,
			TotalTokens:      out.Usage.InputTokens + out.Usage.OutputTokens,
		},
		FinishReason: out.StopReason,
		Metadata:     map[string]any{"response_id": out.ID},
	}, nil
}
