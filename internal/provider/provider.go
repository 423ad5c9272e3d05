// Package provider defines the interface to LLM backends and the prompt
// specializations built on top of it.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultTemperature is used when no temperature option is given.
const DefaultTemperature float32 = 0.1

var (
	// ErrMissingAPIKey is returned when a provider is built without a key.
	ErrMissingAPIKey = errors.New("provider: missing API key")

	// ErrEmptyResponse is returned when a backend answers without content.
	ErrEmptyResponse = errors.New("provider: empty response")
)

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage reports token accounting for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a provider's answer.
type Response struct {
	Content      string
	Model        string
	Usage        *Usage
	FinishReason string
	Metadata     map[string]any
}

// TokensUsed returns the total token count, or 0 without usage data.
func (r *Response) TokensUsed() int {
	if r == nil || r.Usage == nil {
		return 0
	}
	return r.Usage.TotalTokens
}

// Request holds per-call generation settings.
type Request struct {
	MaxTokens   int // 0 lets the backend decide
	Temperature float32
}

// GenerateOption adjusts a Request.
type GenerateOption func(*Request)

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) GenerateOption {
	return func(r *Request) { r.MaxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) GenerateOption {
	return func(r *Request) { r.Temperature = t }
}

// BuildRequest applies opts over the defaults.
func BuildRequest(opts ...GenerateOption) Request {
	r := Request{Temperature: DefaultTemperature}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Provider generates chat completions.
type Provider interface {
	// Name identifies the backend in errors and logs.
	Name() string

	// GenerateResponse sends messages and returns the completion.
	GenerateResponse(ctx context.Context, messages []Message, opts ...GenerateOption) (*Response, error)
}

// Error wraps a backend failure with the provider's name.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns err wrapped in an *Error, or nil when err is nil.
func Wrap(name string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Provider: name, Err: err}
}
