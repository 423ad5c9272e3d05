// Package autoprovider picks a provider implementation from a model name.
package autoprovider

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/codeassist/internal/provider"
	"github.com/discochess/codeassist/internal/provider/anthropicprovider"
	"github.com/discochess/codeassist/internal/provider/openaiprovider"
)

// ErrUnknownModel is returned when no provider serves the model name.
var ErrUnknownModel = errors.New("autoprovider: unknown model")

// Settings selects and configures a provider.
type Settings struct {
	Model           string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	Timeout         time.Duration
	Logger          *zap.Logger
}

// Kind returns the provider name serving model, or "" if none does.
func Kind(model string) string {
	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "gpt"), strings.Contains(m, "openai"):
		return openaiprovider.Name
	case strings.Contains(m, "claude"), strings.Contains(m, "anthropic"):
		return anthropicprovider.Name
	}
	return ""
}

// New returns the provider serving s.Model, authenticated with the matching
// key.
func New(s Settings) (provider.Provider, error) {
	switch Kind(s.Model) {
	case openaiprovider.Name:
		p, err := openaiprovider.New(s.OpenAIAPIKey,
			openaiprovider.WithModel(s.Model),
			openaiprovider.WithTimeout(s.Timeout),
			openaiprovider.WithLogger(s.Logger),
		)
		if err != nil {
			return nil, err
		}
		return p, nil
	case anthropicprovider.Name:
		p, err := anthropicprovider.New(s.AnthropicAPIKey,
			anthropicprovider.WithModel(s.Model),
			anthropicprovider.WithTimeout(s.Timeout),
			anthropicprovider.WithLogger(s.Logger),
		)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownModel, s.Model)
}
