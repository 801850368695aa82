package analysis

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/campuspulse/feedback-engine/pkg/config"
)

// NewProvider builds the configured provider. The gateway depends only on
// the Provider interface, so swapping vendors is a config change.
func NewProvider(cfg *config.ProviderConfig, logger *zap.Logger) (Provider, error) {
	switch cfg.Kind {
	case "openai":
		return NewOpenAIProvider(&OpenAIConfig{
			Endpoint: cfg.Endpoint,
			Model:    cfg.Model,
			APIKey:   cfg.APIKey,
			Timeout:  cfg.RequestTimeout,
		}, logger)
	case "anthropic":
		return NewAnthropicProvider(&AnthropicConfig{
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
			Timeout: cfg.RequestTimeout,
		}, logger)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}
}
