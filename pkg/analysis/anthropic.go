package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// AnthropicProvider calls the Anthropic Messages API.
type AnthropicProvider struct {
	client  *anthropic.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// AnthropicConfig holds configuration for creating an Anthropic provider.
type AnthropicConfig struct {
	Model   string // Model name, e.g., "claude-haiku-4-5"
	APIKey  string
	Timeout time.Duration // Bounds one call; zero means no limit
}

// NewAnthropicProvider creates a provider backed by the Anthropic API.
func NewAnthropicProvider(cfg *AnthropicConfig, logger *zap.Logger) (*AnthropicProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	return &AnthropicProvider{
		client:  anthropic.NewClient(cfg.APIKey),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.Named("anthropic-provider"),
	}, nil
}

// Complete implements Provider. Each call is bounded by the configured
// request timeout so a hung connection cannot pin a worker; the retry layer
// above decides whether to try again.
func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	p.logger.Debug("provider request",
		zap.String("model", p.model),
		zap.Int("prompt_len", len(req.Prompt)),
		zap.Int("max_tokens", req.MaxTokens))

	start := time.Now()

	temperature := float32(req.Temperature)
	resp, err := p.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(p.model),
		System:      req.System,
		MaxTokens:   req.MaxTokens,
		Temperature: &temperature,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(req.Prompt),
		},
	})
	if err != nil {
		p.logger.Error("provider request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(err)
	}

	content := ""
	for _, block := range resp.Content {
		if block.Text != nil {
			content += *block.Text
		}
	}
	if content == "" {
		return nil, NewError(ErrorTypeUnknown, "no text content in response", true, nil)
	}

	p.logger.Info("provider request completed",
		zap.Int("prompt_tokens", resp.Usage.InputTokens),
		zap.Int("completion_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &CompletionResult{
		Content:          content,
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

// Model implements Provider.
func (p *AnthropicProvider) Model() string {
	return p.model
}

// Ensure AnthropicProvider implements Provider at compile time.
var _ Provider = (*AnthropicProvider)(nil)
