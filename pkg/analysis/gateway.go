package analysis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/campuspulse/feedback-engine/pkg/config"
	"github.com/campuspulse/feedback-engine/pkg/logging"
	"github.com/campuspulse/feedback-engine/pkg/models"
	"github.com/campuspulse/feedback-engine/pkg/prompts"
	"github.com/campuspulse/feedback-engine/pkg/retry"
)

// completionTemperature keeps classification output stable across retries.
const completionTemperature = 0.2

type gateway struct {
	provider Provider
	cache    ResponseCache
	costs    CostRecorder
	breaker  *CircuitBreaker
	pricing  *PricingTable
	cfg      *config.GatewayConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewGateway wires the resilient analysis gateway. All collaborators are
// injected; pass NewMemoryCache and a mock provider in tests.
func NewGateway(
	provider Provider,
	cache ResponseCache,
	costs CostRecorder,
	pricing *PricingTable,
	cfg *config.GatewayConfig,
	logger *zap.Logger,
) Gateway {
	return &gateway{
		provider: provider,
		cache:    cache,
		costs:    costs,
		breaker: NewCircuitBreaker(CircuitBreakerConfig{
			Threshold:  cfg.BreakerThreshold,
			ResetAfter: cfg.BreakerResetAfter,
		}),
		pricing: pricing,
		cfg:     cfg,
		logger:  logger.Named("analysis-gateway"),
		now:     time.Now,
	}
}

var _ Gateway = (*gateway)(nil)

func (g *gateway) AnalyzeFeedback(ctx context.Context, body string, linked bool) (*models.AnalysisResult, error) {
	key := CacheKey(OpAnalyzeFeedback, g.provider.Model(), body, strconv.FormatBool(linked))

	content, err := g.invoke(ctx, OpAnalyzeFeedback, key,
		prompts.FeedbackAnalysisSystemMessage(),
		prompts.BuildFeedbackAnalysisPrompt(body, linked),
		g.cfg.AnalysisMaxTokens)
	if err != nil {
		return nil, err
	}

	result, err := parseAnalysisResult(content, g.logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpAnalyzeFeedback, err)
	}
	if result.Indeterminate() {
		g.logger.Info("analysis produced indeterminate result",
			zap.String("body_preview", logging.BodyPreview(body)))
	}
	return result, nil
}

func (g *gateway) SuggestTopicName(ctx context.Context, body string) (string, error) {
	key := CacheKey(OpSuggestTopicName, g.provider.Model(), body)

	content, err := g.invoke(ctx, OpSuggestTopicName, key,
		prompts.TopicNameSystemMessage(),
		prompts.BuildTopicNamePrompt(body),
		g.cfg.TopicMaxTokens)
	if err != nil {
		return "", err
	}

	name, err := parseTopicName(content)
	if err != nil {
		return "", fmt.Errorf("%s: %w", OpSuggestTopicName, err)
	}
	return name, nil
}

func (g *gateway) GenerateSummary(ctx context.Context, req SummaryRequest) (*models.ExecutiveSummary, error) {
	// The contributor count and newest contribution timestamp are part of
	// the cache key, so new contributions naturally invalidate the cached
	// summary without explicit eviction.
	key := CacheKey(OpGenerateSummary, g.provider.Model(),
		req.Subject,
		strconv.Itoa(req.ContributorCount),
		strconv.FormatInt(req.NewestContribution.UnixNano(), 10))

	counts := make(map[string]int, len(req.SentimentCounts))
	for sentiment, count := range req.SentimentCounts {
		counts[string(sentiment)] = count
	}

	content, err := g.invoke(ctx, OpGenerateSummary, key,
		prompts.SummarySystemMessage(),
		prompts.BuildSummaryPrompt(prompts.SummaryInput{
			Subject:            req.Subject,
			Bodies:             req.Bodies,
			SentimentCounts:    counts,
			TotalContributions: req.ContributorCount,
		}),
		g.cfg.SummaryMaxTokens)
	if err != nil {
		return nil, err
	}

	summary, err := parseSummary(content, g.now(), g.logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpGenerateSummary, err)
	}
	return summary, nil
}

// invoke runs one provider call through the full resilience stack:
// cache lookup, circuit breaker, retry with exponential backoff, cost
// accounting, and cache population. It returns the raw response text.
func (g *gateway) invoke(ctx context.Context, op, key, system, prompt string, maxTokens int) (string, error) {
	if cached, hit, err := g.cache.Get(ctx, key); err != nil {
		g.logger.Warn("response cache read failed, falling through to provider",
			zap.String("operation", op),
			zap.Error(err))
	} else if hit {
		g.logger.Debug("response cache hit", zap.String("operation", op))
		return cached, nil
	}

	if ok, err := g.breaker.Allow(); !ok {
		return "", unavailable(op, err)
	}

	var result *CompletionResult
	err := retry.DoIfRetryable(ctx, retry.ProviderConfig(g.cfg.MaxRetries, g.cfg.BackoffBase), func() error {
		res, err := g.provider.Complete(ctx, CompletionRequest{
			System:      system,
			Prompt:      prompt,
			MaxTokens:   maxTokens,
			Temperature: completionTemperature,
		})
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		g.breaker.RecordFailure()
		g.logger.Error("provider call failed",
			zap.String("operation", op),
			zap.String("error", logging.SanitizeError(err)))
		if retry.IsRetryable(err) || ctx.Err() != nil {
			return "", unavailable(op, err)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	g.breaker.RecordSuccess()
	g.recordCost(ctx, op, result)

	if err := g.cache.Set(ctx, key, result.Content, g.cfg.CacheTTL); err != nil {
		g.logger.Warn("response cache write failed",
			zap.String("operation", op),
			zap.Error(err))
	}

	return result.Content, nil
}

// recordCost reports one successful call to the cost ledger. Ledger failures
// are logged and ignored; cost tracking never blocks a successful analysis.
func (g *gateway) recordCost(ctx context.Context, op string, result *CompletionResult) {
	if g.costs == nil {
		return
	}

	entry := &models.CostLogEntry{
		Operation:        op,
		Model:            g.provider.Model(),
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		TotalTokens:      result.TotalTokens,
		Cost:             g.pricing.Cost(g.provider.Model(), result.PromptTokens, result.CompletionTokens),
		CreatedAt:        g.now(),
	}

	if err := g.costs.Record(ctx, entry); err != nil {
		g.logger.Warn("cost ledger write failed",
			zap.String("operation", op),
			zap.Error(err))
	}
}
