// Package analysis wraps the external text-analysis provider behind a
// resilient gateway: response caching, retry with exponential backoff, a
// circuit breaker, strict-but-salvaging output validation, and per-call
// cost accounting.
package analysis

import (
	"context"
	"time"

	"github.com/campuspulse/feedback-engine/pkg/models"
)

// Operation tags identify the call shape on cache keys and cost log entries.
const (
	OpAnalyzeFeedback  = "analyze_feedback"
	OpSuggestTopicName = "suggest_topic_name"
	OpGenerateSummary  = "generate_summary"
)

// CompletionRequest is a single system/user prompt pair sent to a provider.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// CompletionResult is the provider's free-text response plus token usage.
type CompletionResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Provider is the external text-completion capability. Implementations are
// thin transport wrappers; all resilience lives in the Gateway.
// Use this interface for dependency injection to enable mocking in tests.
type Provider interface {
	// Complete sends one prompt pair and returns the raw response text.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)

	// Model returns the configured model name.
	Model() string
}

// Gateway is the single entry point the orchestrator and scheduler use for
// semantic judgment. Every method caches, retries, validates, and reports
// cost; after exhausting retries a method returns an error matching
// ErrAnalysisUnavailable, which callers must treat as retryable later.
type Gateway interface {
	// AnalyzeFeedback classifies one feedback body: sentiment, tone, the
	// five quality metrics, and (for unlinked feedback) a theme label.
	AnalyzeFeedback(ctx context.Context, body string, linked bool) (*models.AnalysisResult, error)

	// SuggestTopicName returns a short topic label for a feedback body.
	SuggestTopicName(ctx context.Context, body string) (string, error)

	// GenerateSummary produces an executive summary over a batch of
	// feedback bodies.
	GenerateSummary(ctx context.Context, req SummaryRequest) (*models.ExecutiveSummary, error)
}

// SummaryRequest carries the inputs for one executive summary generation.
// ContributorCount and NewestContribution participate in the cache key so
// new contributions invalidate the cached summary without explicit eviction.
type SummaryRequest struct {
	Subject            string
	Bodies             []string
	SentimentCounts    map[models.Sentiment]int
	ContributorCount   int
	NewestContribution time.Time
}

// CostRecorder receives one entry per non-cached successful provider call.
// Implementations must never block the analysis path on failure; the gateway
// logs and continues if Record returns an error.
type CostRecorder interface {
	Record(ctx context.Context, entry *models.CostLogEntry) error
}
