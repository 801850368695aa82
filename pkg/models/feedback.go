package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Feedback Status
// ============================================================================

// FeedbackStatus represents the lifecycle state of a feedback item.
type FeedbackStatus string

const (
	FeedbackStatusPending    FeedbackStatus = "pending"
	FeedbackStatusProcessing FeedbackStatus = "processing"
	FeedbackStatusProcessed  FeedbackStatus = "processed"
	FeedbackStatusReviewed   FeedbackStatus = "reviewed"
	FeedbackStatusError      FeedbackStatus = "error"
)

// ValidFeedbackStatuses contains all valid feedback status values.
var ValidFeedbackStatuses = []FeedbackStatus{
	FeedbackStatusPending,
	FeedbackStatusProcessing,
	FeedbackStatusProcessed,
	FeedbackStatusReviewed,
	FeedbackStatusError,
}

// IsValidFeedbackStatus checks if the given status is valid.
func IsValidFeedbackStatus(s FeedbackStatus) bool {
	for _, v := range ValidFeedbackStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminal returns true for statuses the orchestrator never claims.
func (s FeedbackStatus) IsTerminal() bool {
	return s == FeedbackStatusProcessed || s == FeedbackStatusReviewed || s == FeedbackStatusError
}

// ============================================================================
// Feedback Type
// ============================================================================

// FeedbackType distinguishes free-standing general feedback from feedback
// submitted against a specific inquiry.
type FeedbackType string

const (
	FeedbackTypeGeneral       FeedbackType = "general"
	FeedbackTypeInquiryLinked FeedbackType = "inquiry_linked"
)

// ============================================================================
// Sentiment and Tone
// ============================================================================

// Sentiment is the model-assigned overall polarity of a feedback body.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

// Tone is the model-assigned emotional register of a feedback body.
type Tone string

const (
	ToneAppreciative Tone = "appreciative"
	ToneSatisfied    Tone = "satisfied"
	ToneNeutral      Tone = "neutral"
	ToneConcerned    Tone = "concerned"
	ToneFrustrated   Tone = "frustrated"
	ToneAngry        Tone = "angry"
)

// ============================================================================
// Quality Metrics and Severity
// ============================================================================

// Severity thresholds applied to the averaged metric score.
const (
	SeverityHighThreshold   = 0.75
	SeverityMediumThreshold = 0.5
)

// SeverityTier is the coarse bucket derived from the averaged quality metrics.
type SeverityTier string

const (
	SeverityLow    SeverityTier = "low"
	SeverityMedium SeverityTier = "medium"
	SeverityHigh   SeverityTier = "high"
)

// QualityMetrics holds the five model-assigned quality scores, each in [0, 1].
// The metrics are populated atomically: a feedback item has either all five
// or none.
type QualityMetrics struct {
	Urgency     float64 `json:"urgency"`
	Importance  float64 `json:"importance"`
	Clarity     float64 `json:"clarity"`
	Quality     float64 `json:"quality"`
	Helpfulness float64 `json:"helpfulness"`
}

// Score returns the arithmetic mean of the five metrics.
func (m QualityMetrics) Score() float64 {
	return (m.Urgency + m.Importance + m.Clarity + m.Quality + m.Helpfulness) / 5
}

// SeverityForScore derives the severity tier from an averaged score.
func SeverityForScore(score float64) SeverityTier {
	switch {
	case score >= SeverityHighThreshold:
		return SeverityHigh
	case score >= SeverityMediumThreshold:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ============================================================================
// Feedback Item
// ============================================================================

// FeedbackItem is one unit of submitted free text awaiting or having
// undergone analysis. Items are created by the intake collaborator with
// status pending; only the analysis orchestrator mutates them afterwards.
type FeedbackItem struct {
	ID        uuid.UUID    `json:"id"`
	Body      string       `json:"body"`
	Type      FeedbackType `json:"type"`
	Status    FeedbackStatus `json:"status"`
	InquiryID *uuid.UUID   `json:"inquiry_id,omitempty"`
	TopicID   *uuid.UUID   `json:"topic_id,omitempty"`
	UnitID    *uuid.UUID   `json:"unit_id,omitempty"` // owning organizational unit, if any

	// Analysis output. Nil until a successful analysis; populated together.
	Sentiment *Sentiment      `json:"sentiment,omitempty"`
	Tone      *Tone           `json:"tone,omitempty"`
	Metrics   *QualityMetrics `json:"metrics,omitempty"`
	Score     *float64        `json:"score,omitempty"`
	Severity  *SeverityTier   `json:"severity,omitempty"`

	// LastError holds the most recent processing failure, for operators.
	LastError string `json:"last_error,omitempty"`

	ClaimedAt  *time.Time `json:"claimed_at,omitempty"`
	AnalyzedAt *time.Time `json:"analyzed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsAnalyzed returns true once analysis output has been persisted.
func (f *FeedbackItem) IsAnalyzed() bool {
	return f.Metrics != nil
}

// IsLinked returns true for feedback submitted against an inquiry.
func (f *FeedbackItem) IsLinked() bool {
	return f.Type == FeedbackTypeInquiryLinked
}
