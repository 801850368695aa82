package models

import "time"

// ImpactTier grades a suggested action's expected impact.
type ImpactTier string

const (
	ImpactLow    ImpactTier = "low"
	ImpactMedium ImpactTier = "medium"
	ImpactHigh   ImpactTier = "high"
)

// SummaryNarrative is the fixed-key narrative section of an executive
// summary. Every key is always present in a persisted summary.
type SummaryNarrative struct {
	Headline      string `json:"headline"`
	ResponseMix   string `json:"response_mix"`
	KeyTakeaways  string `json:"key_takeaways"`
	Risks         string `json:"risks"`
	Opportunities string `json:"opportunities"`
}

// SuggestedAction is one recommended follow-up in an executive summary.
type SuggestedAction struct {
	Action              string     `json:"action"`
	Impact              ImpactTier `json:"impact"`
	Challenges          string     `json:"challenges,omitempty"`
	SupportingResponses int        `json:"supporting_responses"`
	Reasoning           string     `json:"reasoning,omitempty"`
}

// ExecutiveSummary is the structured narrative + action list computed over a
// batch of feedback items. It is embedded as JSON on the owning topic or
// inquiry record, never stored standalone, and only ever replaced whole.
type ExecutiveSummary struct {
	TopicLabels []string          `json:"topic_labels"`
	Narrative   SummaryNarrative  `json:"narrative"`
	Actions     []SuggestedAction `json:"actions"`
	GeneratedAt time.Time         `json:"generated_at"`
}
