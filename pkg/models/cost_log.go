package models

import "time"

// CostLogEntry is one append-only record of external-provider token usage
// and its computed monetary cost. Entries are never mutated or deleted.
type CostLogEntry struct {
	ID               int64          `json:"id"`
	Operation        string         `json:"operation"`
	Model            string         `json:"model"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
	TotalTokens      int            `json:"total_tokens"`
	Cost             float64        `json:"cost"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// CostTotals aggregates ledger entries over a time window.
type CostTotals struct {
	Calls            int64   `json:"calls"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	Cost             float64 `json:"cost"`
}

// OperationTotals is CostTotals broken out for a single operation kind.
type OperationTotals struct {
	Operation string `json:"operation"`
	CostTotals
}
