package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxTopicNameLength caps model-suggested topic names. Longer suggestions are
// truncated with a trailing ellipsis before persisting.
const MaxTopicNameLength = 100

// Topic is a named cluster of semantically related general feedback items.
// Topics are created by the topic resolver when no sufficiently similar topic
// exists; the display name comes from the model's suggested label.
type Topic struct {
	ID     uuid.UUID  `json:"id"`
	Name   string     `json:"name"`
	UnitID *uuid.UUID `json:"unit_id,omitempty"` // nil = globally scoped

	// Cached executive summary. Regenerated atomically by the summary
	// scheduler; never partially written.
	Summary            *ExecutiveSummary `json:"summary,omitempty"`
	SummaryGeneratedAt *time.Time        `json:"summary_generated_at,omitempty"`

	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TruncateTopicName enforces the display-name cap, terminating truncated
// names with an ellipsis. Input is expected to be trimmed already.
func TruncateTopicName(name string) string {
	runes := []rune(name)
	if len(runes) <= MaxTopicNameLength {
		return name
	}
	return string(runes[:MaxTopicNameLength-3]) + "..."
}
