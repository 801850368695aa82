package models

import (
	"time"

	"github.com/google/uuid"
)

// InquiryStatus represents the lifecycle state of an inquiry.
type InquiryStatus string

const (
	InquiryStatusActive InquiryStatus = "active"
	InquiryStatusClosed InquiryStatus = "closed"
)

// Inquiry is an externally managed request record that linked feedback
// items reference. This core only reads inquiries and refreshes
// their cached summaries; creation and lifecycle belong to a collaborator.
type Inquiry struct {
	ID      uuid.UUID     `json:"id"`
	Subject string        `json:"subject"`
	Status  InquiryStatus `json:"status"`
	UnitID  *uuid.UUID    `json:"unit_id,omitempty"`

	Summary            *ExecutiveSummary `json:"summary,omitempty"`
	SummaryGeneratedAt *time.Time        `json:"summary_generated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive returns true while the inquiry accepts linked feedback.
func (i *Inquiry) IsActive() bool {
	return i.Status == InquiryStatusActive
}
