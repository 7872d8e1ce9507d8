package models

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackEntry is one row of the audit/feedback trail: either an automatic
// query audit record or a user-supplied correctness judgement.
type FeedbackEntry struct {
	ID         uuid.UUID `json:"id"`
	EntryType  string    `json:"entry_type"` // "query", "user_feedback", "document_upload"
	Query      string    `json:"query,omitempty"`
	Answer     string    `json:"answer,omitempty"`
	IsCorrect  *bool     `json:"is_correct,omitempty"`
	Comment    *string   `json:"comment,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
