package repository

import (
	"context"
	"fmt"

	"policyqa-backend/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FeedbackRepository persists the audit/feedback trail: automatic query
// audit records and user-submitted correctness judgements.
type FeedbackRepository struct {
	db *pgxpool.Pool
}

// NewFeedbackRepository creates a new feedback repository.
func NewFeedbackRepository(db *pgxpool.Pool) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create inserts one feedback entry and fills in its ID and timestamp.
func (r *FeedbackRepository) Create(ctx context.Context, entry *models.FeedbackEntry) error {
	const query = `
		INSERT INTO feedback_log (
			entry_type, query, answer, is_correct, comment, confidence
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRow(
		ctx, query,
		entry.EntryType,
		entry.Query,
		entry.Answer,
		entry.IsCorrect,
		entry.Comment,
		entry.Confidence,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save feedback entry: %w", err)
	}
	return nil
}

// CountByType returns how many entries exist for the given entry type.
func (r *FeedbackRepository) CountByType(ctx context.Context, entryType string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM feedback_log WHERE entry_type = $1`, entryType).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count feedback entries: %w", err)
	}
	return count, nil
}
