package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campuspulse/feedback-engine/pkg/apperrors"
	"github.com/campuspulse/feedback-engine/pkg/database"
	"github.com/campuspulse/feedback-engine/pkg/models"
)

// FeedbackRepository provides data access for feedback items and drives the
// pending -> processing -> terminal status transitions. All status mutations
// are compare-and-swap updates so concurrent workers never double-process an
// item.
type FeedbackRepository interface {
	// Create inserts a new feedback item. Inquiry-linked items require the
	// inquiry to exist and be active; otherwise apperrors.ErrNotFound or
	// apperrors.ErrInquiryInactive is returned.
	Create(ctx context.Context, item *models.FeedbackItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.FeedbackItem, error)

	// ListPending returns up to limit pending items, oldest first.
	ListPending(ctx context.Context, limit int) ([]*models.FeedbackItem, error)

	// Claim atomically transitions one pending item to processing. If the
	// item is no longer pending (another worker got there first, or it was
	// already processed) it returns apperrors.ErrAlreadyClaimed.
	Claim(ctx context.Context, id uuid.UUID) (*models.FeedbackItem, error)

	// SaveAnalysis persists a completed analysis and transitions the item
	// from processing to processed in a single statement. Sentiment, tone,
	// metrics, score, severity and the topic link land together or not at
	// all. Returns apperrors.ErrInvalidStatus if the item is not processing.
	SaveAnalysis(ctx context.Context, id uuid.UUID, result *models.AnalysisResult, topicID *uuid.UUID) error

	// MarkError transitions a processing item to error, recording the
	// failure for operators. Prior analysis fields are left untouched.
	MarkError(ctx context.Context, id uuid.UUID, lastError string) error

	// Release returns a processing item to pending without recording a
	// failure. Used on shutdown so in-flight items are retried cleanly.
	Release(ctx context.Context, id uuid.UUID) error

	// Requeue re-enqueues an item for analysis. Pending and processing
	// items are left alone; error items always return to pending; processed
	// and reviewed items return to pending only when force is set.
	Requeue(ctx context.Context, id uuid.UUID, force bool) error

	// ResetStaleProcessing returns items claimed before the cutoff to
	// pending and reports how many were reset.
	ResetStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error)

	// CountStalePending reports pending items created before the cutoff,
	// for sweep diagnostics.
	CountStalePending(ctx context.Context, cutoff time.Time) (int64, error)

	// AnalyzedStatsByTopic reports the number of analyzed items linked to a
	// topic and the newest analysis timestamp among them.
	AnalyzedStatsByTopic(ctx context.Context, topicID uuid.UUID) (int64, *time.Time, error)

	// AnalyzedStatsByInquiry is AnalyzedStatsByTopic for inquiry-linked items.
	AnalyzedStatsByInquiry(ctx context.Context, inquiryID uuid.UUID) (int64, *time.Time, error)

	// ListAnalyzedByTopic returns up to limit analyzed items for a topic,
	// newest analysis first.
	ListAnalyzedByTopic(ctx context.Context, topicID uuid.UUID, limit int) ([]*models.FeedbackItem, error)

	// ListAnalyzedByInquiry is ListAnalyzedByTopic for inquiry-linked items.
	ListAnalyzedByInquiry(ctx context.Context, inquiryID uuid.UUID, limit int) ([]*models.FeedbackItem, error)
}

type feedbackRepository struct {
	db *database.DB
}

// NewFeedbackRepository creates a new FeedbackRepository.
func NewFeedbackRepository(db *database.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

var _ FeedbackRepository = (*feedbackRepository)(nil)

const feedbackColumns = `
	id, body, type, status, inquiry_id, topic_id, unit_id,
	sentiment, tone, metrics, score, severity,
	last_error, claimed_at, analyzed_at, created_at, updated_at`

func (r *feedbackRepository) Create(ctx context.Context, item *models.FeedbackItem) error {
	if item.InquiryID != nil {
		var status models.InquiryStatus
		err := r.db.QueryRow(ctx, `SELECT status FROM inquiries WHERE id = $1`, *item.InquiryID).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("inquiry %s: %w", *item.InquiryID, apperrors.ErrNotFound)
			}
			return fmt.Errorf("failed to check inquiry status: %w", err)
		}
		if status != models.InquiryStatusActive {
			return fmt.Errorf("inquiry %s: %w", *item.InquiryID, apperrors.ErrInquiryInactive)
		}
	}

	now := time.Now()
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.Status == "" {
		item.Status = models.FeedbackStatusPending
	}
	item.CreatedAt = now
	item.UpdatedAt = now

	query := `
		INSERT INTO feedback_items (id, body, type, status, inquiry_id, unit_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		item.ID, item.Body, item.Type, item.Status, item.InquiryID, item.UnitID,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create feedback item: %w", err)
	}
	return nil
}

func (r *feedbackRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.FeedbackItem, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback_items WHERE id = $1`

	item, err := scanFeedbackItem(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

func (r *feedbackRepository) ListPending(ctx context.Context, limit int) ([]*models.FeedbackItem, error) {
	query := `
		SELECT ` + feedbackColumns + `
		FROM feedback_items
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, models.FeedbackStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending feedback: %w", err)
	}
	defer rows.Close()

	return collectFeedbackItems(rows)
}

func (r *feedbackRepository) Claim(ctx context.Context, id uuid.UUID) (*models.FeedbackItem, error) {
	query := `
		UPDATE feedback_items
		SET status = $2, claimed_at = $3, updated_at = $3
		WHERE id = $1 AND status = $4
		RETURNING ` + feedbackColumns

	item, err := scanFeedbackItem(r.db.QueryRow(ctx, query,
		id, models.FeedbackStatusProcessing, time.Now(), models.FeedbackStatusPending,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAlreadyClaimed
		}
		return nil, err
	}
	return item, nil
}

func (r *feedbackRepository) SaveAnalysis(ctx context.Context, id uuid.UUID, result *models.AnalysisResult, topicID *uuid.UUID) error {
	metricsJSON, err := json.Marshal(result.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	score := result.Metrics.Score()
	now := time.Now()

	query := `
		UPDATE feedback_items
		SET status = $2,
		    sentiment = $3, tone = $4, metrics = $5, score = $6, severity = $7,
		    topic_id = COALESCE($8, topic_id),
		    last_error = '',
		    analyzed_at = $9, updated_at = $9
		WHERE id = $1 AND status = $10`

	result2, err := r.db.Exec(ctx, query,
		id, models.FeedbackStatusProcessed,
		result.Sentiment, result.Tone, metricsJSON, score, models.SeverityForScore(score),
		topicID, now, models.FeedbackStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	if result2.RowsAffected() == 0 {
		return fmt.Errorf("save analysis for %s: %w", id, apperrors.ErrInvalidStatus)
	}
	return nil
}

func (r *feedbackRepository) MarkError(ctx context.Context, id uuid.UUID, lastError string) error {
	query := `
		UPDATE feedback_items
		SET status = $2, last_error = $3, updated_at = $4
		WHERE id = $1 AND status = $5`

	result, err := r.db.Exec(ctx, query,
		id, models.FeedbackStatusError, lastError, time.Now(), models.FeedbackStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("failed to mark feedback error: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("mark error for %s: %w", id, apperrors.ErrInvalidStatus)
	}
	return nil
}

func (r *feedbackRepository) Release(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE feedback_items
		SET status = $2, claimed_at = NULL, updated_at = $3
		WHERE id = $1 AND status = $4`

	result, err := r.db.Exec(ctx, query,
		id, models.FeedbackStatusPending, time.Now(), models.FeedbackStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("failed to release feedback item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("release %s: %w", id, apperrors.ErrInvalidStatus)
	}
	return nil
}

func (r *feedbackRepository) Requeue(ctx context.Context, id uuid.UUID, force bool) error {
	// Error items always requeue. Terminal successes requeue only when
	// forced. Pending and processing items fall through as a no-op.
	query := `
		UPDATE feedback_items
		SET status = $2, last_error = '', claimed_at = NULL, updated_at = $3
		WHERE id = $1
		  AND (status = $4 OR ($5 AND status IN ($6, $7)))`

	result, err := r.db.Exec(ctx, query,
		id, models.FeedbackStatusPending, time.Now(),
		models.FeedbackStatusError, force,
		models.FeedbackStatusProcessed, models.FeedbackStatusReviewed,
	)
	if err != nil {
		return fmt.Errorf("failed to requeue feedback item: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM feedback_items WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check feedback item: %w", err)
	}
	if !exists {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *feedbackRepository) ResetStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE feedback_items
		SET status = $1, claimed_at = NULL, updated_at = $2
		WHERE status = $3 AND claimed_at < $4`

	result, err := r.db.Exec(ctx, query,
		models.FeedbackStatusPending, time.Now(), models.FeedbackStatusProcessing, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reset stale processing items: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *feedbackRepository) CountStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM feedback_items WHERE status = $1 AND created_at < $2`

	var count int64
	if err := r.db.QueryRow(ctx, query, models.FeedbackStatusPending, cutoff).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stale pending items: %w", err)
	}
	return count, nil
}

func (r *feedbackRepository) AnalyzedStatsByTopic(ctx context.Context, topicID uuid.UUID) (int64, *time.Time, error) {
	return r.analyzedStats(ctx, "topic_id", topicID)
}

func (r *feedbackRepository) AnalyzedStatsByInquiry(ctx context.Context, inquiryID uuid.UUID) (int64, *time.Time, error) {
	return r.analyzedStats(ctx, "inquiry_id", inquiryID)
}

func (r *feedbackRepository) analyzedStats(ctx context.Context, column string, id uuid.UUID) (int64, *time.Time, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*), MAX(analyzed_at)
		FROM feedback_items
		WHERE %s = $1 AND status IN ($2, $3)`, column)

	var count int64
	var newest *time.Time
	err := r.db.QueryRow(ctx, query, id,
		models.FeedbackStatusProcessed, models.FeedbackStatusReviewed,
	).Scan(&count, &newest)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to aggregate analyzed feedback: %w", err)
	}
	return count, newest, nil
}

func (r *feedbackRepository) ListAnalyzedByTopic(ctx context.Context, topicID uuid.UUID, limit int) ([]*models.FeedbackItem, error) {
	return r.listAnalyzed(ctx, "topic_id", topicID, limit)
}

func (r *feedbackRepository) ListAnalyzedByInquiry(ctx context.Context, inquiryID uuid.UUID, limit int) ([]*models.FeedbackItem, error) {
	return r.listAnalyzed(ctx, "inquiry_id", inquiryID, limit)
}

func (r *feedbackRepository) listAnalyzed(ctx context.Context, column string, id uuid.UUID, limit int) ([]*models.FeedbackItem, error) {
	query := fmt.Sprintf(`
		SELECT `+feedbackColumns+`
		FROM feedback_items
		WHERE %s = $1 AND status IN ($2, $3)
		ORDER BY analyzed_at DESC
		LIMIT $4`, column)

	rows, err := r.db.Query(ctx, query, id,
		models.FeedbackStatusProcessed, models.FeedbackStatusReviewed, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyzed feedback: %w", err)
	}
	defer rows.Close()

	return collectFeedbackItems(rows)
}

// ============================================================================
// Helper Functions - Scan
// ============================================================================

func collectFeedbackItems(rows pgx.Rows) ([]*models.FeedbackItem, error) {
	items := make([]*models.FeedbackItem, 0)
	for rows.Next() {
		item, err := scanFeedbackItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback items: %w", err)
	}
	return items, nil
}

func scanFeedbackItem(row pgx.Row) (*models.FeedbackItem, error) {
	var item models.FeedbackItem
	var metricsJSON []byte

	err := row.Scan(
		&item.ID, &item.Body, &item.Type, &item.Status,
		&item.InquiryID, &item.TopicID, &item.UnitID,
		&item.Sentiment, &item.Tone, &metricsJSON, &item.Score, &item.Severity,
		&item.LastError, &item.ClaimedAt, &item.AnalyzedAt,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan feedback item: %w", err)
	}

	if metricsJSON != nil {
		var metrics models.QualityMetrics
		if err := json.Unmarshal(metricsJSON, &metrics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
		}
		item.Metrics = &metrics
	}

	return &item, nil
}
