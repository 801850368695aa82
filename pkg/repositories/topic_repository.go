package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/campuspulse/feedback-engine/pkg/apperrors"
	"github.com/campuspulse/feedback-engine/pkg/database"
	"github.com/campuspulse/feedback-engine/pkg/models"
)

// TopicRepository provides data access for feedback topics.
type TopicRepository interface {
	// Create inserts a new topic. A name collision within the topic's
	// scope returns apperrors.ErrConflict.
	Create(ctx context.Context, topic *models.Topic) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Topic, error)

	// GetByName finds an unarchived topic by case-insensitive name within a
	// scope. A nil unitID addresses the global scope. Archived topics are
	// invisible here so their names can be reused.
	GetByName(ctx context.Context, name string, unitID *uuid.UUID) (*models.Topic, error)

	// ListCandidates returns unarchived topics visible to a unit: the
	// unit's own topics plus global ones. A nil unitID returns global
	// topics only.
	ListCandidates(ctx context.Context, unitID *uuid.UUID) ([]*models.Topic, error)

	// ListUnarchived returns every unarchived topic across all scopes.
	ListUnarchived(ctx context.Context) ([]*models.Topic, error)

	// SetSummary replaces the topic's cached executive summary whole.
	SetSummary(ctx context.Context, id uuid.UUID, summary *models.ExecutiveSummary, generatedAt time.Time) error

	SetArchived(ctx context.Context, id uuid.UUID, archived bool) error
}

type topicRepository struct {
	db *database.DB
}

// NewTopicRepository creates a new TopicRepository.
func NewTopicRepository(db *database.DB) TopicRepository {
	return &topicRepository{db: db}
}

var _ TopicRepository = (*topicRepository)(nil)

const topicColumns = `
	id, name, unit_id, summary, summary_generated_at, archived, created_at, updated_at`

func (r *topicRepository) Create(ctx context.Context, topic *models.Topic) error {
	now := time.Now()
	if topic.ID == uuid.Nil {
		topic.ID = uuid.New()
	}
	topic.CreatedAt = now
	topic.UpdatedAt = now

	query := `
		INSERT INTO topics (id, name, unit_id, archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		topic.ID, topic.Name, topic.UnitID, topic.Archived, topic.CreatedAt, topic.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("topic %q: %w", topic.Name, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create topic: %w", err)
	}
	return nil
}

func (r *topicRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Topic, error) {
	query := `SELECT ` + topicColumns + ` FROM topics WHERE id = $1`

	topic, err := scanTopic(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return topic, nil
}

func (r *topicRepository) GetByName(ctx context.Context, name string, unitID *uuid.UUID) (*models.Topic, error) {
	query := `
		SELECT ` + topicColumns + `
		FROM topics
		WHERE LOWER(name) = LOWER($1)
		  AND unit_id IS NOT DISTINCT FROM $2
		  AND NOT archived`

	topic, err := scanTopic(r.db.QueryRow(ctx, query, name, unitID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return topic, nil
}

func (r *topicRepository) ListCandidates(ctx context.Context, unitID *uuid.UUID) ([]*models.Topic, error) {
	query := `
		SELECT ` + topicColumns + `
		FROM topics
		WHERE NOT archived
		  AND (unit_id IS NULL OR unit_id = $1)
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate topics: %w", err)
	}
	defer rows.Close()

	return collectTopics(rows)
}

func (r *topicRepository) ListUnarchived(ctx context.Context) ([]*models.Topic, error) {
	query := `
		SELECT ` + topicColumns + `
		FROM topics
		WHERE NOT archived
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()

	return collectTopics(rows)
}

func (r *topicRepository) SetSummary(ctx context.Context, id uuid.UUID, summary *models.ExecutiveSummary, generatedAt time.Time) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	query := `
		UPDATE topics
		SET summary = $2, summary_generated_at = $3, updated_at = $4
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, summaryJSON, generatedAt, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set topic summary: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *topicRepository) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	query := `UPDATE topics SET archived = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, archived, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set topic archived: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ============================================================================
// Helper Functions - Scan
// ============================================================================

func collectTopics(rows pgx.Rows) ([]*models.Topic, error) {
	topics := make([]*models.Topic, 0)
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating topics: %w", err)
	}
	return topics, nil
}

func scanTopic(row pgx.Row) (*models.Topic, error) {
	var topic models.Topic
	var summaryJSON []byte

	err := row.Scan(
		&topic.ID, &topic.Name, &topic.UnitID,
		&summaryJSON, &topic.SummaryGeneratedAt, &topic.Archived,
		&topic.CreatedAt, &topic.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan topic: %w", err)
	}

	if summaryJSON != nil {
		var summary models.ExecutiveSummary
		if err := json.Unmarshal(summaryJSON, &summary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal topic summary: %w", err)
		}
		topic.Summary = &summary
	}

	return &topic, nil
}
