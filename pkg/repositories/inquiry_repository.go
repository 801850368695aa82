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

// InquiryRepository provides read access to inquiries plus the single write
// this engine performs on them: refreshing the cached executive summary.
type InquiryRepository interface {
	Create(ctx context.Context, inquiry *models.Inquiry) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Inquiry, error)
	ListActive(ctx context.Context) ([]*models.Inquiry, error)
	SetSummary(ctx context.Context, id uuid.UUID, summary *models.ExecutiveSummary, generatedAt time.Time) error
	SetStatus(ctx context.Context, id uuid.UUID, status models.InquiryStatus) error
}

type inquiryRepository struct {
	db *database.DB
}

// NewInquiryRepository creates a new InquiryRepository.
func NewInquiryRepository(db *database.DB) InquiryRepository {
	return &inquiryRepository{db: db}
}

var _ InquiryRepository = (*inquiryRepository)(nil)

const inquiryColumns = `
	id, subject, status, unit_id, summary, summary_generated_at, created_at, updated_at`

func (r *inquiryRepository) Create(ctx context.Context, inquiry *models.Inquiry) error {
	now := time.Now()
	if inquiry.ID == uuid.Nil {
		inquiry.ID = uuid.New()
	}
	if inquiry.Status == "" {
		inquiry.Status = models.InquiryStatusActive
	}
	inquiry.CreatedAt = now
	inquiry.UpdatedAt = now

	query := `
		INSERT INTO inquiries (id, subject, status, unit_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		inquiry.ID, inquiry.Subject, inquiry.Status, inquiry.UnitID,
		inquiry.CreatedAt, inquiry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create inquiry: %w", err)
	}
	return nil
}

func (r *inquiryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Inquiry, error) {
	query := `SELECT ` + inquiryColumns + ` FROM inquiries WHERE id = $1`

	inquiry, err := scanInquiry(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return inquiry, nil
}

func (r *inquiryRepository) ListActive(ctx context.Context) ([]*models.Inquiry, error) {
	query := `
		SELECT ` + inquiryColumns + `
		FROM inquiries
		WHERE status = $1
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, models.InquiryStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active inquiries: %w", err)
	}
	defer rows.Close()

	inquiries := make([]*models.Inquiry, 0)
	for rows.Next() {
		inquiry, err := scanInquiry(rows)
		if err != nil {
			return nil, err
		}
		inquiries = append(inquiries, inquiry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inquiries: %w", err)
	}
	return inquiries, nil
}

func (r *inquiryRepository) SetSummary(ctx context.Context, id uuid.UUID, summary *models.ExecutiveSummary, generatedAt time.Time) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	query := `
		UPDATE inquiries
		SET summary = $2, summary_generated_at = $3, updated_at = $4
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, summaryJSON, generatedAt, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set inquiry summary: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *inquiryRepository) SetStatus(ctx context.Context, id uuid.UUID, status models.InquiryStatus) error {
	query := `UPDATE inquiries SET status = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set inquiry status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanInquiry(row pgx.Row) (*models.Inquiry, error) {
	var inquiry models.Inquiry
	var summaryJSON []byte

	err := row.Scan(
		&inquiry.ID, &inquiry.Subject, &inquiry.Status, &inquiry.UnitID,
		&summaryJSON, &inquiry.SummaryGeneratedAt,
		&inquiry.CreatedAt, &inquiry.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan inquiry: %w", err)
	}

	if summaryJSON != nil {
		var summary models.ExecutiveSummary
		if err := json.Unmarshal(summaryJSON, &summary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal inquiry summary: %w", err)
		}
		inquiry.Summary = &summary
	}

	return &inquiry, nil
}
