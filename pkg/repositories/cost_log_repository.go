package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/campuspulse/feedback-engine/pkg/database"
	"github.com/campuspulse/feedback-engine/pkg/models"
)

// CostLogRepository provides access to the append-only provider cost ledger.
// There is deliberately no update or delete method.
type CostLogRepository interface {
	Insert(ctx context.Context, entry *models.CostLogEntry) error
	TotalsSince(ctx context.Context, since time.Time) (*models.CostTotals, error)
	TotalsByOperationSince(ctx context.Context, since time.Time) ([]*models.OperationTotals, error)
}

type costLogRepository struct {
	db *database.DB
}

// NewCostLogRepository creates a new CostLogRepository.
func NewCostLogRepository(db *database.DB) CostLogRepository {
	return &costLogRepository{db: db}
}

var _ CostLogRepository = (*costLogRepository)(nil)

func (r *costLogRepository) Insert(ctx context.Context, entry *models.CostLogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	var metadataJSON []byte
	if entry.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal cost metadata: %w", err)
		}
	}

	query := `
		INSERT INTO cost_log (operation, model, prompt_tokens, completion_tokens, total_tokens, cost, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		entry.Operation, entry.Model,
		entry.PromptTokens, entry.CompletionTokens, entry.TotalTokens,
		entry.Cost, metadataJSON, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to insert cost log entry: %w", err)
	}
	return nil
}

func (r *costLogRepository) TotalsSince(ctx context.Context, since time.Time) (*models.CostTotals, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(prompt_tokens), 0),
		       COALESCE(SUM(completion_tokens), 0),
		       COALESCE(SUM(total_tokens), 0),
		       COALESCE(SUM(cost), 0)
		FROM cost_log
		WHERE created_at >= $1`

	var totals models.CostTotals
	err := r.db.QueryRow(ctx, query, since).Scan(
		&totals.Calls, &totals.PromptTokens, &totals.CompletionTokens,
		&totals.TotalTokens, &totals.Cost,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate cost totals: %w", err)
	}
	return &totals, nil
}

func (r *costLogRepository) TotalsByOperationSince(ctx context.Context, since time.Time) ([]*models.OperationTotals, error) {
	query := `
		SELECT operation,
		       COUNT(*),
		       COALESCE(SUM(prompt_tokens), 0),
		       COALESCE(SUM(completion_tokens), 0),
		       COALESCE(SUM(total_tokens), 0),
		       COALESCE(SUM(cost), 0)
		FROM cost_log
		WHERE created_at >= $1
		GROUP BY operation
		ORDER BY operation`

	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate cost totals by operation: %w", err)
	}
	defer rows.Close()

	totals := make([]*models.OperationTotals, 0)
	for rows.Next() {
		var t models.OperationTotals
		err := rows.Scan(
			&t.Operation, &t.Calls, &t.PromptTokens, &t.CompletionTokens,
			&t.TotalTokens, &t.Cost,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation totals: %w", err)
		}
		totals = append(totals, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operation totals: %w", err)
	}
	return totals, nil
}
