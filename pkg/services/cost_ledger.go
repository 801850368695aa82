package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campuspulse/feedback-engine/pkg/analysis"
	"github.com/campuspulse/feedback-engine/pkg/models"
	"github.com/campuspulse/feedback-engine/pkg/repositories"
)

// CostLedger records provider spend and answers cost reporting queries over
// the append-only cost log.
type CostLedger interface {
	analysis.CostRecorder

	// TotalsSince aggregates spend over [since, now].
	TotalsSince(ctx context.Context, since time.Time) (*models.CostTotals, error)

	// TotalsByOperationSince is TotalsSince grouped per operation kind.
	TotalsByOperationSince(ctx context.Context, since time.Time) ([]*models.OperationTotals, error)
}

type costLedger struct {
	repo   repositories.CostLogRepository
	logger *zap.Logger
}

// NewCostLedger creates a new CostLedger.
func NewCostLedger(repo repositories.CostLogRepository, logger *zap.Logger) CostLedger {
	return &costLedger{
		repo:   repo,
		logger: logger.Named("cost-ledger"),
	}
}

var _ CostLedger = (*costLedger)(nil)

func (l *costLedger) Record(ctx context.Context, entry *models.CostLogEntry) error {
	if err := l.repo.Insert(ctx, entry); err != nil {
		return fmt.Errorf("failed to record cost entry: %w", err)
	}

	l.logger.Debug("Recorded provider cost",
		zap.String("operation", entry.Operation),
		zap.String("model", entry.Model),
		zap.Int("total_tokens", entry.TotalTokens),
		zap.Float64("cost", entry.Cost))
	return nil
}

func (l *costLedger) TotalsSince(ctx context.Context, since time.Time) (*models.CostTotals, error) {
	return l.repo.TotalsSince(ctx, since)
}

func (l *costLedger) TotalsByOperationSince(ctx context.Context, since time.Time) ([]*models.OperationTotals, error) {
	return l.repo.TotalsByOperationSince(ctx, since)
}
