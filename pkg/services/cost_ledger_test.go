package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuspulse/feedback-engine/pkg/models"
)

type mockCostLogRepo struct {
	entries   []*models.CostLogEntry
	insertErr error
}

func (m *mockCostLogRepo) Insert(_ context.Context, entry *models.CostLogEntry) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockCostLogRepo) TotalsSince(_ context.Context, since time.Time) (*models.CostTotals, error) {
	totals := &models.CostTotals{}
	for _, entry := range m.entries {
		if entry.CreatedAt.Before(since) {
			continue
		}
		totals.Calls++
		totals.TotalTokens += int64(entry.TotalTokens)
		totals.Cost += entry.Cost
	}
	return totals, nil
}

func (m *mockCostLogRepo) TotalsByOperationSince(_ context.Context, _ time.Time) ([]*models.OperationTotals, error) {
	return nil, nil
}

func TestCostLedger_Record(t *testing.T) {
	repo := &mockCostLogRepo{}
	ledger := NewCostLedger(repo, zap.NewNop())

	entry := &models.CostLogEntry{
		Operation:        "analyze_feedback",
		Model:            "gpt-4o-mini",
		PromptTokens:     300,
		CompletionTokens: 100,
		TotalTokens:      400,
		Cost:             0.000105,
		CreatedAt:        time.Now(),
	}
	require.NoError(t, ledger.Record(context.Background(), entry))
	require.Len(t, repo.entries, 1)
	assert.NotZero(t, repo.entries[0].ID)
}

func TestCostLedger_RecordWrapsRepositoryError(t *testing.T) {
	repo := &mockCostLogRepo{insertErr: errors.New("connection reset")}
	ledger := NewCostLedger(repo, zap.NewNop())

	err := ledger.Record(context.Background(), &models.CostLogEntry{Operation: "generate_summary"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record cost entry")
}

func TestCostLedger_TotalsSince(t *testing.T) {
	repo := &mockCostLogRepo{}
	ledger := NewCostLedger(repo, zap.NewNop())

	now := time.Now()
	for i, tokens := range []int{100, 200, 400} {
		require.NoError(t, ledger.Record(context.Background(), &models.CostLogEntry{
			Operation:   "analyze_feedback",
			TotalTokens: tokens,
			Cost:        0.001,
			CreatedAt:   now.Add(-time.Duration(i) * time.Hour),
		}))
	}

	totals, err := ledger.TotalsSince(context.Background(), now.Add(-90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), totals.Calls)
	assert.Equal(t, int64(300), totals.TotalTokens)
	assert.InDelta(t, 0.002, totals.Cost, 1e-9)
}
