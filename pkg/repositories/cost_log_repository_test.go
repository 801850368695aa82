//go:build integration

package repositories

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/campuspulse/feedback-engine/pkg/models"
	"github.com/campuspulse/feedback-engine/pkg/testhelpers"
)

func setupCostLogTest(t *testing.T) (CostLogRepository, *testhelpers.EngineDB) {
	engineDB := testhelpers.GetEngineDB(t)
	_, _ = engineDB.DB.Exec(context.Background(), "DELETE FROM cost_log")
	return NewCostLogRepository(engineDB.DB), engineDB
}

func TestCostLogRepository_Insert(t *testing.T) {
	repo, _ := setupCostLogTest(t)
	ctx := context.Background()

	entry := &models.CostLogEntry{
		Operation:        "analyze_feedback",
		Model:            "gpt-4o-mini",
		PromptTokens:     200,
		CompletionTokens: 50,
		TotalTokens:      250,
		Cost:             0.00006,
		Metadata:         map[string]any{"cached": false},
	}

	if err := repo.Insert(ctx, entry); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if entry.ID == 0 {
		t.Error("expected ID to be assigned")
	}
}

func TestCostLogRepository_Totals(t *testing.T) {
	repo, _ := setupCostLogTest(t)
	ctx := context.Background()

	entries := []*models.CostLogEntry{
		{Operation: "analyze_feedback", Model: "gpt-4o-mini", PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120, Cost: 0.001},
		{Operation: "analyze_feedback", Model: "gpt-4o-mini", PromptTokens: 200, CompletionTokens: 40, TotalTokens: 240, Cost: 0.002},
		{Operation: "generate_summary", Model: "gpt-4o-mini", PromptTokens: 1000, CompletionTokens: 500, TotalTokens: 1500, Cost: 0.01},
	}
	for _, e := range entries {
		if err := repo.Insert(ctx, e); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	since := time.Now().Add(-time.Hour)

	totals, err := repo.TotalsSince(ctx, since)
	if err != nil {
		t.Fatalf("TotalsSince failed: %v", err)
	}
	if totals.Calls != 3 {
		t.Errorf("expected 3 calls, got %d", totals.Calls)
	}
	if totals.PromptTokens != 1300 {
		t.Errorf("expected 1300 prompt tokens, got %d", totals.PromptTokens)
	}
	if math.Abs(totals.Cost-0.013) > 1e-9 {
		t.Errorf("expected total cost 0.013, got %v", totals.Cost)
	}

	byOp, err := repo.TotalsByOperationSince(ctx, since)
	if err != nil {
		t.Fatalf("TotalsByOperationSince failed: %v", err)
	}
	if len(byOp) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(byOp))
	}
	// Ordered by operation name.
	if byOp[0].Operation != "analyze_feedback" || byOp[0].Calls != 2 {
		t.Errorf("unexpected first group %+v", byOp[0])
	}
	if byOp[1].Operation != "generate_summary" || byOp[1].Calls != 1 {
		t.Errorf("unexpected second group %+v", byOp[1])
	}

	// A window after the inserts sees nothing.
	empty, err := repo.TotalsSince(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("TotalsSince failed: %v", err)
	}
	if empty.Calls != 0 || empty.Cost != 0 {
		t.Errorf("expected empty window, got %+v", empty)
	}
}
