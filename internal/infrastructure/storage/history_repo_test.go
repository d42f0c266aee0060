package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/swiftwire/swiftwire/internal/domain/change"
	"github.com/swiftwire/swiftwire/internal/domain/reload"
)

func newTestRepo(t *testing.T) *HistoryRepository {
	t.Helper()
	repo, err := NewHistoryRepository(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleResult(id string, startedAt time.Time) reload.Result {
	return reload.Result{
		CycleID:        id,
		Success:        true,
		Strategy:       reload.StrategyIncremental,
		Classification: change.ClassLogic,
		FileCount:      3,
		Duration:       1200 * time.Millisecond,
		StartedAt:      startedAt,
	}
}

func TestSaveAndRecent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		result := sampleResult(
			string(rune('a'+i))+"-cycle",
			base.Add(time.Duration(i)*time.Minute),
		)
		if err := repo.Save(ctx, result); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	results, err := repo.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	// Most recent first.
	if results[0].CycleID != "e-cycle" {
		t.Errorf("expected newest cycle first, got %s", results[0].CycleID)
	}
	if results[0].Strategy != reload.StrategyIncremental {
		t.Errorf("strategy not round-tripped, got %s", results[0].Strategy)
	}
	if results[0].Classification != change.ClassLogic {
		t.Errorf("classification not round-tripped, got %s", results[0].Classification)
	}
	if results[0].Duration != 1200*time.Millisecond {
		t.Errorf("duration not round-tripped, got %s", results[0].Duration)
	}
}

func TestSaveRequiresCycleID(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.Save(context.Background(), reload.Result{}); err == nil {
		t.Error("expected validation error for missing cycle ID")
	}
}

func TestSaveReplacesSameCycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	startedAt := time.Now()

	first := sampleResult("cycle-1", startedAt)
	first.Success = false
	first.Errors = []string{"compile error"}
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	second := sampleResult("cycle-1", startedAt)
	if err := repo.Save(ctx, second); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	results, err := repo.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result after replace, got %d", len(results))
	}
	if !results[0].Success {
		t.Error("expected the replacing result to win")
	}
	if len(results[0].Errors) != 0 {
		t.Errorf("expected errors cleared by replace, got %v", results[0].Errors)
	}
}

func TestErrorsAndWarningsRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	result := sampleResult("cycle-err", time.Now())
	result.Success = false
	result.Errors = []string{"build failed", "link failed"}
	result.Warnings = []string{"no view components found in A.swift"}
	if err := repo.Save(ctx, result); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	results, err := repo.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(results[0].Errors) != 2 || results[0].Errors[1] != "link failed" {
		t.Errorf("errors not round-tripped: %v", results[0].Errors)
	}
	if len(results[0].Warnings) != 1 {
		t.Errorf("warnings not round-tripped: %v", results[0].Warnings)
	}
}
