package memory

import (
	"context"
	"errors"
	"testing"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/storage"
)

func intPtr(v int) *int { return &v }

func TestMatchStore_UpsertAndGetAll(t *testing.T) {
	store := NewMatchStore()
	ctx := context.Background()

	matches := []*domain.MatchRecord{
		{FixtureID: "m2", Date: "2024-01-02", HomeScore: intPtr(70), AwayScore: intPtr(55)},
		{FixtureID: "m1", Date: "2024-01-01", HomeScore: intPtr(60), AwayScore: intPtr(50)},
		{FixtureID: "m0", StartTime: "2024-01-02T10:00:00Z"},
	}
	if err := store.Upsert(ctx, matches); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	want := []string{"m1", "m0", "m2"}
	if len(got) != len(want) {
		t.Fatalf("expected %d matches, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].FixtureID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].FixtureID)
		}
	}

	// Stored copies are isolated from the caller
	*matches[1].HomeScore = 0
	again, _ := store.GetAll(ctx)
	if *again[0].HomeScore != 60 {
		t.Errorf("expected stored score 60, got %d", *again[0].HomeScore)
	}
}

func TestMatchStore_UpsertReplaces(t *testing.T) {
	store := NewMatchStore()
	ctx := context.Background()

	_ = store.Upsert(ctx, []*domain.MatchRecord{{FixtureID: "m1", Date: "2024-01-01"}})
	_ = store.Upsert(ctx, []*domain.MatchRecord{{FixtureID: "m1", Date: "2024-01-01", HomeScore: intPtr(1), AwayScore: intPtr(2)}})

	got, _ := store.GetAll(ctx)
	if len(got) != 1 {
		t.Fatalf("expected 1 match, got %d", len(got))
	}
	if !got[0].HasScores() {
		t.Error("expected replaced match to carry scores")
	}
}

func TestMatchStore_GetByDateRange(t *testing.T) {
	store := NewMatchStore()
	ctx := context.Background()

	_ = store.Upsert(ctx, []*domain.MatchRecord{
		{FixtureID: "a", Date: "2024-01-01"},
		{FixtureID: "b", Date: "2024-01-05"},
		{FixtureID: "c", Date: "2024-01-10"},
	})

	got, err := store.GetByDateRange(ctx, "2024-01-01", "2024-01-05")
	if err != nil {
		t.Fatalf("GetByDateRange failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}

	if _, err := store.GetByDateRange(ctx, "2024-02-01", "2024-01-01"); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMatchStore_InvalidInput(t *testing.T) {
	store := NewMatchStore()
	err := store.Upsert(context.Background(), []*domain.MatchRecord{{FixtureID: ""}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
