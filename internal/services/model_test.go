package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"atr-bknd/internal/models"

	"github.com/uptrace/bun"
)

func seedModelRow(t *testing.T, db *bun.DB, variety, month string, active bool) int64 {
	t.Helper()
	m := &models.ATRModel{
		Name:           variety + " " + month,
		ReferenceMonth: month,
		Variety:        variety,
		Active:         active,
		RegressorPath:  "x/regressor.json",
		StatsPath:      "x/stats.json",
		FeaturesPath:   "x/features.json",
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := db.NewInsert().Model(m).Exec(context.Background()); err != nil {
		t.Fatalf("seed model: %v", err)
	}
	return m.ID
}

func TestSuggestPicksLatestEligibleModel(t *testing.T) {
	db := setupTestDB(t)
	svc := NewModelService(db)
	ctx := context.Background()

	seedModelRow(t, db, "RB867515", "2025-05-01", true)
	wantID := seedModelRow(t, db, "RB867515", "2025-07-01", true)
	seedModelRow(t, db, "RB867515", "2025-09-01", true)  // in the future
	seedModelRow(t, db, "RB867515", "2025-08-01", false) // inactive
	seedModelRow(t, db, "CTC4", "2025-07-01", true)      // wrong variety

	got, err := svc.Suggest(ctx, "2025-08-15", "RB867515")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if got.ID != wantID {
		t.Errorf("model: got %d (%s), want %d", got.ID, got.ReferenceMonth, wantID)
	}
}

func TestSuggestNoMatch(t *testing.T) {
	db := setupTestDB(t)
	svc := NewModelService(db)

	seedModelRow(t, db, "RB867515", "2025-09-01", true)

	_, err := svc.Suggest(context.Background(), "2025-08-15", "RB867515")
	if !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("got %v, want ErrModelNotFound", err)
	}
}

func TestArtifactPathsRejectsInactiveModel(t *testing.T) {
	db := setupTestDB(t)
	svc := NewModelService(db)
	ctx := context.Background()

	id := seedModelRow(t, db, "RB867515", "2025-07-01", false)

	if _, err := svc.ArtifactPaths(ctx, id); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("inactive model: got %v, want ErrModelNotFound", err)
	}
	if _, err := svc.ArtifactPaths(ctx, id+100); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("unknown model: got %v, want ErrModelNotFound", err)
	}
}

func TestListActiveExcludesInactive(t *testing.T) {
	db := setupTestDB(t)
	svc := NewModelService(db)

	seedModelRow(t, db, "RB867515", "2025-07-01", true)
	seedModelRow(t, db, "RB867515", "2025-06-01", false)

	list, err := svc.ListActive(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("count: got %d, want 1", len(list))
	}
}
