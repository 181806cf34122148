package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"atr-bknd/internal/models"

	"github.com/uptrace/bun"
)

func ptrString(s string) *string { return &s }

func seedProperty(t *testing.T, db *bun.DB, userID int64, name string) *models.ROI {
	t.Helper()
	roi := &models.ROI{
		UserID:       userID,
		Name:         name,
		ROIType:      models.ROITypeProperty,
		PropertyName: ptrString(name),
		Geometry:     `{"type":"Polygon","coordinates":[[[0,0],[0.01,0],[0.01,0.01],[0,0.01],[0,0]]]}`,
		Metadata:     `{"area_total_ha": 100}`,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := db.NewInsert().Model(roi).Exec(context.Background()); err != nil {
		t.Fatalf("seed property: %v", err)
	}
	return roi
}

func seedPlot(t *testing.T, db *bun.DB, userID int64, parent *models.ROI, name, metadata string) *models.ROI {
	t.Helper()
	roi := &models.ROI{
		UserID:       userID,
		Name:         name,
		ROIType:      models.ROITypePlot,
		ParentROIID:  &parent.ID,
		PropertyName: parent.PropertyName,
		PlotName:     ptrString(name),
		Geometry:     `{"type":"Polygon","coordinates":[[[0,0],[0.001,0],[0.001,0.001],[0,0.001],[0,0]]]}`,
		Metadata:     metadata,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := db.NewInsert().Model(roi).Exec(context.Background()); err != nil {
		t.Fatalf("seed plot: %v", err)
	}
	return roi
}

func TestGetByIDScopesToOwner(t *testing.T) {
	db := setupTestDB(t)
	svc := NewROIService(db)
	ctx := context.Background()

	prop := seedProperty(t, db, 1, "Fazenda A")

	got, err := svc.GetByID(ctx, prop.ID, 1)
	if err != nil {
		t.Fatalf("owner fetch: %v", err)
	}
	if got.Name != "Fazenda A" {
		t.Errorf("name: got %s", got.Name)
	}

	if _, err := svc.GetByID(ctx, prop.ID, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign user: got %v, want ErrNotFound", err)
	}
}

func TestGetByIDsSkipsForeignROIs(t *testing.T) {
	db := setupTestDB(t)
	svc := NewROIService(db)
	ctx := context.Background()

	mine := seedProperty(t, db, 1, "Mine")
	theirs := seedProperty(t, db, 2, "Theirs")

	got, err := svc.GetByIDs(ctx, []int64{mine.ID, theirs.ID, 9999}, 1)
	if err != nil {
		t.Fatalf("get by ids: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("resolved: got %d, want 1", len(got))
	}
	if _, ok := got[mine.ID]; !ok {
		t.Error("own ROI missing from result")
	}
}

func TestPlotsByProperty(t *testing.T) {
	db := setupTestDB(t)
	svc := NewROIService(db)
	ctx := context.Background()

	prop := seedProperty(t, db, 1, "Fazenda A")
	seedPlot(t, db, 1, prop, "T1", `{"area_ha": 10}`)
	seedPlot(t, db, 1, prop, "T2", `{"area_ha": 20}`)
	other := seedProperty(t, db, 1, "Fazenda B")
	seedPlot(t, db, 1, other, "T3", `{"area_ha": 5}`)

	plots, err := svc.PlotsByProperty(ctx, prop.ID, 1)
	if err != nil {
		t.Fatalf("plots: %v", err)
	}
	if len(plots) != 2 {
		t.Fatalf("count: got %d, want 2", len(plots))
	}

	// A plot is not a valid parent.
	if _, err := svc.PlotsByProperty(ctx, plots[0].ID, 1); err == nil {
		t.Error("expected error for non-property parent, got nil")
	}
}

func TestListPropertiesOnly(t *testing.T) {
	db := setupTestDB(t)
	svc := NewROIService(db)
	ctx := context.Background()

	prop := seedProperty(t, db, 1, "Fazenda A")
	seedPlot(t, db, 1, prop, "T1", `{"variety": "RB867515"}`)
	seedProperty(t, db, 2, "Not mine")

	rois, total, err := svc.List(ctx, 1, ROIQueryParams{PropertiesOnly: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(rois) != 1 || rois[0].ID != prop.ID {
		t.Fatalf("got total=%d len=%d, want just the property", total, len(rois))
	}

	// Variety filter reaches into metadata and needs the plots included.
	rois, _, err = svc.List(ctx, 1, ROIQueryParams{VarietyFilter: "RB867515"})
	if err != nil {
		t.Fatalf("list by variety: %v", err)
	}
	if len(rois) != 1 || rois[0].Name != "T1" {
		t.Fatalf("variety filter: got %d rois", len(rois))
	}
}

func TestToGeoJSON(t *testing.T) {
	db := setupTestDB(t)
	svc := NewROIService(db)

	prop := seedProperty(t, db, 1, "Fazenda A")
	feature, err := svc.ToGeoJSON(prop)
	if err != nil {
		t.Fatalf("to geojson: %v", err)
	}
	if feature.Type != "Feature" || feature.ID != prop.ID {
		t.Errorf("envelope: got %+v", feature)
	}
	area, ok := feature.Properties["computed_area_ha"].(float64)
	if !ok || area <= 0 {
		t.Errorf("computed_area_ha: got %v", feature.Properties["computed_area_ha"])
	}

	prop.Geometry = `{"broken`
	if _, err := svc.ToGeoJSON(prop); err == nil {
		t.Error("expected error for invalid geometry, got nil")
	}
}
