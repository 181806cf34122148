package raster

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// stubLoader serves grids by path without touching GDAL.
type stubLoader struct {
	grids map[string]Grid
	fail  map[string]error
}

func (l stubLoader) Read(path string) (Grid, error) {
	if err, ok := l.fail[path]; ok {
		return Grid{}, err
	}
	g, ok := l.grids[path]
	if !ok {
		return Grid{}, fmt.Errorf("no grid for %s", path)
	}
	return g, nil
}

func fullBandPaths() map[string]string {
	paths := make(map[string]string, len(Bands))
	for _, b := range Bands {
		paths[b] = "/fake/" + b + ".tif"
	}
	return paths
}

func TestImageFeaturesResamplesToLargestBand(t *testing.T) {
	paths := fullBandPaths()
	grids := map[string]Grid{}
	for _, b := range Bands {
		grids[paths[b]] = Grid{W: 1, H: 1, Data: []float64{2}}
	}
	// B08 is the largest grid and therefore the target shape.
	grids[paths["B08"]] = Grid{W: 2, H: 2, Data: []float64{8, 8, 8, 8}}

	ex := NewExtractor(stubLoader{grids: grids})
	row, ndvi, err := ex.ImageFeatures(paths)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ndvi.W != 2 || ndvi.H != 2 {
		t.Errorf("ndvi shape: got %dx%d, want 2x2", ndvi.W, ndvi.H)
	}
	// Uniform fields: NDVI = (8-2)/(8+2) everywhere, max included.
	if !almostEqual(row["NDVI"], 0.6) {
		t.Errorf("NDVI: got %v, want 0.6", row["NDVI"])
	}
	if !almostEqual(row["B08"], 8) {
		t.Errorf("B08: got %v, want 8", row["B08"])
	}
}

func TestImageFeaturesUnreadableBandAborts(t *testing.T) {
	paths := fullBandPaths()
	grids := map[string]Grid{}
	for _, b := range Bands {
		grids[paths[b]] = Grid{W: 1, H: 1, Data: []float64{1}}
	}
	boom := errors.New("corrupt tif")

	ex := NewExtractor(stubLoader{
		grids: grids,
		fail:  map[string]error{paths["B11"]: boom},
	})
	_, _, err := ex.ImageFeatures(paths)
	if err == nil {
		t.Fatal("expected error for unreadable band, got nil")
	}
	if !errors.Is(err, boom) {
		t.Errorf("error should wrap the loader failure: %v", err)
	}
	if !strings.Contains(err.Error(), "B11") {
		t.Errorf("error should name the band: %v", err)
	}
}

func TestImageFeaturesEmptyGridsHaveNoTargetShape(t *testing.T) {
	paths := fullBandPaths()
	grids := map[string]Grid{}
	for _, b := range Bands {
		grids[paths[b]] = Grid{}
	}

	ex := NewExtractor(stubLoader{grids: grids})
	_, _, err := ex.ImageFeatures(paths)
	if !errors.Is(err, ErrNoTargetShape) {
		t.Fatalf("got %v, want ErrNoTargetShape", err)
	}
}
