package artifacts

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func bundlePaths(t *testing.T, regressor, stats, features string) Paths {
	t.Helper()
	dir := t.TempDir()
	p := Paths{
		RegressorPath: filepath.Join(dir, "regressor.json"),
		StatsPath:     filepath.Join(dir, "stats.json"),
		FeaturesPath:  filepath.Join(dir, "features.json"),
	}
	writeFile(t, p.RegressorPath, regressor)
	writeFile(t, p.StatsPath, stats)
	writeFile(t, p.FeaturesPath, features)
	return p
}

func TestLoadLinearBundle(t *testing.T) {
	p := bundlePaths(t,
		`{"kind":"linear","intercept":1.5,"coefficients":[2,0.5]}`,
		`{"NDVI":{"min":-1,"max":1},"Hectares":{"min":0,"max":100}}`,
		`["NDVI","Hectares"]`,
	)

	b, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(b.FeatureList) != 2 || b.FeatureList[0] != "NDVI" {
		t.Errorf("feature list: got %v", b.FeatureList)
	}
	if mm := b.FeatureStats["Hectares"]; mm.Min != 0 || mm.Max != 100 {
		t.Errorf("Hectares stats: got %+v", mm)
	}

	// 1.5 + 2*1 + 0.5*4 = 5.5
	got := b.Regressor.Predict([]float64{1, 4})
	if math.Abs(got-5.5) > 1e-9 {
		t.Errorf("predict: got %v, want 5.5", got)
	}
}

func TestLoadMissingFileIsNotFound(t *testing.T) {
	p := bundlePaths(t,
		`{"kind":"linear","intercept":0,"coefficients":[1]}`,
		`{}`,
		`["NDVI"]`,
	)
	p.StatsPath = filepath.Join(t.TempDir(), "nope.json")

	_, err := Load(p)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("got %v, want *NotFoundError", err)
	}
	if nf.Path != p.StatsPath {
		t.Errorf("error names %s, want %s", nf.Path, p.StatsPath)
	}
}

func TestLoadRejectsUnknownRegressorKind(t *testing.T) {
	p := bundlePaths(t,
		`{"kind":"svm"}`,
		`{}`,
		`["NDVI"]`,
	)
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for unknown regressor kind, got nil")
	}
}

func TestLoadRejectsEmptyFeatureList(t *testing.T) {
	p := bundlePaths(t,
		`{"kind":"linear","intercept":0,"coefficients":[1]}`,
		`{}`,
		`[]`,
	)
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for empty feature list, got nil")
	}
}

func TestForestRegressorAveragesTrees(t *testing.T) {
	// Tree 1: feature 0 <= 0.5 -> 10, else 20. Tree 2: constant 30.
	raw := `{
		"kind": "forest",
		"trees": [
			{
				"children_left":  [1, -1, -1],
				"children_right": [2, -1, -1],
				"feature":        [0, -1, -1],
				"threshold":      [0.5, 0, 0],
				"value":          [0, 10, 20]
			},
			{
				"children_left":  [-1],
				"children_right": [-1],
				"feature":        [-1],
				"threshold":      [0],
				"value":          [30]
			}
		]
	}`
	reg, err := decodeRegressor([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got := reg.Predict([]float64{0.2}); got != 20 { // (10+30)/2
		t.Errorf("left branch: got %v, want 20", got)
	}
	if got := reg.Predict([]float64{0.9}); got != 25 { // (20+30)/2
		t.Errorf("right branch: got %v, want 25", got)
	}
}

func TestForestRegressorRejectsRaggedTree(t *testing.T) {
	raw := `{
		"kind": "forest",
		"trees": [{
			"children_left":  [-1],
			"children_right": [-1],
			"feature":        [-1, -1],
			"threshold":      [0],
			"value":          [5]
		}]
	}`
	if _, err := decodeRegressor([]byte(raw)); err == nil {
		t.Fatal("expected error for ragged node arrays, got nil")
	}
}
