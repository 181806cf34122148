package raster

import (
	"math"
	"strings"
	"testing"
)

// testBands builds a full 13-band input where band Bxx holds the given
// per-band scalar replicated n times.
func testBands(n int, values map[string]float64) map[string][]float64 {
	out := make(map[string][]float64, len(Bands))
	for _, name := range Bands {
		vec := make([]float64, n)
		for i := range vec {
			vec[i] = values[name]
		}
		out[name] = vec
	}
	return out
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestComputeIndicesKnownValues(t *testing.T) {
	// One pixel, band k carries the value k in wavelength order.
	values := map[string]float64{}
	for i, name := range Bands {
		values[name] = float64(i + 1)
	}
	// B01=1 B02=2 B03=3 B04=4 B05=5 B06=6 B07=7 B08=8 B8A=9 B09=10 B10=11 B11=12 B12=13
	table, err := ComputeIndices(testBands(1, values))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := map[string]float64{
		"NDVI":       0.333333, // (8-4)/(8+4)
		"NDRE":       0.333333, // (10-5)/(10+5)
		"MSI":        1.333333, // 12/9
		"IAF":        2.0,      // 8/4
		"CIVE":       18.88845, // 0.441*4 - 0.811*3 + 0.385*2 + 18.78745
		"SAVI":       -0.125579,
		"brightness": 7.583333, // (1+..+13)/12
	}
	for name, want := range cases {
		vec, ok := table[name]
		if !ok {
			t.Fatalf("index %s missing from table", name)
		}
		if !almostEqual(vec[0], want) {
			t.Errorf("%s: got %v, want %v", name, vec[0], want)
		}
	}

	// Every declared index and every input band must be present.
	for _, name := range IndexNames {
		if _, ok := table[name]; !ok {
			t.Errorf("index %s missing from table", name)
		}
	}
	for _, name := range Bands {
		if _, ok := table[name]; !ok {
			t.Errorf("band %s missing from table", name)
		}
	}
}

func TestComputeIndicesZeroDenominators(t *testing.T) {
	// All-zero reflectance must not divide by zero or produce NaN/Inf.
	table, err := ComputeIndices(testBands(2, map[string]float64{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for name, vec := range table {
		for i, v := range vec {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("%s[%d] is not finite: %v", name, i, v)
			}
		}
	}
}

func TestComputeIndicesMissingBand(t *testing.T) {
	bands := testBands(1, map[string]float64{})
	delete(bands, "B8A")

	_, err := ComputeIndices(bands)
	if err == nil {
		t.Fatal("expected error for missing band, got nil")
	}
	if !strings.Contains(err.Error(), "B8A") {
		t.Errorf("error should name the missing band: %v", err)
	}
}

func TestComputeIndicesLengthMismatch(t *testing.T) {
	bands := testBands(4, map[string]float64{})
	bands["B11"] = []float64{1, 2}

	_, err := ComputeIndices(bands)
	if err == nil {
		t.Fatal("expected error for mismatched band length, got nil")
	}
	if !strings.Contains(err.Error(), "B11") {
		t.Errorf("error should name the deviant band: %v", err)
	}
}

func TestAggregateMax(t *testing.T) {
	table := map[string][]float64{
		"NDVI": {0.1, 0.9, 0.4},
		"B04":  {-3, -1, -2},
	}
	row := AggregateMax(table)
	if row["NDVI"] != 0.9 {
		t.Errorf("NDVI max: got %v, want 0.9", row["NDVI"])
	}
	if row["B04"] != -1 {
		t.Errorf("B04 max: got %v, want -1", row["B04"])
	}
}
