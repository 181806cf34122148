package raster

import "testing"

func TestResizeSameShapeIsIdentity(t *testing.T) {
	src := Grid{W: 2, H: 2, Data: []float64{1, 2, 3, 4}}
	got := Resize(src, 2, 2)
	for i, v := range got.Data {
		if v != src.Data[i] {
			t.Fatalf("pixel %d changed: got %v, want %v", i, v, src.Data[i])
		}
	}
}

func TestResizeDownscaleAveragesBoxes(t *testing.T) {
	// 4x4 grid split into four 2x2 boxes with known means.
	src := Grid{W: 4, H: 4, Data: []float64{
		1, 1, 2, 2,
		1, 1, 2, 2,
		3, 3, 4, 4,
		3, 3, 4, 4,
	}}
	got := Resize(src, 2, 2)
	want := []float64{1, 2, 3, 4}
	for i, w := range want {
		if !almostEqual(got.Data[i], w) {
			t.Errorf("pixel %d: got %v, want %v", i, got.Data[i], w)
		}
	}
}

func TestResizeUpscalePreservesConstantField(t *testing.T) {
	src := Grid{W: 2, H: 2, Data: []float64{5, 5, 5, 5}}
	got := Resize(src, 5, 5)
	if got.W != 5 || got.H != 5 {
		t.Fatalf("shape: got %dx%d, want 5x5", got.W, got.H)
	}
	for i, v := range got.Data {
		if !almostEqual(v, 5) {
			t.Errorf("pixel %d: got %v, want 5", i, v)
		}
	}
}

func TestResizeUpscaleStaysWithinSourceRange(t *testing.T) {
	src := Grid{W: 2, H: 2, Data: []float64{0, 1, 1, 0}}
	got := Resize(src, 7, 7)
	for i, v := range got.Data {
		if v < 0 || v > 1 {
			t.Errorf("pixel %d out of source range: %v", i, v)
		}
	}
}

func TestResizeSingleRowAndColumn(t *testing.T) {
	row := Grid{W: 3, H: 1, Data: []float64{0, 1, 2}}
	got := Resize(row, 6, 1)
	if got.W != 6 || got.H != 1 {
		t.Fatalf("shape: got %dx%d, want 6x1", got.W, got.H)
	}

	col := Grid{W: 1, H: 3, Data: []float64{0, 1, 2}}
	got = Resize(col, 1, 6)
	if got.W != 1 || got.H != 6 {
		t.Fatalf("shape: got %dx%d, want 1x6", got.W, got.H)
	}
}
