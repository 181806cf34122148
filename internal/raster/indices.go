package raster

import (
	"fmt"
	"math"
	"sort"
)

// Eps keeps denominators away from zero in the index formulas.
const Eps = 1e-6

// Bands is the fixed Sentinel-2 band set every analysis archive carries, in
// wavelength order. The brightness index is defined over exactly this set.
var Bands = []string{"B01", "B02", "B03", "B04", "B05", "B06", "B07", "B08", "B8A", "B09", "B10", "B11", "B12"}

// IndexNames lists the derived columns in the order they are computed.
var IndexNames = []string{
	"NDVI", "GNDVI", "VARI", "ARVI", "NDWI", "NDMI", "SAVI", "MSI", "SIPI",
	"FIDET", "NDRE", "brightness", "NGRDI", "RI", "GLI", "VARIgreen", "CIVE",
	"VEG", "VDVI", "IAF", "ExG", "ExGR", "COM",
}

// ComputeIndices evaluates the fixed vegetation-index catalog over flattened
// band vectors of equal length and returns a table holding the input bands
// plus every index column. The formulas are fixed domain definitions, not
// tunables. Fails when any band of the fixed set is absent or has a deviant
// length.
func ComputeIndices(bands map[string][]float64) (map[string][]float64, error) {
	n := -1
	for _, name := range Bands {
		vec, ok := bands[name]
		if !ok {
			return nil, fmt.Errorf("band %s missing from input", name)
		}
		if n == -1 {
			n = len(vec)
		} else if len(vec) != n {
			return nil, fmt.Errorf("band %s has %d pixels, expected %d", name, len(vec), n)
		}
	}
	if n <= 0 {
		return nil, fmt.Errorf("bands are empty")
	}

	table := make(map[string][]float64, len(bands)+len(IndexNames))
	for name, vec := range bands {
		table[name] = vec
	}

	b := func(name string) []float64 { return bands[name] }
	b02, b03, b04, b05 := b("B02"), b("B03"), b("B04"), b("B05")
	b08, b8a, b09, b11, b12 := b("B08"), b("B8A"), b("B09"), b("B11"), b("B12")

	each := func(name string, f func(i int) float64) {
		vec := make([]float64, n)
		for i := 0; i < n; i++ {
			vec[i] = f(i)
		}
		table[name] = vec
	}

	each("NDVI", func(i int) float64 { return (b08[i] - b04[i]) / (b08[i] + b04[i] + Eps) })
	each("GNDVI", func(i int) float64 { return (b08[i] - b03[i]) / (b08[i] + b03[i] + Eps) })
	each("VARI", func(i int) float64 { return (b03[i] - b04[i]) / (b03[i] + b04[i] - b02[i] + Eps) })
	each("ARVI", func(i int) float64 {
		return (b08[i] - 2*b04[i] + b02[i]) / (b08[i] + 2*b04[i] + b02[i] + Eps)
	})
	each("NDWI", func(i int) float64 { return (b03[i] - b08[i]) / (b08[i] + b03[i] + Eps) })
	each("NDMI", func(i int) float64 { return (b08[i] - b11[i]) / (b08[i] + b11[i] + Eps) })
	each("SAVI", func(i int) float64 { return (b08[i] - b11[i]) / ((b08[i] + b11[i] + 0.55) * (1 + 0.55)) })
	each("MSI", func(i int) float64 { return b11[i] / (b8a[i] + Eps) })
	each("SIPI", func(i int) float64 { return (b08[i] - b02[i]) / (b08[i] - b04[i] + Eps) })
	each("FIDET", func(i int) float64 { return b12[i] / (b8a[i]*b09[i] + Eps) })
	each("NDRE", func(i int) float64 { return (b09[i] - b05[i]) / (b09[i] + b05[i] + Eps) })
	each("brightness", func(i int) float64 {
		sum := 0.0
		for _, name := range Bands {
			sum += math.Abs(bands[name][i])
		}
		return sum / 12
	})
	each("NGRDI", func(i int) float64 { return (b03[i] - b04[i]) / (b03[i] + b04[i] + Eps) })
	each("RI", func(i int) float64 { return b04[i]/(b03[i]+Eps) - 1 })
	each("GLI", func(i int) float64 { return b03[i] / (b04[i] + b03[i] + b02[i] + Eps) })
	each("VARIgreen", func(i int) float64 { return (b03[i] - b04[i]) / (b03[i] + b04[i] - b02[i] + Eps) })
	each("CIVE", func(i int) float64 { return 0.441*b04[i] - 0.811*b03[i] + 0.385*b02[i] + 18.78745 })
	each("VEG", func(i int) float64 {
		return math.Sqrt((b04[i]-b02[i])*(b04[i]-b03[i])) / (b04[i] + b02[i] + b03[i] + Eps)
	})
	each("VDVI", func(i int) float64 { return (b03[i] - b02[i]) / (b03[i] + b02[i] + Eps) })
	each("IAF", func(i int) float64 { return b08[i] / (b04[i] + Eps) })
	each("ExG", func(i int) float64 { return 2*b03[i] - b04[i] - b02[i] })
	each("ExGR", func(i int) float64 {
		return (3*b03[i] - 2.4*b04[i] - 1.5*b08[i]) / (b03[i] + 2.4*b04[i] + 1.5*b08[i] + Eps)
	})
	each("COM", func(i int) float64 { return b08[i] / (b03[i] + Eps) })

	return table, nil
}

// AggregateMax collapses the per-pixel table into one feature row by taking
// the maximum of each column. The trained model expects the peak vegetation
// response per image, not the mean.
func AggregateMax(table map[string][]float64) map[string]float64 {
	row := make(map[string]float64, len(table))
	for name, vec := range table {
		if len(vec) == 0 {
			continue
		}
		max := vec[0]
		for _, v := range vec[1:] {
			if v > max {
				max = v
			}
		}
		row[name] = max
	}
	return row
}

// Columns returns the table's column names sorted, for deterministic logs.
func Columns(table map[string][]float64) []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
