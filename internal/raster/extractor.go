package raster

import (
	"errors"
	"fmt"
)

// ErrNoTargetShape means not a single declared band could be read, so there
// is no reference shape to resample against.
var ErrNoTargetShape = errors.New("no band could be read to determine the target shape")

// Extractor turns a set of per-band raster files into one scalar feature row.
type Extractor struct {
	loader Loader
}

func NewExtractor(loader Loader) *Extractor {
	return &Extractor{loader: loader}
}

// loadAndResample reads every declared band, picks the largest grid (by
// pixel count) as the target shape and resamples the rest onto it. Any
// unreadable band aborts the whole image.
func (e *Extractor) loadAndResample(bandPaths map[string]string) (map[string][]float64, Grid, error) {
	grids := make(map[string]Grid, len(bandPaths))
	var target Grid

	for band, path := range bandPaths {
		g, err := e.loader.Read(path)
		if err != nil {
			return nil, Grid{}, fmt.Errorf("band %s: %w", band, err)
		}
		grids[band] = g
		if g.Pixels() > target.Pixels() {
			target = g
		}
	}
	if target.Pixels() == 0 {
		return nil, Grid{}, ErrNoTargetShape
	}

	flat := make(map[string][]float64, len(grids))
	for band, g := range grids {
		if g.W != target.W || g.H != target.H {
			g = Resize(g, target.W, target.H)
			grids[band] = g
		}
		flat[band] = g.Data
	}
	return flat, target, nil
}

// ImageFeatures runs the extraction half of the pipeline for one (ROI, date)
// image: load, resample, index math, max aggregation. It also returns the
// NDVI grid at target shape for the quicklook renderer.
func (e *Extractor) ImageFeatures(bandPaths map[string]string) (map[string]float64, Grid, error) {
	flat, target, err := e.loadAndResample(bandPaths)
	if err != nil {
		return nil, Grid{}, err
	}

	table, err := ComputeIndices(flat)
	if err != nil {
		return nil, Grid{}, err
	}

	ndvi := Grid{W: target.W, H: target.H, Data: table["NDVI"]}
	return AggregateMax(table), ndvi, nil
}
