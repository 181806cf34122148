package raster

import (
	"fmt"

	"github.com/airbusgeo/godal"
)

// Grid is one spectral band as a row-major float64 raster.
type Grid struct {
	W, H int
	Data []float64
}

// Pixels returns W*H.
func (g Grid) Pixels() int { return g.W * g.H }

// At returns the value at column x, row y. No bounds check.
func (g Grid) At(x, y int) float64 { return g.Data[y*g.W+x] }

// Loader reads the first band of a raster file into a Grid. The production
// implementation uses GDAL; tests substitute an in-memory fake.
type Loader interface {
	Read(path string) (Grid, error)
}

// GDALLoader reads GeoTIFFs through godal. godal.RegisterAll must have been
// called once at process start before the first Read.
type GDALLoader struct{}

func (GDALLoader) Read(path string) (Grid, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return Grid{}, fmt.Errorf("open raster %s: %w", path, err)
	}
	defer ds.Close()

	bands := ds.Bands()
	if len(bands) == 0 {
		return Grid{}, fmt.Errorf("raster %s has no bands", path)
	}
	band := bands[0]
	xSize := band.Structure().SizeX
	ySize := band.Structure().SizeY

	data := make([]float64, xSize*ySize)
	if err := band.Read(0, 0, data, xSize, ySize); err != nil {
		return Grid{}, fmt.Errorf("read raster %s: %w", path, err)
	}
	return Grid{W: xSize, H: ySize, Data: data}, nil
}
