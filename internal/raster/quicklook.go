package raster

import (
	"fmt"

	"github.com/fogleman/gg"
)

// RenderNDVIQuicklook paints an NDVI grid as a PNG with the usual
// red (-1) / yellow (0) / green (+1) ramp. The quicklook lands next to the
// job's results.csv so a FAILED or COMPLETED job can be inspected visually
// without re-running the pipeline.
func RenderNDVIQuicklook(ndvi Grid, outPath string) error {
	if ndvi.Pixels() == 0 {
		return fmt.Errorf("empty NDVI grid")
	}

	dc := gg.NewContext(ndvi.W, ndvi.H)
	for y := 0; y < ndvi.H; y++ {
		for x := 0; x < ndvi.W; x++ {
			r, g, b := ndviColor(ndvi.At(x, y))
			dc.SetRGB(r, g, b)
			dc.SetPixel(x, y)
		}
	}

	if err := dc.SavePNG(outPath); err != nil {
		return fmt.Errorf("save quicklook %s: %w", outPath, err)
	}
	return nil
}

func ndviColor(v float64) (r, g, b float64) {
	if v < -1 {
		v = -1
	}
	if v > 1 {
		v = 1
	}
	if v < 0 {
		// red to yellow
		return 1, 1 + v, 0
	}
	// yellow to green
	return 1 - v, 1, 0
}
