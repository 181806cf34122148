package raster

// Resize resamples a grid to the given shape. Downscaling averages the source
// box covered by each destination pixel, which doubles as the anti-aliasing
// prefilter; upscaling interpolates bilinearly. Image-library resizers were
// ruled out on purpose: they quantize to 8/16-bit channels and would destroy
// reflectance precision.
func Resize(src Grid, w, h int) Grid {
	if src.W == w && src.H == h {
		return src
	}
	dst := Grid{W: w, H: h, Data: make([]float64, w*h)}
	if src.Pixels() == 0 || w == 0 || h == 0 {
		return dst
	}

	scaleX := float64(src.W) / float64(w)
	scaleY := float64(src.H) / float64(h)

	if scaleX >= 1 || scaleY >= 1 {
		boxResize(src, &dst, scaleX, scaleY)
	} else {
		bilinearResize(src, &dst, scaleX, scaleY)
	}
	return dst
}

// boxResize averages all source pixels whose area overlaps the destination
// pixel's footprint.
func boxResize(src Grid, dst *Grid, scaleX, scaleY float64) {
	for y := 0; y < dst.H; y++ {
		y0 := int(float64(y) * scaleY)
		y1 := int(float64(y+1) * scaleY)
		if y1 <= y0 {
			y1 = y0 + 1
		}
		if y1 > src.H {
			y1 = src.H
		}
		for x := 0; x < dst.W; x++ {
			x0 := int(float64(x) * scaleX)
			x1 := int(float64(x+1) * scaleX)
			if x1 <= x0 {
				x1 = x0 + 1
			}
			if x1 > src.W {
				x1 = src.W
			}

			sum := 0.0
			for sy := y0; sy < y1; sy++ {
				row := sy * src.W
				for sx := x0; sx < x1; sx++ {
					sum += src.Data[row+sx]
				}
			}
			dst.Data[y*dst.W+x] = sum / float64((y1-y0)*(x1-x0))
		}
	}
}

func bilinearResize(src Grid, dst *Grid, scaleX, scaleY float64) {
	for y := 0; y < dst.H; y++ {
		sy := (float64(y)+0.5)*scaleY - 0.5
		if sy < 0 {
			sy = 0
		}
		yi := int(sy)
		if yi > src.H-2 {
			yi = src.H - 2
		}
		if yi < 0 {
			yi = 0
		}
		fy := sy - float64(yi)

		for x := 0; x < dst.W; x++ {
			sx := (float64(x)+0.5)*scaleX - 0.5
			if sx < 0 {
				sx = 0
			}
			xi := int(sx)
			if xi > src.W-2 {
				xi = src.W - 2
			}
			if xi < 0 {
				xi = 0
			}
			fx := sx - float64(xi)

			var v float64
			if src.W == 1 && src.H == 1 {
				v = src.Data[0]
			} else if src.W == 1 {
				v = src.At(0, yi)*(1-fy) + src.At(0, yi+1)*fy
			} else if src.H == 1 {
				v = src.At(xi, 0)*(1-fx) + src.At(xi+1, 0)*fx
			} else {
				top := src.At(xi, yi)*(1-fx) + src.At(xi+1, yi)*fx
				bottom := src.At(xi, yi+1)*(1-fx) + src.At(xi+1, yi+1)*fx
				v = top*(1-fy) + bottom*fy
			}
			dst.Data[y*dst.W+x] = v
		}
	}
}
