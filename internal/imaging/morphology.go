package imaging

import "image"

// Morphological operations over binary masks (0 = background, 255 =
// foreground) with a 3x3 square structuring element. The crack detector
// uses Close to bridge broken edge fragments into continuous linear
// features before component analysis.

// Dilate grows foreground regions by one pixel in every direction: a pixel
// is set when any of its 8 neighbors (or itself) is foreground.
func Dilate(mask *image.Gray) *image.Gray {
	bounds := mask.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			on := false
			for ky := -1; ky <= 1 && !on; ky++ {
				for kx := -1; kx <= 1 && !on; kx++ {
					ny, nx := y+ky, x+kx
					if ny < 0 || ny >= height || nx < 0 || nx >= width {
						continue
					}
					if mask.Pix[mask.PixOffset(bounds.Min.X+nx, bounds.Min.Y+ny)] != 0 {
						on = true
					}
				}
			}
			if on {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}

	return out
}

// Erode shrinks foreground regions by one pixel in every direction: a pixel
// survives only when all of its 8 neighbors (and itself) are foreground.
// Pixels outside the mask count as background, so erosion eats the border
// ring.
func Erode(mask *image.Gray) *image.Gray {
	bounds := mask.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			on := true
			for ky := -1; ky <= 1 && on; ky++ {
				for kx := -1; kx <= 1 && on; kx++ {
					ny, nx := y+ky, x+kx
					if ny < 0 || ny >= height || nx < 0 || nx >= width {
						on = false
						continue
					}
					if mask.Pix[mask.PixOffset(bounds.Min.X+nx, bounds.Min.Y+ny)] == 0 {
						on = false
					}
				}
			}
			if on {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}

	return out
}

// Close applies the given number of dilations followed by the same number
// of erosions. Gaps narrower than roughly 2*iterations pixels between
// foreground fragments are sealed; isolated fragments keep their extent.
func Close(mask *image.Gray, iterations int) *image.Gray {
	out := mask
	for i := 0; i < iterations; i++ {
		out = Dilate(out)
	}
	for i := 0; i < iterations; i++ {
		out = Erode(out)
	}
	return out
}
