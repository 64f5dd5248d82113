package imaging

import "image"

// AdaptiveThreshold binarizes a grayscale image against its local mean.
//
// A pixel becomes foreground (255) when it is darker than the mean of the
// window×window neighborhood around it by more than offset gray levels.
// Block-wise comparison keeps the result stable under uneven illumination,
// where a single global threshold would swamp half the image.
//
// Parameters:
//   - gray: Source grayscale image.
//   - window: Side of the local mean window in pixels. Even values are
//     rounded up to the next odd value. Typical: 11-31.
//   - offset: Minimum darkness below the local mean, in gray levels.
//     A positive offset guarantees a uniform image produces an empty mask.
//
// The local means come from an integral image, so the cost is independent
// of the window size. Windows are clipped at the borders.
func AdaptiveThreshold(gray *image.Gray, window, offset int) *image.Gray {
	bounds := gray.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, width, height))
	if width == 0 || height == 0 {
		return out
	}

	if window < 3 {
		window = 3
	}
	if window%2 == 0 {
		window++
	}
	radius := window / 2

	// integral[y][x] holds the sum of all pixels above and left of (x,y),
	// with one row/column of zero padding.
	integral := make([][]int64, height+1)
	integral[0] = make([]int64, width+1)
	for y := 0; y < height; y++ {
		integral[y+1] = make([]int64, width+1)
		row := gray.Pix[gray.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		var rowSum int64
		for x := 0; x < width; x++ {
			rowSum += int64(row[x])
			integral[y+1][x+1] = integral[y][x+1] + rowSum
		}
	}

	for y := 0; y < height; y++ {
		y0 := clamp(y-radius, 0, height-1)
		y1 := clamp(y+radius, 0, height-1)
		for x := 0; x < width; x++ {
			x0 := clamp(x-radius, 0, width-1)
			x1 := clamp(x+radius, 0, width-1)

			count := int64((y1 - y0 + 1) * (x1 - x0 + 1))
			sum := integral[y1+1][x1+1] - integral[y0][x1+1] - integral[y1+1][x0] + integral[y0][x0]
			mean := sum / count

			v := int64(gray.Pix[gray.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)])
			if v < mean-int64(offset) {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}

	return out
}
