package detection

import (
	"image"
	"image/color"
)

// createTestImage creates a uniformly filled NRGBA image
func createTestImage(width, height int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// drawHorizontalLine draws a thick horizontal segment
func drawHorizontalLine(img *image.NRGBA, x1, x2, y, thickness int, c color.Color) {
	for t := 0; t < thickness; t++ {
		for x := x1; x < x2; x++ {
			img.Set(x, y+t, c)
		}
	}
}

// fillRect fills an axis-aligned rectangle
func fillRect(img *image.NRGBA, r image.Rectangle, c color.Color) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

// fillDisk fills a circle of the given radius
func fillDisk(img *image.NRGBA, cx, cy, radius int, c color.Color) {
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= radius*radius {
				img.Set(x, y, c)
			}
		}
	}
}

// maskFromRects builds a binary mask with the given rectangles as
// foreground
func maskFromRects(width, height int, rects ...image.Rectangle) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, width, height))
	for _, r := range rects {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				mask.Pix[y*mask.Stride+x] = 255
			}
		}
	}
	return mask
}
