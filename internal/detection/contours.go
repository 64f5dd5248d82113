package detection

import "image"

// Component is one connected foreground region of a binary mask, with the
// statistics the detectors filter on.
type Component struct {
	// Box is the bounding box in mask coordinates.
	Box image.Rectangle

	// Area is the number of foreground pixels in the component.
	Area int

	// Boundary is the number of component pixels touching the background,
	// an 8-connected perimeter estimate.
	Boundary int

	// points holds every pixel of the component, used for hole filling.
	points []image.Point
}

// Elongation is the long-side/short-side ratio of the bounding box. A value
// near 1 is compact; cracks score well above it.
func (c Component) Elongation() float64 {
	w, h := c.Box.Dx(), c.Box.Dy()
	long, short := w, h
	if h > w {
		long, short = h, w
	}
	if short < 1 {
		short = 1
	}
	return float64(long) / float64(short)
}

// LongSide returns the larger bounding box dimension in pixels.
func (c Component) LongSide() int {
	if c.Box.Dx() > c.Box.Dy() {
		return c.Box.Dx()
	}
	return c.Box.Dy()
}

// FindComponents labels the 8-connected foreground components of a binary
// mask (nonzero = foreground).
//
// Components smaller than minPixels are discarded as noise. The flood fill
// is iterative (stack-based) so large components cannot overflow the
// goroutine stack.
func FindComponents(mask *image.Gray, minPixels int) []Component {
	bounds := mask.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	visited := make([]bool, width*height)
	at := func(x, y int) bool {
		return mask.Pix[mask.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)] != 0
	}

	var components []Component
	for sy := 0; sy < height; sy++ {
		for sx := 0; sx < width; sx++ {
			if visited[sy*width+sx] || !at(sx, sy) {
				continue
			}

			comp := Component{Box: image.Rect(sx, sy, sx+1, sy+1)}
			stack := []image.Point{{X: sx, Y: sy}}
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
					continue
				}
				if visited[p.Y*width+p.X] || !at(p.X, p.Y) {
					continue
				}
				visited[p.Y*width+p.X] = true

				comp.points = append(comp.points, p)
				comp.Area++
				comp.Box = comp.Box.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))

				onBoundary := false
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						nx, ny := p.X+dx, p.Y+dy
						if nx < 0 || nx >= width || ny < 0 || ny >= height || !at(nx, ny) {
							onBoundary = true
							continue
						}
						stack = append(stack, image.Point{X: nx, Y: ny})
					}
				}
				if onBoundary {
					comp.Boundary++
				}
			}

			if comp.Area >= minPixels {
				components = append(components, comp)
			}
		}
	}

	return components
}

// FilledArea returns the component's pixel count with any enclosed holes
// counted as part of the region.
//
// Adaptive thresholding often leaves only the rim of a uniform blob (the
// interior matches its own local mean), so shape measures on the raw pixel
// count would misread a solid rivet as a thin ring. Filling restores the
// solid silhouette: background pixels inside the bounding box that cannot
// be reached from outside the component are holes.
func (c Component) FilledArea() int {
	w := c.Box.Dx() + 2
	h := c.Box.Dy() + 2
	if w <= 2 || h <= 2 {
		return c.Area
	}

	// grid: true where the component has a pixel, offset by (1,1) so a
	// one-pixel border of guaranteed background surrounds the box.
	grid := make([]bool, w*h)
	for _, p := range c.points {
		gx := p.X - c.Box.Min.X + 1
		gy := p.Y - c.Box.Min.Y + 1
		grid[gy*w+gx] = true
	}

	// Flood the outside background from the border (4-connected, so it
	// cannot leak diagonally through an 8-connected rim).
	reached := make([]bool, w*h)
	stack := []image.Point{{X: 0, Y: 0}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.X < 0 || p.X >= w || p.Y < 0 || p.Y >= h {
			continue
		}
		idx := p.Y*w + p.X
		if reached[idx] || grid[idx] {
			continue
		}
		reached[idx] = true
		stack = append(stack,
			image.Point{X: p.X + 1, Y: p.Y},
			image.Point{X: p.X - 1, Y: p.Y},
			image.Point{X: p.X, Y: p.Y + 1},
			image.Point{X: p.X, Y: p.Y - 1},
		)
	}

	filled := 0
	for idx := range grid {
		if grid[idx] || !reached[idx] {
			filled++
		}
	}
	return filled
}
