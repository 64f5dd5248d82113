// Package annotate renders fused detections onto the canonical image for
// display. It is pure: rendering draws on a clone and never mutates the
// canonical pixels, so the same canonical image can be re-annotated later.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/defect-inspect/internal/detection"
)

// strokeWidth is the box border thickness in pixels.
const strokeWidth = 2

// palette maps defect types to display colors. Unknown types fall back to
// white.
var palette = map[detection.DefectType]colorful.Color{
	detection.TypeCrack:        mustHex("#e53935"), // red
	detection.TypeIrregularity: mustHex("#fb8c00"), // orange
	detection.TypeUnclassified: mustHex("#1e88e5"), // blue
}

func mustHex(hex string) colorful.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		panic(err)
	}
	return c
}

// Render draws every fused detection onto a clone of the canonical image:
// a colored box keyed by defect type plus a confidence label above it.
//
// Boxes outside the image bounds are clamped, never rejected. With zero
// detections the returned pixels are identical to the canonical image.
func Render(canonical *image.NRGBA, result *detection.Result) *image.NRGBA {
	out := imaging.Clone(canonical)
	if result == nil {
		return out
	}

	bounds := out.Bounds()
	for _, det := range result.Detections {
		box := det.Box.Intersect(bounds)
		if box.Empty() {
			continue
		}

		c := typeColor(det.Type)
		drawBox(out, box, c)
		drawLabel(out, box, fmt.Sprintf("%s %.2f", det.Type, det.Confidence), c)
	}

	return out
}

func typeColor(t detection.DefectType) color.NRGBA {
	cf, ok := palette[t]
	if !ok {
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
	r, g, b := cf.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// drawBox strokes the rectangle border without filling the interior, so
// the defect itself stays visible.
func drawBox(img *image.NRGBA, box image.Rectangle, c color.NRGBA) {
	for s := 0; s < strokeWidth; s++ {
		inner := image.Rect(box.Min.X+s, box.Min.Y+s, box.Max.X-s, box.Max.Y-s)
		if inner.Dx() <= 0 || inner.Dy() <= 0 {
			break
		}
		for x := inner.Min.X; x < inner.Max.X; x++ {
			img.SetNRGBA(x, inner.Min.Y, c)
			img.SetNRGBA(x, inner.Max.Y-1, c)
		}
		for y := inner.Min.Y; y < inner.Max.Y; y++ {
			img.SetNRGBA(inner.Min.X, y, c)
			img.SetNRGBA(inner.Max.X-1, y, c)
		}
	}
}

// drawLabel puts white text on a filled background bar above the box, or
// inside its top edge when the box touches the image top.
func drawLabel(img *image.NRGBA, box image.Rectangle, text string, c color.NRGBA) {
	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, text).Ceil()
	barHeight := face.Metrics().Height.Ceil() + 2

	bar := image.Rect(box.Min.X, box.Min.Y-barHeight, box.Min.X+textWidth+6, box.Min.Y)
	if bar.Min.Y < img.Bounds().Min.Y {
		bar = bar.Add(image.Pt(0, barHeight))
	}
	bar = bar.Intersect(img.Bounds())
	if bar.Empty() {
		return
	}

	draw.Draw(img, bar, &image.Uniform{C: c}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: 255}),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(bar.Min.X + 3),
			Y: fixed.I(bar.Max.Y - 3),
		},
	}
	drawer.DrawString(text)
}
