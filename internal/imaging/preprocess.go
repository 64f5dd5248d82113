package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
)

// Options controls Normalize. Zero values fall back to the package defaults
// used throughout the pipeline tests.
type Options struct {
	// MaxSide bounds the long side of the canonical image in pixels.
	MaxSide int

	// DenoiseSigma is the Gaussian radius for noise suppression. Zero or
	// negative skips denoising.
	DenoiseSigma float64

	// StretchLow and StretchHigh are the luminance percentiles mapped to
	// 0 and 255 during contrast auto-leveling.
	StretchLow  float64
	StretchHigh float64
}

// DefaultMaxSide is the canonical image bound used when Options.MaxSide is
// unset. All detector thresholds are tuned against images at this scale.
const DefaultMaxSide = 1024

// Normalize produces the canonical working image every detector operates on:
// bounded size, denoised, contrast-leveled.
//
// The steps, in order:
//
//  1. Resize: the image is scaled down so its long side does not exceed
//     MaxSide, preserving aspect ratio. Images already within the bound are
//     left at their original resolution (no upscaling).
//
//  2. Denoise: a small Gaussian blur removes sensor and compression noise.
//     The radius is deliberately small; the crack detector depends on true
//     edges surviving this step.
//
//  3. Auto-level: pixel values are linearly stretched so the StretchLow and
//     StretchHigh luminance percentiles land on 0 and 255. This makes the
//     fixed thresholds downstream lighting-invariant. Flat histograms
//     (solid-color images) are passed through unchanged.
//
// The input image is never modified. The result is a new *image.NRGBA with
// origin (0,0); all downstream bounding boxes live in its coordinate space.
func Normalize(img image.Image, opts Options) *image.NRGBA {
	maxSide := opts.MaxSide
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}

	bounds := img.Bounds()
	var canonical *image.NRGBA
	if bounds.Dx() > maxSide || bounds.Dy() > maxSide {
		// Fit scales down preserving aspect ratio; it never upscales.
		canonical = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	} else {
		canonical = imaging.Clone(img)
	}

	if opts.DenoiseSigma > 0 {
		canonical = asNRGBA(blur.Gaussian(canonical, opts.DenoiseSigma))
	}

	low, high := opts.StretchLow, opts.StretchHigh
	if low <= 0 && high <= 0 {
		low, high = 0.02, 0.98
	}
	return autoLevel(canonical, low, high)
}

// autoLevel linearly stretches all channels so the given luminance
// percentiles map to the full 0-255 range.
//
// The stretch is computed on the luminance histogram but applied uniformly
// to R, G and B, which adjusts brightness and contrast without shifting
// hue. Alpha is preserved. If the percentile window is degenerate (flat
// image) the input is returned as-is.
func autoLevel(img *image.NRGBA, lowPct, highPct float64) *image.NRGBA {
	hist := LuminanceHistogram(Grayscale(img))

	total := 0
	for _, n := range hist {
		total += n
	}
	if total == 0 {
		return img
	}

	low := percentileLevel(hist, total, lowPct)
	high := percentileLevel(hist, total, highPct)
	if high <= low {
		return img
	}

	// Precomputed level map keeps the per-pixel loop cheap.
	var lut [256]uint8
	scale := 255.0 / float64(high-low)
	for v := 0; v < 256; v++ {
		stretched := (float64(v) - float64(low)) * scale
		if stretched < 0 {
			stretched = 0
		} else if stretched > 255 {
			stretched = 255
		}
		lut[v] = uint8(stretched + 0.5)
	}

	out := image.NewNRGBA(img.Bounds())
	for i := 0; i < len(img.Pix); i += 4 {
		out.Pix[i+0] = lut[img.Pix[i+0]]
		out.Pix[i+1] = lut[img.Pix[i+1]]
		out.Pix[i+2] = lut[img.Pix[i+2]]
		out.Pix[i+3] = img.Pix[i+3]
	}
	return out
}

// percentileLevel returns the lowest gray level at or below which pct of all
// pixels fall.
func percentileLevel(hist [256]int, total int, pct float64) int {
	target := int(pct * float64(total))
	cum := 0
	for v := 0; v < 256; v++ {
		cum += hist[v]
		if cum >= target {
			return v
		}
	}
	return 255
}

// asNRGBA converts the blur result back to the pipeline's canonical pixel
// format without copying when it already matches.
func asNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok {
		return nrgba
	}
	return imaging.Clone(img)
}
