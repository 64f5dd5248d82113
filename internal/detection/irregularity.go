package detection

import (
	"context"
	"image"
	"math"

	"github.com/ironsheep/defect-inspect/internal/imaging"
)

// IrregularityDetector finds blob-like surface anomalies: block-adaptive
// thresholding, then contour analysis filtering by area band and shape
// irregularity.
//
// Near-elliptical regions are excluded as likely benign fixtures (bolts,
// rivets, drain openings); jagged-boundary regions are kept. Components
// with crack-grade elongation are also excluded — those belong to the crack
// detector, and reporting them here would surface one defect under two
// types.
type IrregularityDetector struct {
	// Window and Offset parameterize the adaptive threshold; see
	// imaging.AdaptiveThreshold.
	Window int
	Offset int

	// MinArea rejects sub-speck components as noise.
	MinArea int

	// MaxAreaFrac rejects components covering more than this fraction of
	// the frame as background misclassification.
	MaxAreaFrac float64

	// MinEllipseResidual is the minimum relative deviation of the
	// component's filled area from its fitted bounding ellipse. Values
	// below it mean the region is too close to an ellipse to be a defect.
	MinEllipseResidual float64

	// MaxElongation hands long thin components over to the crack
	// detector instead of reporting them as blobs.
	MaxElongation float64
}

// NewIrregularityDetector returns a detector with the documented default
// thresholds, tuned for canonical-scale images.
func NewIrregularityDetector() *IrregularityDetector {
	return &IrregularityDetector{
		Window:             15,
		Offset:             3,
		MinArea:            64,
		MaxAreaFrac:        0.25,
		MinEllipseResidual: 0.25,
		MaxElongation:      3.0,
	}
}

// Name implements Detector.
func (d *IrregularityDetector) Name() string { return string(SourceIrregularity) }

// Detect implements Detector.
//
// The stages are: grayscale conversion, local adaptive threshold (block-wise
// so uneven illumination does not swamp the result), connected components,
// then filtering by area band and ellipse residual. Confidence blends the
// normalized area with the residual, clipped to [0,1].
//
// A uniform image thresholds to an empty mask and yields an empty result.
func (d *IrregularityDetector) Detect(_ context.Context, canonical *image.NRGBA) []Candidate {
	gray := imaging.Grayscale(canonical)
	mask := imaging.AdaptiveThreshold(gray, d.Window, d.Offset)
	components := FindComponents(mask, d.MinArea)

	frame := canonical.Bounds().Dx() * canonical.Bounds().Dy()
	maxArea := int(d.MaxAreaFrac * float64(frame))

	var candidates []Candidate
	for _, comp := range components {
		if comp.Area < d.MinArea || comp.Area > maxArea {
			continue
		}
		if comp.Elongation() >= d.MaxElongation {
			continue
		}

		residual := ellipseResidual(comp)
		if residual < d.MinEllipseResidual {
			continue
		}

		// Area is normalized against a reference defect size; a blob of
		// 4000 px² or more at canonical scale counts as fully sized.
		areaScore := float64(comp.Area) / 4000.0
		if areaScore > 1 {
			areaScore = 1
		}

		candidates = append(candidates, Candidate{
			Box:        comp.Box,
			Source:     SourceIrregularity,
			Confidence: clip01(0.5*areaScore + 0.5*math.Min(residual, 1)),
		})
	}

	return candidates
}

// ellipseResidual measures how far a component's silhouette deviates from
// the ellipse inscribed in its bounding box.
//
// The component's hole-filled area is compared against pi*w*h/4. A rivet
// head scores near 0 even when adaptive thresholding only picked up its
// rim; pitting and spalling leave jagged silhouettes that score well above.
func ellipseResidual(comp Component) float64 {
	w := float64(comp.Box.Dx())
	h := float64(comp.Box.Dy())
	ellipseArea := math.Pi * w * h / 4.0
	if ellipseArea <= 0 {
		return 1
	}
	return math.Abs(float64(comp.FilledArea())-ellipseArea) / ellipseArea
}
