package detection

import (
	"context"
	"image"

	"github.com/ironsheep/defect-inspect/internal/imaging"
)

// CrackDetector finds thin linear discontinuities: edge extraction, then
// morphological closing to bridge broken edge fragments into continuous
// features, then connected-component analysis with an elongation filter.
//
// The zero value is not usable; construct with NewCrackDetector.
type CrackDetector struct {
	// LowThreshold and HighThreshold are the Canny hysteresis thresholds
	// (0-255 scale).
	LowThreshold  int
	HighThreshold int

	// CloseIterations controls how aggressively broken edge fragments are
	// linked before component analysis.
	CloseIterations int

	// MinElongation rejects components whose bounding box is too compact
	// to be a crack. Near-circular components are texture noise.
	MinElongation float64

	// MinLength rejects components whose long side is below this many
	// pixels.
	MinLength int
}

// NewCrackDetector returns a detector with the documented default
// thresholds, tuned for canonical-scale images.
func NewCrackDetector() *CrackDetector {
	return &CrackDetector{
		LowThreshold:    50,
		HighThreshold:   150,
		CloseIterations: 2,
		MinElongation:   3.0,
		MinLength:       24,
	}
}

// Name implements Detector.
func (d *CrackDetector) Name() string { return string(SourceCrack) }

// Detect implements Detector.
//
// The stages are: grayscale conversion, Canny edge map, morphological
// closing, connected components, then filtering by elongation ratio and
// minimum length. Confidence blends the elongation ratio with the edge
// density inside the bounding box, clipped to [0,1].
//
// Deterministic for identical thresholds and input. A featureless image
// yields no edges and therefore an empty result, never an error.
func (d *CrackDetector) Detect(_ context.Context, canonical *image.NRGBA) []Candidate {
	gray := imaging.Grayscale(canonical)
	edges := imaging.EdgeMap(gray, d.LowThreshold, d.HighThreshold)
	closed := imaging.Close(edges, d.CloseIterations)

	// Fragments shorter than MinLength cannot form a passing component,
	// so they are cheap to drop at the labelling stage already.
	components := FindComponents(closed, d.MinLength)

	var candidates []Candidate
	for _, comp := range components {
		if comp.LongSide() < d.MinLength {
			continue
		}
		elongation := comp.Elongation()
		if elongation < d.MinElongation {
			continue
		}

		boxArea := comp.Box.Dx() * comp.Box.Dy()
		density := 0.0
		if boxArea > 0 {
			density = float64(comp.Area) / float64(boxArea)
		}

		// Elongation saturates at about 8: beyond that a feature is
		// unambiguously linear and longer ratios add no certainty.
		elongationScore := elongation / 8.0
		if elongationScore > 1 {
			elongationScore = 1
		}

		candidates = append(candidates, Candidate{
			Box:        comp.Box,
			Source:     SourceCrack,
			Confidence: clip01(0.5*elongationScore + 0.5*density),
		})
	}

	return candidates
}
