package detection

import (
	"context"
	"image"
)

// Source identifies which detector proposed a candidate.
type Source string

const (
	// SourceCrack marks candidates from the edge-based crack detector.
	SourceCrack Source = "crack"

	// SourceIrregularity marks candidates from the adaptive-threshold
	// surface irregularity detector.
	SourceIrregularity Source = "irregularity"

	// SourceLearned marks candidates from the optional pretrained model.
	SourceLearned Source = "learned"
)

// priority orders sources for deterministic tie-breaking during fusion:
// crack > irregularity > learned.
func (s Source) priority() int {
	switch s {
	case SourceCrack:
		return 3
	case SourceIrregularity:
		return 2
	case SourceLearned:
		return 1
	}
	return 0
}

// DefectType is the resolved classification of a fused detection.
type DefectType string

const (
	// TypeCrack is a thin linear discontinuity.
	TypeCrack DefectType = "crack"

	// TypeIrregularity is a blob-like surface anomaly (pitting, spalling,
	// irregular texture).
	TypeIrregularity DefectType = "irregularity"

	// TypeUnclassified covers regions proposed only by the learned model,
	// which is general-purpose and cannot name a defect type.
	TypeUnclassified DefectType = "unclassified"
)

// Candidate is one proposed defect region before fusion.
//
// Every detector emits this same shape distinguished only by Source, so
// fusion is written once against a single type. Boxes are axis-aligned and
// always expressed in canonical image coordinates.
type Candidate struct {
	// Box is the bounding box in canonical image coordinates.
	Box image.Rectangle

	// Source tags the detector that proposed this region.
	Source Source

	// Confidence is the detector's score in [0,1].
	Confidence float64

	// Label is an optional model class name; only the learned detector
	// sets it (e.g. "object"), since the pretrained model is not
	// defect-specific.
	Label string
}

// Detector is the uniform interface the pipeline runs each detector
// through.
//
// Detect never returns an error: a detector that finds nothing, or cannot
// run at all, contributes an empty slice. The context bounds the only
// potentially slow implementation (the learned model); classical detectors
// ignore it.
type Detector interface {
	// Name identifies the detector in logs.
	Name() string

	// Detect proposes defect regions on the canonical image.
	Detect(ctx context.Context, canonical *image.NRGBA) []Candidate
}

// IoU computes the intersection-over-union of two boxes, the duplicate
// metric used by fusion and the learned detector's internal suppression.
// Returns 0 when either box is empty.
func IoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	interArea := inter.Dx() * inter.Dy()
	union := a.Dx()*a.Dy() + b.Dx()*b.Dy() - interArea
	if union <= 0 {
		return 0
	}
	return float64(interArea) / float64(union)
}

// clip01 clamps a score to [0,1].
func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
