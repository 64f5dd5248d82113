package model

import (
	"context"
	"image"

	"github.com/ironsheep/defect-inspect/internal/detection"
)

// NoopDetector is the null-object variant used when model artifacts are
// absent or fail to load. It always reports zero candidates, so callers
// need no conditional logic around the learned detector being available.
type NoopDetector struct{}

// Name implements detection.Detector.
func (NoopDetector) Name() string { return string(detection.SourceLearned) }

// Detect implements detection.Detector. Always empty, never an error.
func (NoopDetector) Detect(context.Context, *image.NRGBA) []detection.Candidate {
	return nil
}

// Close implements the same shutdown surface as ONNXDetector.
func (NoopDetector) Close() error { return nil }
