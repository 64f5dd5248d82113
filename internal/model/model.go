package model

import (
	"log/slog"
	"time"

	"github.com/ironsheep/defect-inspect/internal/detection"
)

// Detector is what the pipeline holds: a candidate source that can also be
// shut down. Both ONNXDetector and NoopDetector satisfy it.
type Detector interface {
	detection.Detector
	Close() error
}

// Options configure New.
type Options struct {
	// Dir is the artifacts directory. Empty disables the learned
	// detector.
	Dir string

	// LibraryPath optionally points at the ONNX Runtime shared library.
	LibraryPath string

	// ConfidenceFloor, NMSIoU and Timeout override the detector defaults
	// when positive.
	ConfidenceFloor float64
	NMSIoU          float64
	Timeout         time.Duration
}

// New probes the artifacts directory once and returns either a live
// ONNX-backed detector or the no-op variant.
//
// Absent or broken artifacts are a supported configuration: they are logged
// at Warn and the pipeline runs on classical detectors alone. New never
// returns an error.
func New(opts Options, logger *slog.Logger) Detector {
	if logger == nil {
		logger = slog.Default()
	}

	artifacts, err := Locate(opts.Dir)
	if err != nil {
		logger.Warn("learned detector disabled, using classical methods only",
			"reason", err)
		return NoopDetector{}
	}

	det, err := NewONNXDetector(artifacts, opts.LibraryPath, logger)
	if err != nil {
		logger.Warn("learned detector disabled, model failed to load",
			"weights", artifacts.WeightsPath, "error", err)
		return NoopDetector{}
	}

	if opts.ConfidenceFloor > 0 {
		det.ConfidenceFloor = opts.ConfidenceFloor
	}
	if opts.NMSIoU > 0 {
		det.NMSIoU = opts.NMSIoU
	}
	if opts.Timeout > 0 {
		det.Timeout = opts.Timeout
	}

	logger.Info("learned detector loaded",
		"weights", artifacts.WeightsPath,
		"input_size", artifacts.Spec.InputSize,
		"classes", len(artifacts.Classes))
	return det
}

var (
	_ Detector = (*ONNXDetector)(nil)
	_ Detector = NoopDetector{}
)
