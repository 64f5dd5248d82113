// Package detection contains the defect proposal and fusion logic of the
// pipeline.
//
// # Detectors
//
// Two classical detectors operate on the canonical image:
//
//   - CrackDetector: Canny edges, morphological closing to link broken
//     fragments, connected components, elongation filtering. Thin linear
//     features survive; compact texture noise does not.
//   - IrregularityDetector: block-adaptive thresholding, connected
//     components, area band and ellipse-residual filtering. Jagged blobs
//     survive; near-elliptical fixtures (bolts, rivets) do not.
//
// The optional learned detector lives in the model package but emits the
// same Candidate shape, distinguished only by its source tag. All three
// implement the Detector interface, which never errors: a detector that
// finds nothing, or cannot run, contributes an empty slice.
//
// # Fusion
//
// Fuser pools all candidates and applies greedy non-maximum suppression at
// the configured IoU threshold. The output Result is the contract the
// annotator and the external report generator consume: detections ranked by
// confidence descending, pairwise IoU at or below the threshold, each with
// a resolved defect type and a support count.
//
// # Coordinate System
//
// Every box in this package is expressed in canonical image coordinates,
// never in original upload coordinates. Origin top-left, X rightward,
// Y downward.
//
// # Determinism
//
// The classical detectors and fusion are fully deterministic: identical
// thresholds and input produce identical output, including ordering
// (fusion breaks confidence ties by box area, then source priority).
package detection
