// Package imaging provides the image-side primitives of the defect
// detection pipeline: decoding uploads, producing the canonical working
// image, and the low-level operations the classical detectors build on
// (grayscale conversion, Canny edge maps, binary morphology).
//
// # Canonical Image
//
// Normalize turns an arbitrary decoded image into the canonical
// representation: long side bounded (default 1024 px, never upscaled),
// denoised, contrast auto-leveled. Every detector threshold in the
// repository assumes this scale and leveling, which is what makes them
// resolution- and lighting-invariant. The canonical image is never mutated
// after creation; detectors derive their own grayscale views and the
// annotator draws on a clone.
//
// # Coordinate System
//
// All coordinates are 0-based with the origin at the top-left corner,
// X increasing rightward and Y increasing downward. Canonical images and
// all masks produced here have their bounds anchored at (0,0).
//
// # Error Handling
//
// Only Decode can fail, and only with an error wrapping ErrInvalidImage
// (undecodable bytes or zero area). Degenerate-but-valid input such as a
// solid-color image flows through every other function and simply produces
// empty edge and threshold masks downstream.
//
// # Thread Safety
//
// All functions are pure: they read their inputs and allocate fresh
// outputs, so they can be called concurrently on the same canonical image
// without locking.
package imaging
