// Package config holds the tunable parameters of the defect detection
// pipeline.
//
// Every threshold the detectors depend on is a field with a documented
// default rather than a constant buried in detection code. Defaults() is the
// baseline; Load() layers a .env file and DEFECT_* environment variables on
// top of it, so deployments can retune without rebuilding.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Preprocess controls image normalization.
type Preprocess struct {
	// MaxSide is the bound on the canonical image's long side in pixels.
	// Inputs larger than this are downscaled preserving aspect ratio;
	// smaller inputs are never upscaled.
	MaxSide int

	// DenoiseSigma is the Gaussian blur radius applied to suppress sensor
	// and compression noise. Kept small so true edges survive for the
	// crack detector.
	DenoiseSigma float64

	// StretchLow and StretchHigh are the luminance percentiles mapped to
	// black and white during contrast auto-leveling.
	StretchLow  float64
	StretchHigh float64
}

// Crack controls the edge-based crack detector.
type Crack struct {
	// LowThreshold and HighThreshold are the Canny hysteresis thresholds
	// (0-255 scale).
	LowThreshold  int
	HighThreshold int

	// CloseIterations is how many dilate/erode rounds bridge broken edge
	// fragments before component analysis.
	CloseIterations int

	// MinElongation is the minimum long-side/short-side ratio of a
	// component's bounding box. Near-square components are texture noise,
	// not cracks.
	MinElongation float64

	// MinLength is the minimum long side of a component in pixels.
	MinLength int
}

// Irregularity controls the adaptive-threshold blob detector.
type Irregularity struct {
	// Window is the side of the local mean window for adaptive
	// thresholding. Must be odd.
	Window int

	// Offset is subtracted from the local mean; only pixels darker than
	// mean-Offset become foreground. A uniform image therefore produces an
	// empty mask.
	Offset int

	// MinArea rejects specks below this pixel count.
	MinArea int

	// MaxAreaFrac rejects blobs covering more than this fraction of the
	// frame as background misclassification.
	MaxAreaFrac float64

	// MinEllipseResidual is the minimum deviation of a blob's hole-filled
	// area from its fitted bounding ellipse. Blobs below it are
	// near-elliptical (bolts, rivets) and excluded as benign.
	MinEllipseResidual float64
}

// Model controls the optional learned detector.
type Model struct {
	// Dir is the artifacts directory holding model.onnx, model.json and
	// classes.txt. Empty or missing means the learned detector is
	// disabled; that is a supported configuration, not an error.
	Dir string

	// LibraryPath optionally points at the ONNX Runtime shared library.
	// Empty uses the binding's default lookup.
	LibraryPath string

	// ConfidenceFloor discards model proposals below this score.
	ConfidenceFloor float64

	// NMSIoU is the IoU threshold for the model's internal duplicate
	// suppression, applied before its candidates reach fusion.
	NMSIoU float64

	// Timeout bounds a single forward pass. On expiry the learned
	// detector contributes zero candidates for that request.
	Timeout time.Duration
}

// Fusion controls the merge of all detectors' candidates.
type Fusion struct {
	// IoU is the overlap threshold above which two candidates are
	// considered the same defect.
	IoU float64

	// SupportBoost scales how much an absorbed candidate raises the
	// surviving detection's confidence.
	SupportBoost float64
}

// Config aggregates all pipeline parameters.
type Config struct {
	Preprocess   Preprocess
	Crack        Crack
	Irregularity Irregularity
	Model        Model
	Fusion       Fusion
}

// Defaults returns the documented baseline configuration. The values were
// tuned against the synthetic scenarios in the package tests.
func Defaults() Config {
	return Config{
		Preprocess: Preprocess{
			MaxSide:      1024,
			DenoiseSigma: 1.4,
			StretchLow:   0.02,
			StretchHigh:  0.98,
		},
		Crack: Crack{
			LowThreshold:    50,
			HighThreshold:   150,
			CloseIterations: 2,
			MinElongation:   3.0,
			MinLength:       24,
		},
		Irregularity: Irregularity{
			Window:             15,
			Offset:             3,
			MinArea:            64,
			MaxAreaFrac:        0.25,
			MinEllipseResidual: 0.25,
		},
		Model: Model{
			Dir:             "models",
			ConfidenceFloor: 0.5,
			NMSIoU:          0.4,
			Timeout:         10 * time.Second,
		},
		Fusion: Fusion{
			IoU:          0.3,
			SupportBoost: 0.3,
		},
	}
}

// Load builds a Config from Defaults plus a .env file (if present) and
// environment overrides.
func Load() (Config, error) {
	// Absent .env is fine; environment variables still apply.
	_ = godotenv.Load()

	cfg := Defaults()
	overrideInt(&cfg.Preprocess.MaxSide, "DEFECT_MAX_SIDE")
	overrideFloat(&cfg.Preprocess.DenoiseSigma, "DEFECT_DENOISE_SIGMA")
	overrideInt(&cfg.Crack.LowThreshold, "DEFECT_CRACK_CANNY_LOW")
	overrideInt(&cfg.Crack.HighThreshold, "DEFECT_CRACK_CANNY_HIGH")
	overrideInt(&cfg.Crack.CloseIterations, "DEFECT_CRACK_CLOSE_ITERATIONS")
	overrideFloat(&cfg.Crack.MinElongation, "DEFECT_CRACK_MIN_ELONGATION")
	overrideInt(&cfg.Crack.MinLength, "DEFECT_CRACK_MIN_LENGTH")
	overrideInt(&cfg.Irregularity.Window, "DEFECT_IRREG_WINDOW")
	overrideInt(&cfg.Irregularity.Offset, "DEFECT_IRREG_OFFSET")
	overrideInt(&cfg.Irregularity.MinArea, "DEFECT_IRREG_MIN_AREA")
	overrideFloat(&cfg.Irregularity.MaxAreaFrac, "DEFECT_IRREG_MAX_AREA_FRAC")
	overrideFloat(&cfg.Irregularity.MinEllipseResidual, "DEFECT_IRREG_MIN_RESIDUAL")
	overrideString(&cfg.Model.Dir, "DEFECT_MODEL_DIR")
	overrideString(&cfg.Model.LibraryPath, "DEFECT_ONNX_LIBRARY")
	overrideFloat(&cfg.Model.ConfidenceFloor, "DEFECT_MODEL_CONFIDENCE_FLOOR")
	overrideFloat(&cfg.Model.NMSIoU, "DEFECT_MODEL_NMS_IOU")
	overrideDuration(&cfg.Model.Timeout, "DEFECT_MODEL_TIMEOUT")
	overrideFloat(&cfg.Fusion.IoU, "DEFECT_FUSION_IOU")
	overrideFloat(&cfg.Fusion.SupportBoost, "DEFECT_FUSION_SUPPORT_BOOST")
	return cfg, nil
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func overrideFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func overrideDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
