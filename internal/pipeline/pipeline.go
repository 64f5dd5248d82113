// Package pipeline wires the detection stages together and exposes the one
// entry point external collaborators call.
//
// Control flow per invocation: decode and normalize the upload, run the
// crack, irregularity and learned detectors independently over the shared
// read-only canonical image, fuse their candidates into the final
// non-overlapping set, and render the annotated artifact. All per-request
// data is exclusively owned by the invocation; the loaded model session is
// the only longer-lived state and is read-only.
package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log/slog"
	"sync"

	"github.com/ironsheep/defect-inspect/internal/annotate"
	"github.com/ironsheep/defect-inspect/internal/config"
	"github.com/ironsheep/defect-inspect/internal/detection"
	"github.com/ironsheep/defect-inspect/internal/imaging"
	"github.com/ironsheep/defect-inspect/internal/model"
)

// Result is the immutable outcome of one pipeline invocation.
type Result struct {
	// Canonical is the normalized image all boxes refer to.
	Canonical *image.NRGBA

	// Annotated is the display artifact with detections drawn in.
	Annotated *image.NRGBA

	// Detections is the fused, confidence-ranked finding list consumed by
	// the report generator.
	Detections []detection.Fused
}

// Finding is the JSON shape of one detection, handed to report generation
// and returned by the service surface.
type Finding struct {
	Type       string   `json:"type"`
	Confidence float64  `json:"confidence"`
	Support    int      `json:"support"`
	Sources    []string `json:"sources"`
	Label      string   `json:"label,omitempty"`
	X          int      `json:"x"`
	Y          int      `json:"y"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
}

// Findings converts the ranked detections to their serializable form,
// preserving order.
func (r *Result) Findings() []Finding {
	findings := make([]Finding, 0, len(r.Detections))
	for _, det := range r.Detections {
		sources := make([]string, 0, len(det.Sources))
		for _, s := range det.Sources {
			sources = append(sources, string(s))
		}
		findings = append(findings, Finding{
			Type:       string(det.Type),
			Confidence: det.Confidence,
			Support:    det.Support,
			Sources:    sources,
			Label:      det.Label,
			X:          det.Box.Min.X,
			Y:          det.Box.Min.Y,
			Width:      det.Box.Dx(),
			Height:     det.Box.Dy(),
		})
	}
	return findings
}

// AnnotatedPNG encodes the annotated artifact for storage or transport.
func (r *Result) AnnotatedPNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, r.Annotated); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Pipeline is the assembled detection pipeline. Construct with New; a
// single Pipeline serves concurrent invocations.
type Pipeline struct {
	cfg       config.Config
	detectors []detection.Detector
	learned   model.Detector
	fuser     *detection.Fuser
	logger    *slog.Logger
}

// New assembles a pipeline from configuration. The learned detector's
// artifacts are probed here, once; absence degrades to a no-op detector.
func New(cfg config.Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	crack := detection.NewCrackDetector()
	crack.LowThreshold = cfg.Crack.LowThreshold
	crack.HighThreshold = cfg.Crack.HighThreshold
	crack.CloseIterations = cfg.Crack.CloseIterations
	crack.MinElongation = cfg.Crack.MinElongation
	crack.MinLength = cfg.Crack.MinLength

	irregularity := detection.NewIrregularityDetector()
	irregularity.Window = cfg.Irregularity.Window
	irregularity.Offset = cfg.Irregularity.Offset
	irregularity.MinArea = cfg.Irregularity.MinArea
	irregularity.MaxAreaFrac = cfg.Irregularity.MaxAreaFrac
	irregularity.MinEllipseResidual = cfg.Irregularity.MinEllipseResidual
	irregularity.MaxElongation = cfg.Crack.MinElongation

	learned := model.New(model.Options{
		Dir:             cfg.Model.Dir,
		LibraryPath:     cfg.Model.LibraryPath,
		ConfidenceFloor: cfg.Model.ConfidenceFloor,
		NMSIoU:          cfg.Model.NMSIoU,
		Timeout:         cfg.Model.Timeout,
	}, logger)

	return &Pipeline{
		cfg:       cfg,
		detectors: []detection.Detector{crack, irregularity, learned},
		learned:   learned,
		fuser:     &detection.Fuser{IoU: cfg.Fusion.IoU, SupportBoost: cfg.Fusion.SupportBoost},
		logger:    logger,
	}
}

// NewWithDetectors assembles a pipeline over explicit detectors. Tests use
// it to substitute stub detectors; production callers want New.
func NewWithDetectors(cfg config.Config, logger *slog.Logger, detectors ...detection.Detector) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:       cfg,
		detectors: detectors,
		fuser:     &detection.Fuser{IoU: cfg.Fusion.IoU, SupportBoost: cfg.Fusion.SupportBoost},
		logger:    logger,
	}
}

// Config returns the configuration the pipeline was assembled with.
func (p *Pipeline) Config() config.Config { return p.cfg }

// LearnedActive reports whether a real model session backs the learned
// detector, as opposed to the no-op fallback.
func (p *Pipeline) LearnedActive() bool {
	if p.learned == nil {
		return false
	}
	_, noop := p.learned.(model.NoopDetector)
	return !noop
}

// Close releases the learned model session, if one was loaded.
func (p *Pipeline) Close() error {
	if p.learned != nil {
		return p.learned.Close()
	}
	return nil
}

// Run executes the full pipeline on one uploaded image.
//
// The only error it can return wraps imaging.ErrInvalidImage (undecodable
// or zero-area input); no partial result is produced in that case. A clean
// surface is a valid outcome: zero findings with a successfully annotated
// (unchanged-looking) image.
//
// The detectors run on separate goroutines over the shared read-only
// canonical image. A detector that panics is isolated: it contributes zero
// candidates and the others are unaffected.
func (p *Pipeline) Run(ctx context.Context, raw []byte) (*Result, error) {
	img, format, err := imaging.Decode(raw)
	if err != nil {
		return nil, err
	}

	canonical := imaging.Normalize(img, imaging.Options{
		MaxSide:      p.cfg.Preprocess.MaxSide,
		DenoiseSigma: p.cfg.Preprocess.DenoiseSigma,
		StretchLow:   p.cfg.Preprocess.StretchLow,
		StretchHigh:  p.cfg.Preprocess.StretchHigh,
	})

	p.logger.Debug("canonical image ready",
		"format", format,
		"width", canonical.Bounds().Dx(),
		"height", canonical.Bounds().Dy())

	perDetector := make([][]detection.Candidate, len(p.detectors))
	var wg sync.WaitGroup
	for i, det := range p.detectors {
		wg.Add(1)
		go func(i int, det detection.Detector) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("detector failed, contributing no candidates",
						"detector", det.Name(), "panic", r)
					perDetector[i] = nil
				}
			}()
			perDetector[i] = det.Detect(ctx, canonical)
		}(i, det)
	}
	wg.Wait()

	var pooled []detection.Candidate
	for i, candidates := range perDetector {
		p.logger.Debug("detector finished",
			"detector", p.detectors[i].Name(), "candidates", len(candidates))
		pooled = append(pooled, candidates...)
	}

	fused := p.fuser.Fuse(pooled)

	return &Result{
		Canonical:  canonical,
		Annotated:  annotate.Render(canonical, fused),
		Detections: fused.Detections,
	}, nil
}
