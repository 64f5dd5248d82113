package model

import (
	"context"
	"image"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/ironsheep/defect-inspect/internal/detection"
)

// ortInit guards the process-wide ONNX Runtime environment. It is
// initialized at most once and torn down at process exit, never per
// request.
var ortInit sync.Once

func initRuntime(libraryPath string) error {
	var err error
	ortInit.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		err = ort.InitializeEnvironment()
	})
	return err
}

// ONNXDetector wraps a pretrained general-object detection network behind
// the same Detector interface as the classical detectors.
//
// The session and weights are loaded once and are read-only afterwards, so
// a single ONNXDetector is safely shared across concurrent pipeline
// invocations. Because the network is general-purpose rather than
// defect-specific, its candidates carry a generic class label and serve as
// corroborating evidence during fusion, not as an authoritative defect
// type.
type ONNXDetector struct {
	artifacts *Artifacts
	session   *ort.DynamicAdvancedSession
	logger    *slog.Logger

	// ConfidenceFloor discards proposals below this score before NMS.
	ConfidenceFloor float64

	// NMSIoU collapses the model's own duplicate proposals before they
	// reach fusion.
	NMSIoU float64

	// Timeout bounds a single forward pass. On expiry the detector
	// reports zero candidates for the request.
	Timeout time.Duration
}

// NewONNXDetector loads the network described by the artifacts and returns
// a ready detector. Errors here mean the model cannot run at all; the
// caller is expected to fall back to the no-op detector.
func NewONNXDetector(artifacts *Artifacts, libraryPath string, logger *slog.Logger) (*ONNXDetector, error) {
	if err := initRuntime(libraryPath); err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(
		artifacts.WeightsPath,
		[]string{artifacts.Spec.InputName},
		[]string{artifacts.Spec.OutputName},
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &ONNXDetector{
		artifacts:       artifacts,
		session:         session,
		logger:          logger,
		ConfidenceFloor: 0.5,
		NMSIoU:          0.4,
		Timeout:         10 * time.Second,
	}, nil
}

// Close releases the session. Call once at process shutdown.
func (d *ONNXDetector) Close() error {
	if d.session != nil {
		return d.session.Destroy()
	}
	return nil
}

// Name implements detection.Detector.
func (d *ONNXDetector) Name() string { return string(detection.SourceLearned) }

// Detect implements detection.Detector.
//
// The canonical image is letterboxed to the network's square input,
// converted to a normalized CHW tensor, and run through one forward pass
// bounded by the configured timeout. Raw proposals below the confidence
// floor are dropped, survivors go through greedy NMS, and the remaining
// boxes are mapped back to canonical coordinates and clamped.
//
// Every failure path — inference error, timeout, cancelled context —
// degrades to an empty candidate list. Detect never panics the pipeline
// and never reports an error.
func (d *ONNXDetector) Detect(ctx context.Context, canonical *image.NRGBA) []detection.Candidate {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	output, err := d.forward(ctx, canonical)
	if err != nil {
		d.logger.Warn("learned detector unavailable for this request", "error", err)
		return nil
	}

	return d.decode(output, canonical.Bounds())
}

// forward runs one inference pass. The session call itself cannot be
// interrupted, so it runs on its own goroutine and the result is abandoned
// if the context expires first; the goroutine finishes in the background
// and its tensors are destroyed there.
func (d *ONNXDetector) forward(ctx context.Context, canonical *image.NRGBA) ([]float32, error) {
	spec := d.artifacts.Spec
	input, err := ort.NewTensor(
		ort.NewShape(1, 3, int64(spec.InputSize), int64(spec.InputSize)),
		letterbox(canonical, spec.InputSize),
	)
	if err != nil {
		return nil, err
	}

	output, err := ort.NewEmptyTensor[float32](
		ort.NewShape(1, int64(spec.OutputRows), int64(spec.OutputAttrs)))
	if err != nil {
		input.Destroy()
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		done <- d.session.Run([]ort.Value{input}, []ort.Value{output})
	}()

	select {
	case err := <-done:
		if err != nil {
			input.Destroy()
			output.Destroy()
			return nil, err
		}
		data := make([]float32, len(output.GetData()))
		copy(data, output.GetData())
		input.Destroy()
		output.Destroy()
		return data, nil
	case <-ctx.Done():
		// Let the in-flight run finish on its own before releasing the
		// tensors it still references.
		go func() {
			<-done
			input.Destroy()
			output.Destroy()
		}()
		return nil, ctx.Err()
	}
}

// decode converts the raw output tensor into candidates in canonical
// coordinates.
func (d *ONNXDetector) decode(output []float32, bounds image.Rectangle) []detection.Candidate {
	spec := d.artifacts.Spec
	scale, padX, padY := letterboxMapping(bounds, spec.InputSize)

	var proposals []detection.Candidate
	for row := 0; row+spec.OutputAttrs <= len(output); row += spec.OutputAttrs {
		attrs := output[row : row+spec.OutputAttrs]
		objectness := float64(attrs[4])

		bestClass := 0
		bestScore := float64(attrs[5])
		for i := 6; i < len(attrs); i++ {
			if float64(attrs[i]) > bestScore {
				bestScore = float64(attrs[i])
				bestClass = i - 5
			}
		}

		score := objectness * bestScore
		if score < d.ConfidenceFloor {
			continue
		}

		// Row boxes are (cx, cy, w, h) in letterboxed input pixels.
		cx := (float64(attrs[0]) - padX) / scale
		cy := (float64(attrs[1]) - padY) / scale
		w := float64(attrs[2]) / scale
		h := float64(attrs[3]) / scale

		box := image.Rect(
			int(cx-w/2), int(cy-h/2),
			int(cx+w/2), int(cy+h/2),
		).Intersect(bounds)
		if box.Empty() {
			continue
		}

		proposals = append(proposals, detection.Candidate{
			Box:        box,
			Source:     detection.SourceLearned,
			Confidence: score,
			Label:      d.className(bestClass),
		})
	}

	return d.suppress(proposals)
}

// suppress applies greedy NMS over the model's own proposals so duplicates
// are collapsed before fusion sees them.
func (d *ONNXDetector) suppress(proposals []detection.Candidate) []detection.Candidate {
	sort.SliceStable(proposals, func(i, j int) bool {
		return proposals[i].Confidence > proposals[j].Confidence
	})

	var kept []detection.Candidate
	for _, p := range proposals {
		duplicate := false
		for _, k := range kept {
			if detection.IoU(p.Box, k.Box) > d.NMSIoU {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, p)
		}
	}
	return kept
}

func (d *ONNXDetector) className(id int) string {
	if id >= 0 && id < len(d.artifacts.Classes) {
		return d.artifacts.Classes[id]
	}
	return "object"
}

// letterbox scales the image to fit the square network input, pads the
// remainder with neutral gray, and lays the pixels out as a normalized
// CHW float32 tensor.
func letterbox(img *image.NRGBA, size int) []float32 {
	fitted := imaging.Fit(img, size, size, imaging.Linear)
	fw, fh := fitted.Bounds().Dx(), fitted.Bounds().Dy()
	padX := (size - fw) / 2
	padY := (size - fh) / 2

	data := make([]float32, 3*size*size)
	plane := size * size
	for i := range data {
		data[i] = 114.0 / 255.0
	}

	for y := 0; y < fh; y++ {
		for x := 0; x < fw; x++ {
			idx := fitted.PixOffset(x, y)
			pos := (y+padY)*size + (x + padX)
			data[pos] = float32(fitted.Pix[idx]) / 255.0
			data[plane+pos] = float32(fitted.Pix[idx+1]) / 255.0
			data[2*plane+pos] = float32(fitted.Pix[idx+2]) / 255.0
		}
	}

	return data
}

// letterboxMapping returns the scale and padding used by letterbox so
// output boxes can be mapped back to canonical coordinates.
func letterboxMapping(bounds image.Rectangle, size int) (scale, padX, padY float64) {
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	scale = float64(size) / w
	if s := float64(size) / h; s < scale {
		scale = s
	}
	if scale > 1 {
		// imaging.Fit never upscales, so neither does the mapping.
		scale = 1
	}
	padX = (float64(size) - w*scale) / 2
	padY = (float64(size) - h*scale) / 2
	return scale, padX, padY
}
