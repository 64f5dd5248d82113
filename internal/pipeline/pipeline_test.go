package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/defect-inspect/internal/config"
	"github.com/ironsheep/defect-inspect/internal/detection"
	"github.com/ironsheep/defect-inspect/internal/imaging"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uniformImage(width, height int, level uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: level, G: level, B: level, A: 255})
		}
	}
	return img
}

// crackScene is a white surface with a single dark horizontal line, the
// canonical synthetic crack.
func crackScene() *image.NRGBA {
	img := uniformImage(500, 500, 255)
	for y := 250; y < 252; y++ {
		for x := 150; x < 350; x++ {
			img.SetNRGBA(x, y, color.NRGBA{A: 255})
		}
	}
	return img
}

// stubDetector feeds fixed candidates into the pipeline, or panics, so
// fusion and isolation can be tested without real image analysis.
type stubDetector struct {
	name       string
	candidates []detection.Candidate
	panics     bool
}

func (s stubDetector) Name() string { return s.name }

func (s stubDetector) Detect(context.Context, *image.NRGBA) []detection.Candidate {
	if s.panics {
		panic("stub detector failure")
	}
	return s.candidates
}

func TestRun_InvalidImage(t *testing.T) {
	p := pipeline(t)

	_, err := p.Run(context.Background(), []byte("definitely not an image"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, imaging.ErrInvalidImage),
		"error %v should wrap imaging.ErrInvalidImage", err)
}

func TestRun_CleanSurface(t *testing.T) {
	p := pipeline(t)

	result, err := p.Run(context.Background(), encodePNG(t, uniformImage(300, 300, 180)))
	require.NoError(t, err)

	assert.Empty(t, result.Detections, "uniform surface should yield no findings")
	assert.Equal(t, result.Canonical.Pix, result.Annotated.Pix,
		"annotated image should match canonical when nothing was found")
	assert.Empty(t, result.Findings())
}

func TestRun_DetectsCrack(t *testing.T) {
	p := pipeline(t)

	result, err := p.Run(context.Background(), encodePNG(t, crackScene()))
	require.NoError(t, err)

	findings := result.Findings()
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, "crack", f.Type)
	assert.Greater(t, f.Confidence, 0.0)
	assert.Equal(t, 1, f.Support)
	assert.Equal(t, []string{"crack"}, f.Sources)

	// The box must cover the drawn line.
	assert.LessOrEqual(t, f.X, 150)
	assert.GreaterOrEqual(t, f.X+f.Width, 350)
	assert.LessOrEqual(t, f.Y, 250)
	assert.GreaterOrEqual(t, f.Y+f.Height, 252)

	// The annotated artifact must differ from the canonical image.
	assert.NotEqual(t, result.Canonical.Pix, result.Annotated.Pix)
}

func TestRun_Deterministic(t *testing.T) {
	p := pipeline(t)
	data := encodePNG(t, crackScene())

	first, err := p.Run(context.Background(), data)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, first.Findings(), second.Findings())
	assert.Equal(t, first.Annotated.Pix, second.Annotated.Pix)
}

func TestRun_BoundsOversizedInput(t *testing.T) {
	p := pipeline(t)

	result, err := p.Run(context.Background(), encodePNG(t, uniformImage(2600, 1950, 200)))
	require.NoError(t, err)

	assert.LessOrEqual(t, result.Canonical.Bounds().Dx(), 1024)
	assert.LessOrEqual(t, result.Canonical.Bounds().Dy(), 1024)
	assert.Equal(t, result.Canonical.Bounds(), result.Annotated.Bounds())
}

func TestRun_DetectorPanicIsolated(t *testing.T) {
	cfg := config.Defaults()
	healthy := stubDetector{
		name: "crack",
		candidates: []detection.Candidate{
			{Box: image.Rect(10, 10, 60, 25), Source: detection.SourceCrack, Confidence: 0.8},
		},
	}
	broken := stubDetector{name: "irregularity", panics: true}

	p := NewWithDetectors(cfg, testLogger(), healthy, broken)

	result, err := p.Run(context.Background(), encodePNG(t, uniformImage(200, 200, 128)))
	require.NoError(t, err, "a panicking detector must not fail the run")

	require.Len(t, result.Detections, 1)
	assert.Equal(t, detection.TypeCrack, result.Detections[0].Type)
}

func TestRun_FindingsRankedByConfidence(t *testing.T) {
	cfg := config.Defaults()
	stub := stubDetector{
		name: "crack",
		candidates: []detection.Candidate{
			{Box: image.Rect(10, 10, 40, 20), Source: detection.SourceCrack, Confidence: 0.4},
			{Box: image.Rect(100, 100, 140, 115), Source: detection.SourceCrack, Confidence: 0.9},
			{Box: image.Rect(60, 60, 90, 72), Source: detection.SourceCrack, Confidence: 0.6},
		},
	}

	p := NewWithDetectors(cfg, testLogger(), stub)

	result, err := p.Run(context.Background(), encodePNG(t, uniformImage(200, 200, 128)))
	require.NoError(t, err)

	findings := result.Findings()
	require.Len(t, findings, 3)
	for i := 1; i < len(findings); i++ {
		assert.GreaterOrEqual(t, findings[i-1].Confidence, findings[i].Confidence)
	}
}

func TestRun_OverlappingStubsMerged(t *testing.T) {
	cfg := config.Defaults()
	crack := stubDetector{
		name: "crack",
		candidates: []detection.Candidate{
			{Box: image.Rect(20, 20, 120, 120), Source: detection.SourceCrack, Confidence: 0.8},
		},
	}
	irregularity := stubDetector{
		name: "irregularity",
		candidates: []detection.Candidate{
			{Box: image.Rect(20, 20, 120, 80), Source: detection.SourceIrregularity, Confidence: 0.75},
		},
	}

	p := NewWithDetectors(cfg, testLogger(), crack, irregularity)

	result, err := p.Run(context.Background(), encodePNG(t, uniformImage(200, 200, 128)))
	require.NoError(t, err)

	require.Len(t, result.Detections, 1)
	det := result.Detections[0]
	assert.Equal(t, detection.TypeCrack, det.Type)
	assert.Equal(t, 2, det.Support)
	assert.Greater(t, det.Confidence, 0.8, "absorbing a supporter must raise confidence")
	assert.LessOrEqual(t, det.Confidence, 1.0)
}

func TestPipeline_LearnedInactiveWithoutArtifacts(t *testing.T) {
	p := pipeline(t)
	assert.False(t, p.LearnedActive())
	require.NoError(t, p.Close())
}

func TestResult_AnnotatedPNGRoundTrip(t *testing.T) {
	p := pipeline(t)

	result, err := p.Run(context.Background(), encodePNG(t, crackScene()))
	require.NoError(t, err)

	data, err := result.AnnotatedPNG()
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, result.Annotated.Bounds(), decoded.Bounds())
}

// pipeline builds the production assembly against an artifacts directory
// that does not exist, so the learned detector is always the no-op variant.
func pipeline(t *testing.T) *Pipeline {
	t.Helper()
	cfg := config.Defaults()
	cfg.Model.Dir = t.TempDir() + "/no-model"
	return New(cfg, testLogger())
}
