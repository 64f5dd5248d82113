package model

import (
	"context"
	"image"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/defect-inspect/internal/detection"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_NoDirectoryFallsBackToNoop(t *testing.T) {
	det := New(Options{}, discardLogger())

	_, ok := det.(NoopDetector)
	assert.True(t, ok, "expected NoopDetector when no model directory is configured")
	require.NoError(t, det.Close())
}

func TestNew_MissingArtifactsFallsBackToNoop(t *testing.T) {
	det := New(Options{Dir: t.TempDir()}, discardLogger())

	_, ok := det.(NoopDetector)
	assert.True(t, ok, "expected NoopDetector for an empty artifacts directory")
}

func TestNew_NilLoggerTolerated(t *testing.T) {
	det := New(Options{}, nil)
	assert.NotNil(t, det)
}

func TestNoopDetector(t *testing.T) {
	var det Detector = NoopDetector{}

	assert.Equal(t, string(detection.SourceLearned), det.Name())

	img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	candidates := det.Detect(context.Background(), img)
	assert.Empty(t, candidates)

	require.NoError(t, det.Close())
}
