package imaging

import (
	"bytes"
	"image"
	"image/color"
	"testing"
)

func TestNormalize_DownscalesOversizedImage(t *testing.T) {
	// 2600x1950 is a typical site-camera frame; the long side must come
	// down to the canonical bound with the 4:3 aspect preserved.
	img := image.NewNRGBA(image.Rect(0, 0, 2600, 1950))

	out := Normalize(img, Options{MaxSide: 1024})

	if out.Bounds().Dx() > 1024 || out.Bounds().Dy() > 1024 {
		t.Fatalf("normalized bounds %v exceed max side 1024", out.Bounds())
	}
	if out.Bounds().Dx() != 1024 {
		t.Errorf("long side = %d, want 1024", out.Bounds().Dx())
	}
	if out.Bounds().Dy() != 768 {
		t.Errorf("short side = %d, want 768 (aspect preserved)", out.Bounds().Dy())
	}
}

func TestNormalize_NeverUpscales(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 320, 240))

	out := Normalize(img, Options{MaxSide: 1024})

	if out.Bounds().Dx() != 320 || out.Bounds().Dy() != 240 {
		t.Errorf("small image resized to %v, want original 320x240", out.Bounds())
	}
}

func TestNormalize_SolidColorPassthrough(t *testing.T) {
	// A flat histogram has a degenerate percentile window, so auto-level
	// must leave the pixels alone instead of dividing by zero.
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = 180
		img.Pix[i+1] = 180
		img.Pix[i+2] = 180
		img.Pix[i+3] = 255
	}

	out := Normalize(img, Options{MaxSide: 1024})

	for i := 0; i < len(out.Pix); i += 4 {
		if out.Pix[i] != 180 {
			t.Fatalf("solid image altered: pixel %d = %d, want 180", i/4, out.Pix[i])
		}
	}
}

func TestNormalize_StretchesContrast(t *testing.T) {
	// A low-contrast ramp confined to [100, 140] must widen toward the
	// full range after auto-leveling.
	img := image.NewNRGBA(image.Rect(0, 0, 200, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 200; x++ {
			v := uint8(100 + x/5)
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}

	out := Normalize(img, Options{MaxSide: 1024})

	lo, hi := 255, 0
	for i := 0; i < len(out.Pix); i += 4 {
		v := int(out.Pix[i])
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi-lo <= 40 {
		t.Errorf("contrast range after auto-level = [%d, %d], want stretched beyond the input's 40", lo, hi)
	}
	if lo > 20 {
		t.Errorf("low end = %d, want pulled near 0", lo)
	}
	if hi < 235 {
		t.Errorf("high end = %d, want pushed near 255", hi)
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	for x := 0; x < 100; x++ {
		v := uint8(x * 2)
		img.SetNRGBA(x, 50, color.NRGBA{R: v, G: v, B: v, A: 255})
	}
	before := make([]byte, len(img.Pix))
	copy(before, img.Pix)

	Normalize(img, Options{MaxSide: 1024, DenoiseSigma: 1.4})

	if !bytes.Equal(before, img.Pix) {
		t.Error("Normalize mutated the input image")
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 300, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 300; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x % 251), G: uint8(y % 241), B: uint8((x + y) % 239), A: 255})
		}
	}

	opts := Options{MaxSide: 1024, DenoiseSigma: 1.4}
	a := Normalize(img, opts)
	b := Normalize(img, opts)

	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("Normalize produced different pixels on identical input")
	}
}
