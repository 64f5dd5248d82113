package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"
)

func encodeTestImage(t *testing.T, format string) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 6), G: uint8(y * 8), B: 120, A: 255})
		}
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "jpeg":
		err = jpeg.Encode(&buf, img, nil)
	case "bmp":
		err = bmp.Encode(&buf, img)
	default:
		t.Fatalf("unknown format %q", format)
	}
	if err != nil {
		t.Fatalf("encoding %s: %v", format, err)
	}
	return buf.Bytes()
}

func TestDecode_SupportedFormats(t *testing.T) {
	for _, format := range []string{"png", "jpeg", "bmp"} {
		data := encodeTestImage(t, format)

		img, got, err := Decode(data)
		if err != nil {
			t.Errorf("Decode(%s) failed: %v", format, err)
			continue
		}
		if got != format {
			t.Errorf("Decode(%s) reported format %q", format, got)
		}
		if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
			t.Errorf("Decode(%s) bounds = %v, want 40x30", format, img.Bounds())
		}
	}
}

func TestDecode_GarbageBytes(t *testing.T) {
	_, _, err := Decode([]byte("this is not an image at all"))
	if err == nil {
		t.Fatal("Decode accepted garbage bytes")
	}
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("error %v does not wrap ErrInvalidImage", err)
	}
}

func TestDecode_EmptyInput(t *testing.T) {
	_, _, err := Decode(nil)
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("error %v does not wrap ErrInvalidImage", err)
	}
}

func TestDecode_TruncatedPNG(t *testing.T) {
	data := encodeTestImage(t, "png")
	_, _, err := Decode(data[:20])
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("error %v does not wrap ErrInvalidImage", err)
	}
}
