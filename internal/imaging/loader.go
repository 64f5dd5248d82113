package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder

	_ "golang.org/x/image/bmp" // Register BMP format decoder
)

// ErrInvalidImage marks input that cannot enter the pipeline: bytes that no
// registered decoder accepts, or a decoded image with zero area.
//
// It is the only fatal error class the pipeline surfaces to callers; every
// other detector-side problem degrades to an empty candidate list instead.
var ErrInvalidImage = errors.New("invalid image")

// Decode turns raw upload bytes into an image.
//
// Supported encodings are PNG, JPEG, GIF and BMP. The returned format is the
// decoder's registered name ("png", "jpeg", "gif", "bmp").
//
// Returns an error wrapping ErrInvalidImage if decoding fails or the image
// has zero area. Valid-but-degenerate images (solid color, extreme aspect
// ratios) decode normally; rejecting those is not this layer's job.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, "", fmt.Errorf("%w: zero-area %s image", ErrInvalidImage, format)
	}

	return img, format, nil
}
