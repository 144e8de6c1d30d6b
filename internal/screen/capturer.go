// File: internal/screen/capturer.go
package screen

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/xkilldash9x/deskops/api/schemas"
)

// Capturer is the narrow screen-capture contract. Implementations exist for a
// CDP browser target and for a directory of pre-rendered frames (replay and
// tests); both are swappable without the engine noticing.
type Capturer interface {
	// Capture grabs the current frame, optionally cropped to region.
	Capture(ctx context.Context, region *image.Rectangle) (image.Image, error)
	// Size reports the true screen dimensions in pixels. Coordinate
	// resolution scales against these, never against the encoded frame.
	Size(ctx context.Context) (schemas.Dimensions, error)
}

// EncodeJPEG renders img as a data:image/jpeg;base64 URL, downscaling only
// when the frame is wider than maxWidth. The returned image is the possibly
// downscaled frame actually encoded, so callers know what the model saw.
func EncodeJPEG(img image.Image, maxWidth, quality int) (string, image.Image, error) {
	bounds := img.Bounds()
	if maxWidth > 0 && bounds.Dx() > maxWidth {
		h := int(float64(bounds.Dy()) * (float64(maxWidth) / float64(bounds.Dx())))
		if h < 1 {
			h = 1
		}
		scaled := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, xdraw.Over, nil)
		img = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", nil, fmt.Errorf("encoding frame as JPEG: %w", err)
	}
	b64 := base64.StdEncoding.EncodeToString(buf.Bytes())
	return "data:image/jpeg;base64," + b64, img, nil
}

// CaptureAndEncode grabs a full frame and encodes it for the model.
func CaptureAndEncode(ctx context.Context, c Capturer, maxWidth, quality int) (string, image.Image, error) {
	img, err := c.Capture(ctx, nil)
	if err != nil {
		return "", nil, err
	}
	return EncodeJPEG(img, maxWidth, quality)
}

// SaveStepImage persists one step's frame as step_NNNN_<UTC timestamp>.png
// under dir and returns the written path.
func SaveStepImage(dir string, stepIndex int, img image.Image) (string, error) {
	ts := time.Now().UTC().Format("20060102T150405")
	path := filepath.Join(dir, fmt.Sprintf("step_%04d_%s.png", stepIndex, ts))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating step image: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("encoding step image: %w", err)
	}
	return path, nil
}
