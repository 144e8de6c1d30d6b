// File: internal/screen/capturer_test.go
package screen

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/deskops/api/schemas"
)

func solidFrame(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func decodeDataURL(t *testing.T, dataURL string) image.Image {
	t.Helper()
	const prefix = "data:image/jpeg;base64,"
	require.True(t, strings.HasPrefix(dataURL, prefix))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, prefix))
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func TestEncodeJPEGKeepsSmallFrames(t *testing.T) {
	frame := solidFrame(640, 480, color.White)

	dataURL, encoded, err := EncodeJPEG(frame, 1280, 70)
	require.NoError(t, err)

	assert.Equal(t, 640, encoded.Bounds().Dx())
	assert.Equal(t, 480, encoded.Bounds().Dy())

	decoded := decodeDataURL(t, dataURL)
	assert.Equal(t, encoded.Bounds(), decoded.Bounds())
}

func TestEncodeJPEGDownscalesWideFrames(t *testing.T) {
	frame := solidFrame(2560, 1440, color.White)

	_, encoded, err := EncodeJPEG(frame, 1280, 70)
	require.NoError(t, err)

	assert.Equal(t, 1280, encoded.Bounds().Dx())
	assert.Equal(t, 720, encoded.Bounds().Dy())
}

func TestEncodeJPEGZeroMaxWidthMeansNoScaling(t *testing.T) {
	frame := solidFrame(2000, 100, color.White)

	_, encoded, err := EncodeJPEG(frame, 0, 70)
	require.NoError(t, err)
	assert.Equal(t, 2000, encoded.Bounds().Dx())
}

func TestCaptureAndEncode(t *testing.T) {
	cap := NewStaticCapturer(schemas.Dimensions{Width: 2560, Height: 1440}, color.White)

	dataURL, encoded, err := CaptureAndEncode(context.Background(), cap, 1280, 70)
	require.NoError(t, err)
	assert.Equal(t, 1280, encoded.Bounds().Dx())

	decoded := decodeDataURL(t, dataURL)
	assert.Equal(t, encoded.Bounds(), decoded.Bounds())
}

func TestCaptureAndEncodePropagatesCaptureFailure(t *testing.T) {
	cap := NewStaticCapturer(schemas.Dimensions{Width: 10, Height: 10}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := CaptureAndEncode(ctx, cap, 1280, 70)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSaveStepImage(t *testing.T) {
	dir := t.TempDir()
	frame := solidFrame(8, 8, color.Black)

	path, err := SaveStepImage(dir, 3, frame)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "step_0003_"))
	assert.True(t, strings.HasSuffix(path, ".png"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, frame.Bounds(), img.Bounds())
}

func TestStaticCapturer(t *testing.T) {
	cap := NewStaticCapturer(schemas.Dimensions{Width: 100, Height: 50}, color.White)

	dims, err := cap.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schemas.Dimensions{Width: 100, Height: 50}, dims)

	frame, err := cap.Capture(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 50), frame.Bounds())

	region := image.Rect(10, 10, 30, 20)
	crop, err := cap.Capture(context.Background(), &region)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 10), crop.Bounds())
}

func TestStaticCapturerHonorsCancellation(t *testing.T) {
	cap := NewStaticCapturer(schemas.Dimensions{Width: 10, Height: 10}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cap.Capture(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func writeFramePNG(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, solidFrame(w, h, color.White)))
}

func TestImageDirCapturerReplaysInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFramePNG(t, dir, "frame_002.png", 20, 10)
	writeFramePNG(t, dir, "frame_001.png", 10, 10)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	cap, err := NewImageDirCapturer(dir)
	require.NoError(t, err)

	first, err := cap.Capture(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 10, first.Bounds().Dx())

	second, err := cap.Capture(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 20, second.Bounds().Dx())

	// Exhausted: the last frame repeats.
	third, err := cap.Capture(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 20, third.Bounds().Dx())
}

func TestImageDirCapturerSizeWithoutCapture(t *testing.T) {
	dir := t.TempDir()
	writeFramePNG(t, dir, "only.png", 32, 16)

	cap, err := NewImageDirCapturer(dir)
	require.NoError(t, err)

	dims, err := cap.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schemas.Dimensions{Width: 32, Height: 16}, dims)
}

func TestImageDirCapturerRejectsEmptyDir(t *testing.T) {
	_, err := NewImageDirCapturer(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no frames")
}

func TestImageDirCapturerRegionCrop(t *testing.T) {
	dir := t.TempDir()
	writeFramePNG(t, dir, "frame.png", 40, 40)

	cap, err := NewImageDirCapturer(dir)
	require.NoError(t, err)

	region := image.Rect(5, 5, 15, 25)
	crop, err := cap.Capture(context.Background(), &region)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 20), crop.Bounds())
}
