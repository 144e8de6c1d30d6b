// File: internal/verify/verify_test.go
package verify

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/deskops/api/schemas"
)

func uniformGray(w, h int, y uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = y
	}
	return img
}

// sequenceCapturer replays fixed frames.
type sequenceCapturer struct {
	frames []image.Image
	calls  int
	size   schemas.Dimensions
}

func (c *sequenceCapturer) Capture(ctx context.Context, region *image.Rectangle) (image.Image, error) {
	i := c.calls
	c.calls++
	if i >= len(c.frames) {
		i = len(c.frames) - 1
	}
	return c.frames[i], nil
}

func (c *sequenceCapturer) Size(ctx context.Context) (schemas.Dimensions, error) {
	return c.size, nil
}

func TestSupports(t *testing.T) {
	assert.True(t, Supports(schemas.ActionClick))
	assert.True(t, Supports(schemas.ActionDoubleClick))
	assert.True(t, Supports(schemas.ActionRightClick))
	assert.True(t, Supports(schemas.ActionType))
	assert.True(t, Supports(schemas.ActionScroll))
	assert.True(t, Supports(schemas.ActionDrag))

	assert.False(t, Supports(schemas.ActionMove))
	assert.False(t, Supports(schemas.ActionWait))
	assert.False(t, Supports(schemas.ActionNone))
	assert.False(t, Supports(schemas.ActionHotkey))
}

func TestThresholdFor(t *testing.T) {
	thresholds := map[string]float64{"click": 0.002, "scroll": 0.006}
	assert.Equal(t, 0.002, ThresholdFor(schemas.ActionClick, thresholds))
	assert.Equal(t, 0.006, ThresholdFor(schemas.ActionScroll, thresholds))
	assert.Equal(t, 0.0, ThresholdFor(schemas.ActionDrag, thresholds))
}

func TestRegionAroundPoint(t *testing.T) {
	scr := schemas.Dimensions{Width: 1280, Height: 720}
	pt := image.Pt(640, 360)

	rect := Region(&pt, 200, 100, scr)
	assert.Equal(t, image.Rect(540, 310, 740, 410), rect)
}

func TestRegionDefaultsToScreenCenter(t *testing.T) {
	scr := schemas.Dimensions{Width: 1000, Height: 800}

	rect := Region(nil, 200, 100, scr)
	assert.Equal(t, image.Rect(400, 350, 600, 450), rect)
}

func TestRegionClampedAtEdges(t *testing.T) {
	scr := schemas.Dimensions{Width: 1280, Height: 720}
	pt := image.Pt(5, 5)

	rect := Region(&pt, 200, 100, scr)
	assert.Equal(t, image.Rect(0, 0, 105, 55), rect)
}

func TestRegionDegeneratePointYieldsOnePixel(t *testing.T) {
	scr := schemas.Dimensions{Width: 1280, Height: 720}
	pt := image.Pt(2000, -50)

	rect := Region(&pt, 100, 100, scr)
	assert.Equal(t, 1, rect.Dx())
	assert.Equal(t, 1, rect.Dy())
	assert.True(t, rect.In(image.Rect(0, 0, scr.Width, scr.Height)))
}

func TestDeltaIdenticalFramesIsZero(t *testing.T) {
	a := uniformGray(40, 40, 100)
	b := uniformGray(40, 40, 100)
	assert.Equal(t, 0.0, Delta(a, b))
}

func TestDeltaUniformShift(t *testing.T) {
	a := uniformGray(40, 40, 100)
	b := uniformGray(40, 40, 151)
	assert.InDelta(t, 0.2, Delta(a, b), 1e-9)
}

func TestDeltaMismatchedSizesResizes(t *testing.T) {
	a := uniformGray(40, 40, 100)
	b := uniformGray(20, 20, 100)
	assert.Equal(t, 0.0, Delta(a, b))
}

func TestDeltaNonGrayInput(t *testing.T) {
	a := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			a.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	b := uniformGray(10, 10, 255)
	assert.Equal(t, 0.0, Delta(a, b))
}

func TestRunScoresChangeAgainstThreshold(t *testing.T) {
	before := uniformGray(20, 20, 50)
	after := uniformGray(20, 20, 200)
	cap := &sequenceCapturer{frames: []image.Image{after}}
	rect := image.Rect(0, 0, 20, 20)

	res, got, err := Run(context.Background(), cap, rect, before, 0, 0.01)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Greater(t, res.Delta, 0.5)
	assert.Equal(t, rect, res.Region)
	assert.Same(t, image.Image(after), got)
}

func TestRunBelowThresholdFails(t *testing.T) {
	frame := uniformGray(20, 20, 50)
	cap := &sequenceCapturer{frames: []image.Image{frame}}
	rect := image.Rect(0, 0, 20, 20)

	res, _, err := Run(context.Background(), cap, rect, frame, 0, 0.01)
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Equal(t, 0.0, res.Delta)
}

func TestRunHonorsCancellationDuringSettle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	frame := uniformGray(4, 4, 0)
	cap := &sequenceCapturer{frames: []image.Image{frame}}

	_, _, err := Run(ctx, cap, image.Rect(0, 0, 4, 4), frame, time.Second, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResultTrace(t *testing.T) {
	res := Result{Region: image.Rect(10, 20, 110, 80), Delta: 0.125, Passed: true}

	want := &schemas.VerifyTrace{
		Delta:  0.125,
		Pass:   true,
		Region: []int{10, 20, 100, 60},
	}
	if diff := cmp.Diff(want, res.Trace()); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}
