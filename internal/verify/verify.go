// File: internal/verify/verify.go
//
// Visual verification: a cheap, local signal that a dispatched action changed
// the screen, without understanding screen semantics. It is advisory only; a
// failed verification is recorded in the step meta but never aborts the run.
package verify

import (
	"context"
	"image"
	"image/draw"
	"strings"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/xkilldash9x/deskops/api/schemas"
	"github.com/xkilldash9x/deskops/internal/screen"
)

// Result is the outcome of one before/after comparison. Ephemeral: it is
// serialized into a step's meta and never persisted on its own.
type Result struct {
	Region image.Rectangle
	// Delta is the mean absolute pixel difference, normalized to [0, 1].
	Delta  float64
	Passed bool
}

// Trace converts the result to its journal wire form.
func (r Result) Trace() *schemas.VerifyTrace {
	return &schemas.VerifyTrace{
		Delta: r.Delta,
		Pass:  r.Passed,
		Region: []int{
			r.Region.Min.X, r.Region.Min.Y,
			r.Region.Dx(), r.Region.Dy(),
		},
	}
}

// Supports reports whether an action kind has a meaningful visual signature.
// Pure moves and waits are excluded: neither is expected to disturb pixels.
func Supports(action schemas.Action) bool {
	switch action {
	case schemas.ActionClick, schemas.ActionDoubleClick, schemas.ActionRightClick,
		schemas.ActionType, schemas.ActionScroll, schemas.ActionDrag:
		return true
	}
	return false
}

// ThresholdFor looks up the minimum delta that counts as a visible change for
// the action. Thresholds differ per kind because the expected disturbance
// differs: a scroll repaints far more pixels than a caret appearing.
func ThresholdFor(action schemas.Action, thresholds map[string]float64) float64 {
	return thresholds[strings.ToLower(string(action))]
}

// Region derives the sampling rectangle for an action: a w×h box around the
// action point, or a centered box of the same size when the action has no
// point (typing, scrolling). Always clamped to the screen and never empty.
func Region(center *image.Point, w, h int, scr schemas.Dimensions) image.Rectangle {
	cx, cy := scr.Width/2, scr.Height/2
	if center != nil {
		cx, cy = center.X, center.Y
	}

	rect := image.Rect(cx-w/2, cy-h/2, cx+w/2, cy+h/2)
	rect = rect.Intersect(image.Rect(0, 0, scr.Width, scr.Height))
	if rect.Dx() < 1 || rect.Dy() < 1 {
		// Degenerate placement (e.g. a corner point): fall back to a single
		// in-bounds pixel so the recapture is still well-formed.
		px := clampInt(cx, 0, scr.Width-1)
		py := clampInt(cy, 0, scr.Height-1)
		rect = image.Rect(px, py, px+1, py+1)
	}
	return rect
}

// Run waits the settle interval, recaptures rect, and scores the change
// against threshold. The before image is the same region captured prior to
// dispatch. Returns the result and the after image.
func Run(ctx context.Context, cap screen.Capturer, rect image.Rectangle, before image.Image, settle time.Duration, threshold float64) (Result, image.Image, error) {
	if settle > 0 {
		select {
		case <-time.After(settle):
		case <-ctx.Done():
			return Result{}, nil, ctx.Err()
		}
	}

	after, err := cap.Capture(ctx, &rect)
	if err != nil {
		return Result{}, nil, err
	}

	delta := Delta(before, after)
	return Result{
		Region: rect,
		Delta:  delta,
		Passed: delta >= threshold,
	}, after, nil
}

// Delta computes the mean absolute grayscale difference between two frames,
// normalized to [0, 1]. Mismatched sizes are reconciled by resizing the
// after frame onto the before frame's bounds; a resize-induced zero is a
// legitimate score, never an error.
func Delta(before, after image.Image) float64 {
	a := toGray(before)
	b := toGray(after)

	if !a.Bounds().Eq(b.Bounds()) {
		resized := image.NewGray(a.Bounds())
		xdraw.NearestNeighbor.Scale(resized, resized.Bounds(), b, b.Bounds(), xdraw.Src, nil)
		b = resized
	}

	bounds := a.Bounds()
	total := 0
	count := bounds.Dx() * bounds.Dy()
	if count == 0 {
		return 0
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		rowA := a.Pix[(y-bounds.Min.Y)*a.Stride:]
		rowB := b.Pix[(y-bounds.Min.Y)*b.Stride:]
		for x := 0; x < bounds.Dx(); x++ {
			d := int(rowA[x]) - int(rowB[x])
			if d < 0 {
				d = -d
			}
			total += d
		}
	}
	return float64(total) / float64(count) / 255.0
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == image.Pt(0, 0) {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
