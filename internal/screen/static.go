// File: internal/screen/static.go
package screen

import (
	"context"
	"image"
	"image/color"

	"github.com/xkilldash9x/deskops/api/schemas"
)

// StaticCapturer serves uniform frames of a fixed size. It backs the dry-run
// backend, where no real screen exists but the loop still needs frames to
// encode and verify against.
type StaticCapturer struct {
	size schemas.Dimensions
	fill color.Color
}

// NewStaticCapturer builds a capturer producing size-sized frames filled with
// fill.
func NewStaticCapturer(size schemas.Dimensions, fill color.Color) *StaticCapturer {
	if fill == nil {
		fill = color.Gray{Y: 0x20}
	}
	return &StaticCapturer{size: size, fill: fill}
}

func (c *StaticCapturer) Capture(ctx context.Context, region *image.Rectangle) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame := image.NewRGBA(image.Rect(0, 0, c.size.Width, c.size.Height))
	r, g, b, a := c.fill.RGBA()
	px := []uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
	for i := 0; i < len(frame.Pix); i += 4 {
		copy(frame.Pix[i:i+4], px)
	}

	if region != nil {
		return cropImage(frame, *region), nil
	}
	return frame, nil
}

func (c *StaticCapturer) Size(ctx context.Context) (schemas.Dimensions, error) {
	return c.size, nil
}
