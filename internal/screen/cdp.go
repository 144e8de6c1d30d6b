// File: internal/screen/cdp.go
package screen

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/deskops/api/schemas"
)

// CDPCapturer grabs frames from a Chrome DevTools Protocol target. The
// chromedp context is owned by the backend session; this type only issues
// capture commands against it.
type CDPCapturer struct {
	browserCtx context.Context
	viewport   schemas.Dimensions
}

// NewCDPCapturer wraps an established chromedp context. viewport is the
// emulated screen size; it is authoritative for coordinate resolution.
func NewCDPCapturer(browserCtx context.Context, viewport schemas.Dimensions) *CDPCapturer {
	return &CDPCapturer{browserCtx: browserCtx, viewport: viewport}
}

func (c *CDPCapturer) Capture(ctx context.Context, region *image.Rectangle) (image.Image, error) {
	var buf []byte
	if err := chromedp.Run(c.browserCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("capturing CDP screenshot: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("decoding CDP screenshot: %w", err)
	}
	if region != nil {
		return cropImage(img, *region), nil
	}
	return img, nil
}

func (c *CDPCapturer) Size(ctx context.Context) (schemas.Dimensions, error) {
	return c.viewport, nil
}
