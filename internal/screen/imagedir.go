// File: internal/screen/imagedir.go
package screen

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/xkilldash9x/deskops/api/schemas"
)

// ImageDirCapturer replays frames from a directory in lexical order, holding
// on the last frame once exhausted. It backs the imagedir backend, used for
// deterministic replay of recorded runs and in tests.
type ImageDirCapturer struct {
	mu     sync.Mutex
	frames []string
	next   int
	last   image.Image
}

// NewImageDirCapturer indexes the PNG/JPEG frames under dir.
func NewImageDirCapturer(dir string) (*ImageDirCapturer, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading frame directory: %w", err)
	}

	var frames []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			frames = append(frames, filepath.Join(dir, e.Name()))
		}
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames found in %s", dir)
	}
	sort.Strings(frames)
	return &ImageDirCapturer{frames: frames}, nil
}

func (c *ImageDirCapturer) Capture(ctx context.Context, region *image.Rectangle) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	img := c.last
	if c.next < len(c.frames) {
		loaded, err := loadImage(c.frames[c.next])
		if err != nil {
			return nil, err
		}
		img = loaded
		c.last = loaded
		c.next++
	}
	if img == nil {
		return nil, fmt.Errorf("no frame available")
	}
	if region != nil {
		return cropImage(img, *region), nil
	}
	return img, nil
}

func (c *ImageDirCapturer) Size(ctx context.Context) (schemas.Dimensions, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	img := c.last
	if img == nil {
		loaded, err := loadImage(c.frames[0])
		if err != nil {
			return schemas.Dimensions{}, err
		}
		img = loaded
		c.last = loaded
	}
	b := img.Bounds()
	return schemas.Dimensions{Width: b.Dx(), Height: b.Dy()}, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening frame %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding frame %s: %w", path, err)
	}
	return img, nil
}

// cropImage copies the region into a fresh image so the result is independent
// of the source frame's lifetime.
func cropImage(img image.Image, region image.Rectangle) image.Image {
	region = region.Intersect(img.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	draw.Draw(out, out.Bounds(), img, region.Min, draw.Src)
	return out
}
