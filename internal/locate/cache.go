// File: internal/locate/cache.go
package locate

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"image"
	"sync"
)

// Cache memoizes locator results per (frame, query, region). Repeated
// CLICK_TEXT probes against an unchanged screen are common when a model
// narrows a target, and vision-backed lookups are expensive.
type Cache struct {
	inner Locator

	mu      sync.Mutex
	entries map[string][]Match
}

// NewCache wraps inner with a result cache.
func NewCache(inner Locator) *Cache {
	return &Cache{inner: inner, entries: make(map[string][]Match)}
}

func (c *Cache) Locate(ctx context.Context, query string, frame image.Image, region *image.Rectangle) ([]Match, error) {
	key := cacheKey(query, frame, region)

	c.mu.Lock()
	cached, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		out := make([]Match, len(cached))
		copy(out, cached)
		return out, nil
	}

	matches, err := c.inner.Locate(ctx, query, frame, region)
	if err != nil {
		return nil, err
	}

	stored := make([]Match, len(matches))
	copy(stored, matches)
	c.mu.Lock()
	c.entries[key] = stored
	c.mu.Unlock()
	return matches, nil
}

// cacheKey hashes the frame pixels together with the query and region.
func cacheKey(query string, frame image.Image, region *image.Rectangle) string {
	h := sha1.New()
	fmt.Fprintf(h, "q=%s;", query)
	if region != nil {
		fmt.Fprintf(h, "r=%d,%d,%d,%d;", region.Min.X, region.Min.Y, region.Max.X, region.Max.Y)
	}
	hashImage(h, frame)
	return hex.EncodeToString(h.Sum(nil))
}

func hashImage(h interface{ Write([]byte) (int, error) }, frame image.Image) {
	if frame == nil {
		return
	}
	b := frame.Bounds()
	fmt.Fprintf(h, "b=%d,%d,%d,%d;", b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)

	switch img := frame.(type) {
	case *image.RGBA:
		h.Write(img.Pix)
	case *image.NRGBA:
		h.Write(img.Pix)
	case *image.Gray:
		h.Write(img.Pix)
	default:
		// Arbitrary formats: sample a pixel grid rather than converting the
		// whole frame.
		for y := b.Min.Y; y < b.Max.Y; y += 16 {
			for x := b.Min.X; x < b.Max.X; x += 16 {
				r, g, bl, a := frame.At(x, y).RGBA()
				h.Write([]byte{byte(r >> 8), byte(g >> 8), byte(bl >> 8), byte(a >> 8)})
			}
		}
	}
}
