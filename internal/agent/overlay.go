// File: internal/agent/overlay.go
package agent

import "time"

// Overlay paints a transient marker where a click landed. Implementations
// must be fire-and-forget: never block the step loop, never fail loudly.
type Overlay interface {
	ShowMarker(x, y int, d time.Duration)
}

// NopOverlay is the default when no marker surface exists.
type NopOverlay struct{}

func (NopOverlay) ShowMarker(x, y int, d time.Duration) {}
