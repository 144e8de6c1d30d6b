// File: internal/input/executor.go
//
// The action executor contract: one operation per action kind, each returning
// a short human-readable observation string. Execution failures are part of
// the observation, not a control-flow signal; the orchestrator records
// whatever comes back and moves on.
package input

import "context"

// MouseButton names a pointer button in executor calls.
type MouseButton string

const (
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

// Executor injects pointer and keyboard events into a target surface.
type Executor interface {
	// Move glides the pointer to (x, y) over duration seconds.
	Move(ctx context.Context, x, y int, duration float64) (string, error)
	// Click presses button at (x, y) clicks times with interval seconds
	// between presses.
	Click(ctx context.Context, x, y int, button MouseButton, clicks int, interval float64) (string, error)
	// TypeText types text with interval seconds between keystrokes.
	TypeText(ctx context.Context, text string, interval float64) (string, error)
	// Hotkey chords the named keys (modifiers first).
	Hotkey(ctx context.Context, keys []string) (string, error)
	// Scroll turns the wheel; positive amounts scroll up.
	Scroll(ctx context.Context, amount int) (string, error)
	// Drag holds the left button down from the current position to (x, y)
	// over duration seconds.
	Drag(ctx context.Context, x, y int, duration float64) (string, error)
	// Wait idles for the given number of seconds.
	Wait(ctx context.Context, seconds float64) (string, error)
}
