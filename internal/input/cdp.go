// File: internal/input/cdp.go
package input

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	cdpin "github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// CDPExecutor injects pointer and keyboard events into a Chrome DevTools
// Protocol target via Input.dispatchMouseEvent / Input.dispatchKeyEvent.
// Pointer movement follows humanized trajectories from the Planner.
type CDPExecutor struct {
	browserCtx context.Context
	planner    *Planner
	logger     *zap.Logger

	mu   sync.Mutex
	curX float64
	curY float64
}

// NewCDPExecutor wraps an established chromedp context.
func NewCDPExecutor(browserCtx context.Context, planner *Planner, logger *zap.Logger) *CDPExecutor {
	return &CDPExecutor{
		browserCtx: browserCtx,
		planner:    planner,
		logger:     logger.Named("input.cdp"),
	}
}

// run executes CDP commands against the browser context with a bounded
// per-event timeout.
func (e *CDPExecutor) run(actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(e.browserCtx, 10*time.Second)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

func (e *CDPExecutor) position() (float64, float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.curX, e.curY
}

func (e *CDPExecutor) setPosition(x, y float64) {
	e.mu.Lock()
	e.curX, e.curY = x, y
	e.mu.Unlock()
}

// glide walks the planned trajectory to (x, y), dispatching a mouse move per
// path point. buttons carries the held-button bitfield during drags.
func (e *CDPExecutor) glide(ctx context.Context, x, y int, buttons int64) error {
	cx, cy := e.position()
	path := e.planner.Plan(image.Pt(int(cx), int(cy)), image.Pt(x, y))

	for _, pt := range path {
		if err := ctx.Err(); err != nil {
			return err
		}
		if pt.Pause > 0 {
			select {
			case <-time.After(pt.Pause):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		p := cdpin.DispatchMouseEvent(cdpin.MouseMoved, pt.X, pt.Y)
		if buttons > 0 {
			p = p.WithButton(cdpin.Left).WithButtons(buttons)
		}
		if err := e.run(p); err != nil {
			return err
		}
		e.setPosition(pt.X, pt.Y)
	}
	return nil
}

func (e *CDPExecutor) Move(ctx context.Context, x, y int, duration float64) (string, error) {
	if err := e.glide(ctx, x, y, 0); err != nil {
		return "", fmt.Errorf("move failed: %w", err)
	}
	return "moved", nil
}

func cdpButton(button MouseButton) cdpin.MouseButton {
	switch button {
	case ButtonRight:
		return cdpin.Right
	case ButtonMiddle:
		return cdpin.Middle
	default:
		return cdpin.Left
	}
}

func (e *CDPExecutor) Click(ctx context.Context, x, y int, button MouseButton, clicks int, interval float64) (string, error) {
	if clicks < 1 {
		clicks = 1
	}
	if err := e.glide(ctx, x, y, 0); err != nil {
		return "", fmt.Errorf("click move failed: %w", err)
	}

	btn := cdpButton(button)
	fx, fy := float64(x), float64(y)
	for i := 1; i <= clicks; i++ {
		press := cdpin.DispatchMouseEvent(cdpin.MousePressed, fx, fy).
			WithButton(btn).
			WithClickCount(int64(i))
		release := cdpin.DispatchMouseEvent(cdpin.MouseReleased, fx, fy).
			WithButton(btn).
			WithClickCount(int64(i))
		if err := e.run(press, release); err != nil {
			return "", fmt.Errorf("click failed: %w", err)
		}
		if i < clicks && interval > 0 {
			select {
			case <-time.After(secondsToDuration(interval)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "clicked", nil
}

func (e *CDPExecutor) TypeText(ctx context.Context, text string, interval float64) (string, error) {
	pause := secondsToDuration(interval)
	for _, r := range text {
		if err := e.run(chromedp.KeyEvent(string(r))); err != nil {
			return "", fmt.Errorf("type failed: %w", err)
		}
		if pause > 0 {
			select {
			case <-time.After(pause):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "typed", nil
}

// modifierNames maps hotkey modifier aliases to CDP modifier bits.
var modifierNames = map[string]cdpin.Modifier{
	"ctrl":    cdpin.ModifierCtrl,
	"control": cdpin.ModifierCtrl,
	"alt":     cdpin.ModifierAlt,
	"shift":   cdpin.ModifierShift,
	"meta":    cdpin.ModifierMeta,
	"cmd":     cdpin.ModifierMeta,
	"win":     cdpin.ModifierMeta,
	"super":   cdpin.ModifierMeta,
}

func (e *CDPExecutor) Hotkey(ctx context.Context, keys []string) (string, error) {
	if len(keys) == 0 {
		return "", fmt.Errorf("hotkey requires at least one key")
	}

	var mods cdpin.Modifier
	key := keys[len(keys)-1]
	for _, k := range keys[:len(keys)-1] {
		if m, ok := modifierNames[strings.ToLower(k)]; ok {
			mods |= m
		}
	}

	keyDown := cdpin.DispatchKeyEvent(cdpin.KeyDown).WithModifiers(mods).WithKey(key)
	keyUp := cdpin.DispatchKeyEvent(cdpin.KeyUp).WithModifiers(mods).WithKey(key)
	if err := e.run(keyDown, keyUp); err != nil {
		return "", fmt.Errorf("hotkey failed: %w", err)
	}
	return "hotkey pressed", nil
}

func (e *CDPExecutor) Scroll(ctx context.Context, amount int) (string, error) {
	cx, cy := e.position()
	// Positive amounts scroll up; wheel deltas point the other way.
	p := cdpin.DispatchMouseEvent(cdpin.MouseWheel, cx, cy).
		WithDeltaX(0).
		WithDeltaY(float64(-amount))
	if err := e.run(p); err != nil {
		return "", fmt.Errorf("scroll failed: %w", err)
	}
	return "scrolled", nil
}

func (e *CDPExecutor) Drag(ctx context.Context, x, y int, duration float64) (string, error) {
	cx, cy := e.position()
	press := cdpin.DispatchMouseEvent(cdpin.MousePressed, cx, cy).
		WithButton(cdpin.Left).
		WithClickCount(1)
	if err := e.run(press); err != nil {
		return "", fmt.Errorf("drag press failed: %w", err)
	}

	if err := e.glide(ctx, x, y, 1); err != nil {
		return "", fmt.Errorf("drag move failed: %w", err)
	}

	release := cdpin.DispatchMouseEvent(cdpin.MouseReleased, float64(x), float64(y)).
		WithButton(cdpin.Left).
		WithClickCount(1)
	if err := e.run(release); err != nil {
		return "", fmt.Errorf("drag release failed: %w", err)
	}
	return "dragged", nil
}

func (e *CDPExecutor) Wait(ctx context.Context, seconds float64) (string, error) {
	select {
	case <-time.After(secondsToDuration(seconds)):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return fmt.Sprintf("wait %gs", seconds), nil
}

// ShowMarker paints a transient crosshair at the click point by injecting a
// short-lived DOM element. Fire-and-forget: it runs on its own goroutine,
// never blocks the step loop, and swallows failures.
func (e *CDPExecutor) ShowMarker(x, y int, d time.Duration) {
	go func() {
		js := fmt.Sprintf(`(() => {
			const m = document.createElement('div');
			m.style.cssText = 'position:fixed;z-index:2147483647;pointer-events:none;'+
				'width:40px;height:40px;border:2px solid rgba(255,64,64,0.8);border-radius:50%%;'+
				'left:%dpx;top:%dpx;';
			document.body.appendChild(m);
			setTimeout(() => m.remove(), %d);
		})()`, x-20, y-20, d.Milliseconds())
		if err := e.run(chromedp.Evaluate(js, nil)); err != nil {
			e.logger.Debug("Overlay marker injection failed.", zap.Error(err))
		}
	}()
}

func secondsToDuration(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
