// File: internal/uia/uia.go
//
// Accessibility-driven element actions. The backend is an accessibility
// snapshot serialized as XML (one <window> per top-level window, nested
// <element> nodes with name/control_type/automation_id/rect attributes).
// There is no native invoke path through a snapshot, so both operations fall
// back to synthesized pointer and keyboard input at the element's center.
package uia

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/xkilldash9x/deskops/api/schemas"
	"github.com/xkilldash9x/deskops/internal/input"
)

// Scope bounds an element search.
type Scope string

const (
	ScopeActiveWindow Scope = "active_window"
	ScopeDesktop      Scope = "desktop"
)

// find returns at most this many matches; a selector loose enough to exceed
// it is not going to identify a single control anyway.
const maxMatches = 30

// Selector names the element to act on. Empty fields are wildcards; a fully
// empty selector matches nothing.
type Selector struct {
	Name         string
	ControlType  string
	AutomationID string
}

// SelectorFromArgs reads the selector keys from a command's args.
func SelectorFromArgs(cmd schemas.Command) Selector {
	return Selector{
		Name:         cmd.StringArg("name", ""),
		ControlType:  cmd.StringArg("control_type", ""),
		AutomationID: cmd.StringArg("automation_id", ""),
	}
}

// ScopeFromArgs reads the search scope, defaulting to the active window.
func ScopeFromArgs(cmd schemas.Command) Scope {
	if cmd.StringArg("scope", "") == string(ScopeDesktop) {
		return ScopeDesktop
	}
	return ScopeActiveWindow
}

func (s Selector) empty() bool {
	return s.Name == "" && s.ControlType == "" && s.AutomationID == ""
}

// matches applies the selector fields: name is a case-insensitive substring,
// control type a case-insensitive equality, automation id exact.
func (s Selector) matches(e Element) bool {
	if s.Name != "" && !strings.Contains(strings.ToLower(e.Name), strings.ToLower(s.Name)) {
		return false
	}
	if s.ControlType != "" && !strings.EqualFold(s.ControlType, e.ControlType) {
		return false
	}
	if s.AutomationID != "" && s.AutomationID != e.AutomationID {
		return false
	}
	return true
}

// Element is one accessibility node with its on-screen bounds.
type Element struct {
	Name         string
	ControlType  string
	AutomationID string
	Rect         image.Rectangle
}

// Center is the pointer target for fallback interaction.
func (e Element) Center() image.Point {
	return image.Pt((e.Rect.Min.X+e.Rect.Max.X)/2, (e.Rect.Min.Y+e.Rect.Max.Y)/2)
}

// SnapshotSource produces the current accessibility tree for a scope.
type SnapshotSource interface {
	Snapshot(ctx context.Context, scope Scope) (*etree.Document, error)
}

// Automator resolves selectors against snapshots and acts on matches through
// the input executor.
type Automator struct {
	source SnapshotSource
	exec   input.Executor
	logger *zap.Logger
}

// NewAutomator wires a snapshot source to an executor. source may be nil when
// no accessibility backend is configured; operations then report failure in
// their observation.
func NewAutomator(source SnapshotSource, exec input.Executor, logger *zap.Logger) *Automator {
	return &Automator{source: source, exec: exec, logger: logger.Named("uia")}
}

// Find returns the elements matching sel within scope, capped at maxMatches.
func (a *Automator) Find(ctx context.Context, sel Selector, scope Scope) ([]Element, error) {
	if a.source == nil {
		return nil, fmt.Errorf("no accessibility snapshot source configured")
	}
	if sel.empty() {
		return nil, nil
	}

	doc, err := a.source.Snapshot(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("reading accessibility snapshot: %w", err)
	}

	var out []Element
	for _, win := range doc.FindElements("//window") {
		if scope == ScopeActiveWindow && win.SelectAttrValue("active", "") != "true" {
			continue
		}
		for _, node := range win.FindElements(".//element") {
			el, ok := elementFromNode(node)
			if !ok {
				a.logger.Debug("Skipping element with malformed rect.",
					zap.String("name", el.Name),
					zap.String("rect", node.SelectAttrValue("rect", "")))
				continue
			}
			if !sel.matches(el) {
				continue
			}
			out = append(out, el)
			if len(out) >= maxMatches {
				return out, nil
			}
		}
	}
	return out, nil
}

// Invoke activates the first matching element by clicking its center. The
// outcome is an observation string; execution problems are reported there,
// not as an error, so the step loop records them and moves on.
func (a *Automator) Invoke(ctx context.Context, sel Selector, scope Scope) (string, error) {
	matches, err := a.Find(ctx, sel, scope)
	if err != nil {
		a.logger.Warn("Element lookup failed.", zap.Error(err))
		return fmt.Sprintf("UIA_INVOKE: failed (%v)", err), nil
	}
	if len(matches) == 0 {
		return "UIA_INVOKE: no matches", nil
	}

	target := matches[0]
	c := target.Center()
	if _, err := a.exec.Click(ctx, c.X, c.Y, input.ButtonLeft, 1, 0); err != nil {
		a.logger.Warn("Invoke fallback click failed.",
			zap.String("name", target.Name), zap.Error(err))
		return "UIA_INVOKE: failed", nil
	}
	a.logger.Debug("Invoked element.",
		zap.String("name", target.Name),
		zap.String("control_type", target.ControlType),
		zap.Int("matches", len(matches)))
	return "UIA_INVOKE: ok", nil
}

// SetValue writes value into the first matching element: focus it with a
// click, then type the value.
func (a *Automator) SetValue(ctx context.Context, sel Selector, scope Scope, value string) (string, error) {
	matches, err := a.Find(ctx, sel, scope)
	if err != nil {
		a.logger.Warn("Element lookup failed.", zap.Error(err))
		return fmt.Sprintf("UIA_SET_VALUE: failed (%v)", err), nil
	}
	if len(matches) == 0 {
		return "UIA_SET_VALUE: no matches", nil
	}

	target := matches[0]
	c := target.Center()
	if _, err := a.exec.Click(ctx, c.X, c.Y, input.ButtonLeft, 1, 0); err != nil {
		return "UIA_SET_VALUE: failed", nil
	}
	if _, err := a.exec.TypeText(ctx, value, 0); err != nil {
		return "UIA_SET_VALUE: failed", nil
	}
	return "UIA_SET_VALUE: ok", nil
}

// elementFromNode decodes one snapshot node. ok is false when the rect
// attribute is missing or malformed; such an element has no trustworthy
// on-screen position, so acting on it would click an arbitrary point.
func elementFromNode(node *etree.Element) (Element, bool) {
	rect, ok := parseRect(node.SelectAttrValue("rect", ""))
	return Element{
		Name:         node.SelectAttrValue("name", ""),
		ControlType:  node.SelectAttrValue("control_type", ""),
		AutomationID: node.SelectAttrValue("automation_id", ""),
		Rect:         rect,
	}, ok
}

// parseRect decodes an "x,y,w,h" attribute.
func parseRect(s string) (image.Rectangle, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, false
	}
	vals := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, false
		}
		vals[i] = n
	}
	return image.Rect(vals[0], vals[1], vals[0]+vals[2], vals[1]+vals[3]), true
}
