package schemas

// -- Action Schemas --

// Action identifies one of the operator actions the model may request.
type Action string

const (
	ActionMove        Action = "MOVE"
	ActionClick       Action = "CLICK"
	ActionDoubleClick Action = "DOUBLE_CLICK"
	ActionRightClick  Action = "RIGHT_CLICK"
	ActionType        Action = "TYPE"
	ActionHotkey      Action = "HOTKEY"
	ActionScroll      Action = "SCROLL"
	ActionDrag        Action = "DRAG"
	ActionWait        Action = "WAIT"
	ActionNone        Action = "NONE"

	// Gated actions. Only valid when the matching capability gate is open.
	ActionClickText   Action = "CLICK_TEXT"
	ActionUIAInvoke   Action = "UIA_INVOKE"
	ActionUIASetValue Action = "UIA_SET_VALUE"

	// ActionLegacyDone is the retired completion sentinel. It is recognized
	// only so the validator can reject it; completion is expressed as
	// {next_action: NONE, done: true}.
	ActionLegacyDone Action = "DONE"
)

// coreActions are always permitted.
var coreActions = map[Action]struct{}{
	ActionMove:        {},
	ActionClick:       {},
	ActionDoubleClick: {},
	ActionRightClick:  {},
	ActionType:        {},
	ActionHotkey:      {},
	ActionScroll:      {},
	ActionDrag:        {},
	ActionWait:        {},
	ActionNone:        {},
}

// gatedActions require a capability gate.
var gatedActions = map[Action]struct{}{
	ActionClickText:   {},
	ActionUIAInvoke:   {},
	ActionUIASetValue: {},
}

// Known reports whether a is any recognized action, gated or not.
// The legacy sentinel is not a known action.
func (a Action) Known() bool {
	if _, ok := coreActions[a]; ok {
		return true
	}
	_, ok := gatedActions[a]
	return ok
}

// Gated reports whether a requires a capability gate to execute.
func (a Action) Gated() bool {
	_, ok := gatedActions[a]
	return ok
}

// Pointer reports whether a targets a screen coordinate and therefore
// requires a resolvable position.
func (a Action) Pointer() bool {
	switch a {
	case ActionMove, ActionClick, ActionDoubleClick, ActionRightClick, ActionDrag:
		return true
	}
	return false
}

// ClickLike reports whether a presses a mouse button at a point. Used to
// decide overlay markers and verification regions.
func (a Action) ClickLike() bool {
	switch a {
	case ActionClick, ActionDoubleClick, ActionRightClick:
		return true
	}
	return false
}

// -- Command Schema --

// Command is the validated form of one model response. After validation,
// NextAction is a member of the recognized action set and Args is never nil.
type Command struct {
	Plan       string         `json:"plan"`
	Say        string         `json:"say,omitempty"`
	NextAction Action         `json:"next_action"`
	Args       map[string]any `json:"args"`
	Done       bool           `json:"done"`
}

// NoOp returns a synthetic no-op Command carrying a diagnostic message. The
// orchestrator records one of these whenever a model response fails
// validation, so the run keeps producing step records instead of crashing.
func NoOp(plan, say string) Command {
	return Command{
		Plan:       plan,
		Say:        say,
		NextAction: ActionNone,
		Args:       map[string]any{},
		Done:       false,
	}
}
