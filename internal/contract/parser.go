// File: internal/contract/parser.go
package contract

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/deskops/api/schemas"
	"github.com/xkilldash9x/deskops/internal/coords"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Gates are the capability flags controlling the optionally-gated actions.
type Gates struct {
	// OCR opens CLICK_TEXT.
	OCR bool
	// UIA opens UIA_INVOKE and UIA_SET_VALUE.
	UIA bool
}

// Parse cleans raw model text and validates it against the action contract.
// It is a pure function of its inputs. On success the returned Command has a
// recognized NextAction and a non-nil Args map; on failure the error is a
// ContractError and the caller is expected to degrade to a no-op step.
//
// The contract rules run in a fixed order, first violation wins: the legacy
// completion sentinel is rejected, done:true requires NONE, the action must
// be recognized, gated actions need their gate open, and pointer actions must
// carry a coordinate shape the normalizer understands.
func Parse(raw string, gates Gates) (schemas.Command, error) {
	text := Clean(raw)

	var payload map[string]any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return schemas.Command{}, errOf(KindMalformedResponse, "invalid JSON from model: %v", err)
	}

	actRaw, ok := payload["next_action"]
	if !ok {
		return schemas.Command{}, errOf(KindMissingField, "missing required field %q", "next_action")
	}
	doneRaw, ok := payload["done"]
	if !ok {
		return schemas.Command{}, errOf(KindMissingField, "missing required field %q", "done")
	}

	actStr, ok := actRaw.(string)
	if !ok {
		return schemas.Command{}, errOf(KindMalformedResponse, "next_action must be a string, got %T", actRaw)
	}
	done, ok := doneRaw.(bool)
	if !ok {
		return schemas.Command{}, errOf(KindMalformedResponse, "done must be a boolean, got %T", doneRaw)
	}

	args := map[string]any{}
	if rawArgs, present := payload["args"]; present && rawArgs != nil {
		m, ok := rawArgs.(map[string]any)
		if !ok {
			return schemas.Command{}, errOf(KindInvalidArgsType, "args must be an object, got %T", rawArgs)
		}
		args = m
	}

	cmd := schemas.Command{
		Plan:       coerceString(payload["plan"]),
		Say:        coerceString(payload["say"]),
		NextAction: schemas.Action(actStr),
		Args:       args,
		Done:       done,
	}

	// Rule 1: the retired completion sentinel is never accepted; completion
	// is expressed as {next_action: NONE, done: true}.
	if cmd.NextAction == schemas.ActionLegacyDone {
		return schemas.Command{}, errOf(KindLegacyActionRejected,
			"action %q is retired; finish with next_action %q and done:true",
			schemas.ActionLegacyDone, schemas.ActionNone)
	}

	// Rule 2: a done flag requires the no-op action.
	if cmd.Done && cmd.NextAction != schemas.ActionNone {
		return schemas.Command{}, errOf(KindInconsistentDoneState,
			"when done:true, next_action must be %q, got %q", schemas.ActionNone, cmd.NextAction)
	}

	// Rule 3: membership in the recognized action set.
	if !cmd.NextAction.Known() {
		return schemas.Command{}, errOf(KindUnknownAction, "invalid next_action: %q", cmd.NextAction)
	}

	// Rule 4: gated actions need their capability flag.
	if cmd.NextAction.Gated() {
		if err := checkGate(cmd.NextAction, gates); err != nil {
			return schemas.Command{}, err
		}
	}

	// Rule 5: pointer actions must carry a coordinate shape.
	if cmd.NextAction.Pointer() && !coords.HasShape(cmd.Args) {
		return schemas.Command{}, errOf(KindMissingCoordinates,
			"%s requires usable coordinates (x/y, a 2-element point array, a center map, or a 4-element bbox)",
			cmd.NextAction)
	}

	return cmd, nil
}

func checkGate(action schemas.Action, gates Gates) error {
	switch action {
	case schemas.ActionClickText:
		if !gates.OCR {
			return errOf(KindFeatureDisabled, "%s not allowed when OCR is disabled", action)
		}
	case schemas.ActionUIAInvoke, schemas.ActionUIASetValue:
		if !gates.UIA {
			return errOf(KindFeatureDisabled, "%s not allowed when UI automation is disabled", action)
		}
	}
	return nil
}

// coerceString renders any JSON value as text; nil becomes empty.
func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
