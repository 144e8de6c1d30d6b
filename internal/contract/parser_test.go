// File: internal/contract/parser_test.go
package contract

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/deskops/api/schemas"
)

var openGates = Gates{OCR: true, UIA: true}

func TestParseAcceptsMinimalCommand(t *testing.T) {
	cmd, err := Parse(`{"plan":"idle","next_action":"NONE","args":{},"done":false}`, Gates{})
	require.NoError(t, err)
	assert.Equal(t, schemas.ActionNone, cmd.NextAction)
	assert.False(t, cmd.Done)
	require.NotNil(t, cmd.Args)
}

func TestParseRejectsLegacyDone(t *testing.T) {
	// The legacy sentinel fails regardless of any other field values.
	for _, raw := range []string{
		`{"next_action": "DONE", "done": false}`,
		`{"next_action": "DONE", "done": true}`,
		`{"plan":"p","say":"s","next_action":"DONE","args":{"x":1,"y":2},"done":false}`,
	} {
		_, err := Parse(raw, openGates)
		require.Error(t, err, "raw: %s", raw)
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindLegacyActionRejected, kind)
	}
}

func TestParseEnforcesNoneOnDone(t *testing.T) {
	_, err := Parse(`{"next_action": "CLICK", "args": {"x":1,"y":2}, "done": true}`, openGates)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindInconsistentDoneState, kind)
	assert.Contains(t, err.Error(), "when done:true")

	cmd, err := Parse(`{"next_action": "NONE", "done": true}`, openGates)
	require.NoError(t, err)
	assert.True(t, cmd.Done)
	assert.Equal(t, schemas.ActionNone, cmd.NextAction)
}

func TestParseTaxonomy(t *testing.T) {
	testCases := []struct {
		name  string
		raw   string
		gates Gates
		want  Kind
	}{
		{
			name: "malformed JSON",
			raw:  `this is not json`,
			want: KindMalformedResponse,
		},
		{
			name: "missing next_action",
			raw:  `{"plan":"x","args":{},"done":false}`,
			want: KindMissingField,
		},
		{
			name: "missing done",
			raw:  `{"next_action":"NONE","args":{}}`,
			want: KindMissingField,
		},
		{
			name: "args wrong type",
			raw:  `{"next_action":"NONE","args":[1,2],"done":false}`,
			want: KindInvalidArgsType,
		},
		{
			name: "non-string action",
			raw:  `{"next_action":7,"args":{},"done":false}`,
			want: KindMalformedResponse,
		},
		{
			name: "non-boolean done",
			raw:  `{"next_action":"NONE","args":{},"done":"yes"}`,
			want: KindMalformedResponse,
		},
		{
			name: "unknown action",
			raw:  `{"next_action":"FLY","args":{},"done":false}`,
			want: KindUnknownAction,
		},
		{
			name:  "click_text gated on OCR",
			raw:   `{"next_action":"CLICK_TEXT","args":{"text":"hello"},"done":false}`,
			gates: Gates{UIA: true},
			want:  KindFeatureDisabled,
		},
		{
			name:  "uia_invoke gated on UIA",
			raw:   `{"next_action":"UIA_INVOKE","args":{"selector":{"name":"OK"}},"done":false}`,
			gates: Gates{OCR: true},
			want:  KindFeatureDisabled,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.raw, tc.gates)
			require.Error(t, err)
			kind, ok := KindOf(err)
			require.True(t, ok, "error must be a ContractError: %v", err)
			assert.Equal(t, tc.want, kind)
		})
	}
}

var pointerActions = []schemas.Action{
	schemas.ActionMove,
	schemas.ActionClick,
	schemas.ActionDoubleClick,
	schemas.ActionRightClick,
	schemas.ActionDrag,
}

func TestPointerActionsRequireCoordinateShape(t *testing.T) {
	for _, action := range pointerActions {
		raw := fmt.Sprintf(`{"next_action": %q, "args": {}, "done": false}`, action)
		_, err := Parse(raw, openGates)
		require.Error(t, err, "action %s", action)
		kind, _ := KindOf(err)
		assert.Equal(t, KindMissingCoordinates, kind)
		assert.Contains(t, err.Error(), "requires usable coordinates")
	}
}

func TestPointerActionsAcceptAllCoordinateShapes(t *testing.T) {
	shapes := []string{
		`{"x": 100, "y": 200}`,
		`{"cx": 100, "cy": 200}`,
		`{"coordinates": [100, 200]}`,
		`{"point": [100, 200]}`,
		`{"target": [100, 200]}`,
		`{"location": [100, 200]}`,
		`{"position": {"x": 100, "y": 200}}`,
		`{"center": {"x": 100, "y": 200}}`,
		`{"bbox": [100, 200, 300, 400]}`,
	}
	for _, shape := range shapes {
		for _, action := range pointerActions {
			raw := fmt.Sprintf(`{"next_action": %q, "args": %s, "done": false}`, action, shape)
			cmd, err := Parse(raw, openGates)
			require.NoError(t, err, "action %s shape %s", action, shape)
			assert.Equal(t, action, cmd.NextAction)
		}
	}
}

func TestParseDefaultsAndCoercions(t *testing.T) {
	// Absent args becomes an empty map, plan is coerced to text, say defaults
	// to empty.
	cmd, err := Parse(`{"plan": 42, "next_action":"TYPE","done":false}`, Gates{})
	require.NoError(t, err)
	require.NotNil(t, cmd.Args)
	assert.Empty(t, cmd.Args)
	assert.Equal(t, "42", cmd.Plan)
	assert.Empty(t, cmd.Say)

	// Null args is treated as absent, not as a type violation.
	cmd, err = Parse(`{"next_action":"WAIT","args":null,"done":false}`, Gates{})
	require.NoError(t, err)
	require.NotNil(t, cmd.Args)
}

func TestParseUnwrapsProviderNoise(t *testing.T) {
	raw := "Here is the JSON:\n```json\n{\"plan\":\"click ok\",\"next_action\":\"CLICK\",\"args\":{\"x\":10,\"y\":20},\"done\":false}\n```"
	cmd, err := Parse(raw, Gates{})
	require.NoError(t, err)
	assert.Equal(t, schemas.ActionClick, cmd.NextAction)
}
