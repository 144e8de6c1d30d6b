// File: internal/model/model.go
//
// Provider adapters for the step model. Every provider receives the same
// query shape and must return a single JSON object text; validation of that
// text is the contract package's job, not the adapter's.
package model

import (
	"context"
	"fmt"
	"strings"
)

// Query is one step request to the model.
type Query struct {
	Instruction     string
	LastObservation string
	// RecentSteps is the trailing window of step summaries, oldest first.
	RecentSteps []string
	// ImageB64 is a data URL ("data:image/jpeg;base64,...") of the current
	// frame, or empty when no frame is available.
	ImageB64 string
}

// Client produces the model's raw response text for a step.
type Client interface {
	Step(ctx context.Context, q Query) (string, error)
}

// systemPrompt binds the model to the action contract.
const systemPrompt = "You are DesktopOps: a careful, step-by-step desktop operator. " +
	"Return ONLY a valid JSON object (no markdown fences) with these exact keys: plan, say, next_action, args, done. " +
	"next_action must be one of: MOVE, CLICK, DOUBLE_CLICK, RIGHT_CLICK, TYPE, HOTKEY, SCROLL, DRAG, WAIT, NONE, CLICK_TEXT, UIA_INVOKE, UIA_SET_VALUE. " +
	"args must be a JSON object. done must be boolean. Keep 'plan' concise (<=80 chars). " +
	"Use absolute screen coordinates for pointer actions when needed. " +
	"If you need the user, set next_action:'NONE' and done:false with a clear 'say'."

// userText composes the per-step user content.
func userText(q Query) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Instruction: %s\n", q.Instruction)
	fmt.Fprintf(&b, "Last observation: %s\n", q.LastObservation)
	b.WriteString("Recent steps: [")
	for i, s := range q.RecentSteps {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s)
	}
	b.WriteString("]\n")
	b.WriteString("Respond with the required JSON object.")
	return b.String()
}

// imagePayload splits a data URL into its base64 payload. Returns ok=false
// for anything that is not a data URL.
func imagePayload(dataURL string) (string, bool) {
	_, payload, found := strings.Cut(dataURL, ",")
	if !found || !strings.HasPrefix(dataURL, "data:") {
		return "", false
	}
	return payload, true
}
