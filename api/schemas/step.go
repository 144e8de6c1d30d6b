package schemas

// -- Step Record Schemas --

// StepRecord is the append-only unit of run history: exactly one is produced
// per orchestrator iteration, then never mutated. Field names are the stable
// journal wire format.
type StepRecord struct {
	StepIndex      int            `json:"step_index"`
	Plan           string         `json:"plan"`
	NextAction     Action         `json:"next_action"`
	Args           map[string]any `json:"args"`
	Say            string         `json:"say,omitempty"`
	Observation    string         `json:"observation"`
	ScreenshotPath string         `json:"screenshot_path,omitempty"`
	Meta           *StepMeta      `json:"meta,omitempty"`
}

// Summary returns the compact form fed back to the model as history context.
func (s StepRecord) Summary() map[string]any {
	return map[string]any{
		"step_index":  s.StepIndex,
		"plan":        s.Plan,
		"next_action": s.NextAction,
		"args":        s.Args,
		"observation": s.Observation,
	}
}

// StepMeta carries per-step diagnostic detail: how a coordinate was resolved
// and what visual verification observed. Optional end to end.
type StepMeta struct {
	Screen     *Dimensions     `json:"screen,omitempty"`
	Image      *Dimensions     `json:"image,omitempty"`
	Coords     *CoordTrace     `json:"coords,omitempty"`
	BBox       []float64       `json:"bbox,omitempty"`
	Scaling    *ScalingTrace   `json:"scaling,omitempty"`
	Clamped    bool            `json:"clamped,omitempty"`
	Heuristics *HeuristicFlags `json:"heuristics,omitempty"`
	Verify     *VerifyTrace    `json:"verify,omitempty"`
}

// Dimensions is a width/height pair in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CoordTrace records the raw model-supplied pair and the final resolved pair.
// Elements are pointers because either component may be absent.
type CoordTrace struct {
	Raw   []*float64 `json:"raw"`
	Final []*int     `json:"final"`
}

// ScalingTrace names the coordinate system that was applied.
type ScalingTrace struct {
	Mode    string `json:"mode"`
	Applied bool   `json:"applied"`
}

// HeuristicFlags records signals from heuristic coordinate detection.
type HeuristicFlags struct {
	RawExceedsImage bool `json:"raw_exceeds_image"`
}

// VerifyTrace is the persisted form of a visual verification result.
type VerifyTrace struct {
	Delta  float64 `json:"delta"`
	Pass   bool    `json:"pass"`
	Region []int   `json:"region,omitempty"` // x, y, w, h
}

// -- Run Schemas --

// RunStatus is the terminal state of one instruction run. Both values are
// normal termination, not errors.
type RunStatus string

const (
	RunDone      RunStatus = "DONE"
	RunExhausted RunStatus = "EXHAUSTED"
)

// -- Journal Event Schemas --

// JournalEvent names the non-step marker lines in a run journal.
type JournalEvent string

const (
	EventSessionStart JournalEvent = "session_start"
	EventSessionEnd   JournalEvent = "session_end"
	EventErrorSummary JournalEvent = "error_summary"
)

// SessionMarker is a journal line that frames one instruction run.
type SessionMarker struct {
	Event       JournalEvent `json:"event"`
	RunID       string       `json:"run_id"`
	Instruction string       `json:"instruction,omitempty"`
	Status      RunStatus    `json:"status,omitempty"`
	Steps       int          `json:"steps,omitempty"`
	Timestamp   string       `json:"timestamp"`
}

// ErrorSummary is the one-time tally line emitted when a run recorded
// validation failures.
type ErrorSummary struct {
	Event JournalEvent   `json:"event"`
	RunID string         `json:"run_id"`
	Tally map[string]int `json:"tally"`
}
