// File: internal/agent/stepper.go
//
// The step orchestrator: one instruction in, an ordered trail of StepRecords
// out. Every iteration produces exactly one record, whatever fails upstream;
// the run only ever terminates as Done (model said so) or Exhausted (budget
// or stop).
package agent

import (
	"context"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/deskops/api/schemas"
	"github.com/xkilldash9x/deskops/internal/config"
	"github.com/xkilldash9x/deskops/internal/contract"
	"github.com/xkilldash9x/deskops/internal/coords"
	"github.com/xkilldash9x/deskops/internal/input"
	"github.com/xkilldash9x/deskops/internal/journal"
	"github.com/xkilldash9x/deskops/internal/locate"
	"github.com/xkilldash9x/deskops/internal/model"
	"github.com/xkilldash9x/deskops/internal/screen"
	"github.com/xkilldash9x/deskops/internal/uia"
	"github.com/xkilldash9x/deskops/internal/verify"
)

// Stepper executes one instruction against the configured backend.
type Stepper struct {
	cfg      *config.Config
	model    model.Client
	exec     input.Executor
	capturer screen.Capturer
	locator  locate.Locator // nil when CLICK_TEXT has no backend
	uia      *uia.Automator // nil when UIA has no backend
	overlay  Overlay
	journal  *journal.Writer
	console  *Console
	logger   *zap.Logger
	runDir   string
	limiter  *rate.Limiter
}

// StepperParams carries the collaborators a Stepper needs.
type StepperParams struct {
	Config   *config.Config
	Model    model.Client
	Executor input.Executor
	Capturer screen.Capturer
	Locator  locate.Locator
	UIA      *uia.Automator
	Overlay  Overlay
	Journal  *journal.Writer
	Console  *Console
	Logger   *zap.Logger
	RunDir   string
}

// NewStepper assembles the orchestrator. Pacing never goes negative: a zero
// min interval means full speed.
func NewStepper(p StepperParams) *Stepper {
	interval := time.Duration(p.Config.Loop.MinIntervalMS) * time.Millisecond
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	overlay := p.Overlay
	if overlay == nil {
		overlay = NopOverlay{}
	}
	return &Stepper{
		cfg:      p.Config,
		model:    p.Model,
		exec:     p.Executor,
		capturer: p.Capturer,
		locator:  p.Locator,
		uia:      p.UIA,
		overlay:  overlay,
		journal:  p.Journal,
		console:  p.Console,
		logger:   p.Logger.Named("agent"),
		runDir:   p.RunDir,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// RunResult is the outcome of one instruction run.
type RunResult struct {
	Status schemas.RunStatus
	Steps  []schemas.StepRecord
	Tally  map[string]int
}

// Run drives the loop until the model declares completion, the step budget is
// spent, or the context is canceled at an iteration boundary.
func (s *Stepper) Run(ctx context.Context, runID, instruction string) (RunResult, error) {
	if err := s.journal.SessionStart(runID, instruction); err != nil {
		return RunResult{}, fmt.Errorf("starting journal session: %w", err)
	}

	result := RunResult{Status: schemas.RunExhausted, Tally: map[string]int{}}
	lastObservation := ""
	gates := contract.Gates{OCR: s.cfg.Features.OCR, UIA: s.cfg.Features.UIA}

	for stepIndex := 1; stepIndex <= s.cfg.Loop.MaxSteps; stepIndex++ {
		if ctx.Err() != nil {
			break
		}
		if err := s.limiter.Wait(ctx); err != nil {
			break
		}

		// Frame capture. A failed capture degrades to a blind step rather
		// than killing the run.
		var (
			frame      image.Image
			dataURL    string
			screenDims schemas.Dimensions
			imgDims    schemas.Dimensions
		)
		if dims, err := s.capturer.Size(ctx); err == nil {
			screenDims = dims
		} else {
			s.logger.Warn("Screen size unavailable.", zap.Error(err))
		}
		if img, err := s.capturer.Capture(ctx, nil); err == nil {
			frame = img
			if url, encoded, err := screen.EncodeJPEG(img, s.cfg.Screenshot.Width, s.cfg.Screenshot.Quality); err == nil {
				dataURL = url
				b := encoded.Bounds()
				imgDims = schemas.Dimensions{Width: b.Dx(), Height: b.Dy()}
			} else {
				s.logger.Warn("Frame encoding failed.", zap.Error(err))
			}
		} else {
			s.logger.Warn("Frame capture failed.", zap.Error(err))
		}

		raw, err := s.model.Step(ctx, model.Query{
			Instruction:     instruction,
			LastObservation: lastObservation,
			RecentSteps:     s.recentSummaries(result.Steps),
			ImageB64:        dataURL,
		})
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			raw = ""
		}

		cmd, parseErr := contract.Parse(raw, gates)
		if parseErr != nil {
			kind, _ := contract.KindOf(parseErr)
			result.Tally[string(kind)]++
			s.logger.Warn("Model response failed validation.",
				zap.String("kind", string(kind)), zap.Error(parseErr))
			cmd = schemas.NoOp("report parsing error", fmt.Sprintf("Parser error: %v", parseErr))
		}

		rec := s.executeStep(ctx, stepIndex, cmd, frame, screenDims, imgDims)

		if frame != nil {
			if path, err := screen.SaveStepImage(s.runDir, stepIndex, frame); err == nil {
				rec.ScreenshotPath = path
			} else {
				s.logger.Warn("Step screenshot not saved.", zap.Error(err))
			}
		}

		if err := s.journal.Append(rec); err != nil {
			s.logger.Error("Journal append failed.", zap.Error(err))
		}
		s.console.Step(rec)
		result.Steps = append(result.Steps, rec)
		lastObservation = rec.Observation

		if cmd.Done {
			result.Status = schemas.RunDone
			break
		}
	}

	if err := s.journal.ErrorSummary(runID, result.Tally); err != nil {
		s.logger.Error("Journal error summary failed.", zap.Error(err))
	}
	if err := s.journal.SessionEnd(runID, result.Status, len(result.Steps)); err != nil {
		s.logger.Error("Journal session end failed.", zap.Error(err))
	}
	s.console.Finish(result.Status)
	return result, nil
}

// recentSummaries renders the trailing window of step summaries for the
// model's context.
func (s *Stepper) recentSummaries(steps []schemas.StepRecord) []string {
	window := s.cfg.Loop.RecentWindow
	if window <= 0 || len(steps) == 0 {
		return nil
	}
	if len(steps) > window {
		steps = steps[len(steps)-window:]
	}
	out := make([]string, 0, len(steps))
	for _, rec := range steps {
		data, err := json.Marshal(rec.Summary())
		if err != nil {
			continue
		}
		out = append(out, string(data))
	}
	return out
}

// executeStep resolves, dispatches, and verifies one validated command,
// returning the immutable record of what happened.
func (s *Stepper) executeStep(ctx context.Context, stepIndex int, cmd schemas.Command, frame image.Image, screenDims, imgDims schemas.Dimensions) schemas.StepRecord {
	rec := schemas.StepRecord{
		StepIndex:  stepIndex,
		Plan:       cmd.Plan,
		NextAction: cmd.NextAction,
		Args:       cmd.Args,
		Say:        cmd.Say,
	}

	// Pointer actions resolve their target first; an unusable target skips
	// dispatch entirely. Never guess a position.
	var target coords.Target
	if cmd.NextAction.Pointer() {
		target = coords.Resolve(coords.ExtractSource(cmd.Args), screenDims, imgDims)
		rec.Meta = target.Meta
		if !target.Usable() {
			rec.Observation = fmt.Sprintf("skipped %s: no usable coordinates", cmd.NextAction)
			return rec
		}
	}

	// Pre-capture the verification region before the action disturbs it.
	var (
		verifyRect   image.Rectangle
		verifyBefore image.Image
		threshold    float64
		verifying    bool
	)
	if s.cfg.Verify.Enabled && verify.Supports(cmd.NextAction) && screenDims.Width > 0 {
		var center *image.Point
		if target.Usable() {
			x, y := target.Point()
			pt := image.Pt(x, y)
			center = &pt
		}
		verifyRect = verify.Region(center, s.cfg.Verify.Region.Width, s.cfg.Verify.Region.Height, screenDims)
		threshold = verify.ThresholdFor(cmd.NextAction, s.cfg.Verify.Thresholds)
		if before, err := s.capturer.Capture(ctx, &verifyRect); err == nil {
			verifyBefore = before
			verifying = true
		} else {
			s.logger.Warn("Verification pre-capture failed.", zap.Error(err))
		}
	}

	rec.Observation = s.dispatch(ctx, cmd, target, frame)

	if cmd.NextAction.ClickLike() && target.Usable() {
		x, y := target.Point()
		s.overlay.ShowMarker(x, y, time.Duration(s.cfg.Overlay.DurationMS)*time.Millisecond)
	}

	if verifying {
		settle := time.Duration(s.cfg.Verify.SettleMS) * time.Millisecond
		if res, _, err := verify.Run(ctx, s.capturer, verifyRect, verifyBefore, settle, threshold); err == nil {
			if rec.Meta == nil {
				rec.Meta = &schemas.StepMeta{}
			}
			rec.Meta.Verify = res.Trace()
		} else {
			s.logger.Warn("Verification recapture failed.", zap.Error(err))
		}
	}
	return rec
}

// dispatch hands the command to the executor and returns the observation.
// Executor failures are part of the observation, never a loop error.
func (s *Stepper) dispatch(ctx context.Context, cmd schemas.Command, target coords.Target, frame image.Image) string {
	observe := func(obs string, err error) string {
		if err != nil {
			return fmt.Sprintf("%s failed: %v", cmd.NextAction, err)
		}
		return obs
	}

	x, y := target.Point()
	switch cmd.NextAction {
	case schemas.ActionMove:
		return observe(s.exec.Move(ctx, x, y, cmd.FloatArg("duration", 0.5)))
	case schemas.ActionClick:
		button := input.MouseButton(cmd.StringArg("button", string(input.ButtonLeft)))
		return observe(s.exec.Click(ctx, x, y, button, cmd.IntArg("clicks", 1), cmd.FloatArg("interval", 0)))
	case schemas.ActionDoubleClick:
		return observe(s.exec.Click(ctx, x, y, input.ButtonLeft, 2, cmd.FloatArg("interval", 0.05)))
	case schemas.ActionRightClick:
		return observe(s.exec.Click(ctx, x, y, input.ButtonRight, 1, 0))
	case schemas.ActionType:
		return observe(s.exec.TypeText(ctx, cmd.StringArg("text", ""), cmd.FloatArg("interval", 0.02)))
	case schemas.ActionHotkey:
		return observe(s.exec.Hotkey(ctx, cmd.StringsArg("keys")))
	case schemas.ActionScroll:
		return observe(s.exec.Scroll(ctx, cmd.IntArg("amount", 0)))
	case schemas.ActionDrag:
		return observe(s.exec.Drag(ctx, x, y, cmd.FloatArg("duration", 0.5)))
	case schemas.ActionWait:
		return observe(s.exec.Wait(ctx, cmd.FloatArg("seconds", 1.0)))
	case schemas.ActionClickText:
		return s.dispatchClickText(ctx, cmd, frame)
	case schemas.ActionUIAInvoke, schemas.ActionUIASetValue:
		return s.dispatchUIA(ctx, cmd)
	case schemas.ActionNone:
		return "noop"
	}
	return "noop"
}

// dispatchClickText locates the requested text and clicks its best match.
func (s *Stepper) dispatchClickText(ctx context.Context, cmd schemas.Command, frame image.Image) string {
	query := cmd.StringArg("text", "")
	if query == "" {
		return "CLICK_TEXT: no text given"
	}
	if s.locator == nil {
		return "CLICK_TEXT unavailable: no locator configured"
	}

	matches, err := s.locator.Locate(ctx, query, frame, nil)
	if err != nil {
		return fmt.Sprintf("CLICK_TEXT failed: %v", err)
	}
	minScore := cmd.FloatArg("min_score", locate.DefaultMinScore)
	best, ok := bestMatch(matches, minScore)
	if !ok {
		return fmt.Sprintf("CLICK_TEXT: no matches for '%s'", query)
	}

	c := best.Center()
	if _, err := s.exec.Click(ctx, c.X, c.Y, input.ButtonLeft, 1, 0); err != nil {
		return fmt.Sprintf("CLICK_TEXT failed: %v", err)
	}
	s.overlay.ShowMarker(c.X, c.Y, time.Duration(s.cfg.Overlay.DurationMS)*time.Millisecond)
	return fmt.Sprintf("clicked text '%s' at %d,%d (score %.2f)", best.Text, c.X, c.Y, best.Score)
}

func bestMatch(matches []locate.Match, minScore float64) (locate.Match, bool) {
	for _, m := range matches {
		if m.Score >= minScore {
			return m, true
		}
	}
	return locate.Match{}, false
}

// dispatchUIA routes the accessibility actions through the automator.
func (s *Stepper) dispatchUIA(ctx context.Context, cmd schemas.Command) string {
	if s.uia == nil {
		return fmt.Sprintf("%s unavailable: no accessibility backend", cmd.NextAction)
	}

	sel := uia.SelectorFromArgs(cmd)
	scope := uia.ScopeFromArgs(cmd)

	var (
		obs string
		err error
	)
	if cmd.NextAction == schemas.ActionUIAInvoke {
		obs, err = s.uia.Invoke(ctx, sel, scope)
	} else {
		obs, err = s.uia.SetValue(ctx, sel, scope, cmd.StringArg("value", ""))
	}
	if err != nil {
		return fmt.Sprintf("%s failed: %v", cmd.NextAction, err)
	}
	return obs
}
