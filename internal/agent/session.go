// File: internal/agent/session.go
package agent

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/deskops/api/schemas"
	"github.com/xkilldash9x/deskops/internal/config"
	"github.com/xkilldash9x/deskops/internal/input"
	"github.com/xkilldash9x/deskops/internal/journal"
	"github.com/xkilldash9x/deskops/internal/locate"
	"github.com/xkilldash9x/deskops/internal/model"
	"github.com/xkilldash9x/deskops/internal/screen"
	"github.com/xkilldash9x/deskops/internal/uia"
)

// Injection point for tests.
var uuidNewString = uuid.NewString

// Session owns the long-lived collaborators shared by every instruction run:
// the model client, the backend executor and capturer, and the optional
// archive. One Session serves a whole REPL.
type Session struct {
	cfg     *config.Config
	logger  *zap.Logger
	console *Console

	model    model.Client
	exec     input.Executor
	capturer screen.Capturer
	locator  locate.Locator
	uia      *uia.Automator
	overlay  Overlay
	archive  *journal.Archive

	cancels []context.CancelFunc
}

// NewSession wires the configured backend. out receives the console
// narration.
func NewSession(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer) (*Session, error) {
	s := &Session{
		cfg:     cfg,
		logger:  logger.Named("session"),
		console: NewConsole(out),
		overlay: NopOverlay{},
	}

	client, err := model.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	s.model = client

	if err := s.wireBackend(ctx); err != nil {
		s.Close()
		return nil, err
	}

	// CLICK_TEXT falls back to the vision locator when the backend offers no
	// native text search.
	if cfg.Features.OCR && s.locator == nil {
		s.locator = locate.NewCache(locate.NewVisionLocator(
			client, cfg.Screenshot.Width, cfg.Screenshot.Quality, logger))
	}
	if cfg.Features.UIA && cfg.Features.UIASnapshot != "" {
		s.uia = uia.NewAutomator(uia.NewFileSource(cfg.Features.UIASnapshot), s.exec, logger)
	}

	if cfg.Journal.Archive.Enabled {
		archive, err := journal.OpenArchive(ctx, cfg.Journal.Archive.DSN, logger)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("opening journal archive: %w", err)
		}
		s.archive = archive
	}
	return s, nil
}

func (s *Session) wireBackend(ctx context.Context) error {
	switch s.cfg.Backend.Kind {
	case "dryrun":
		s.exec = input.NewDryRun()
		s.capturer = screen.NewStaticCapturer(schemas.Dimensions{
			Width:  s.cfg.Backend.CDP.Viewport.Width,
			Height: s.cfg.Backend.CDP.Viewport.Height,
		}, nil)

	case "imagedir":
		cap, err := screen.NewImageDirCapturer(s.cfg.Backend.ImageDir)
		if err != nil {
			return fmt.Errorf("opening image directory backend: %w", err)
		}
		s.exec = input.NewDryRun()
		s.capturer = cap

	case "cdp":
		if err := s.wireCDP(ctx); err != nil {
			return fmt.Errorf("wiring CDP backend: %w", err)
		}

	default:
		return fmt.Errorf("unknown backend kind %q", s.cfg.Backend.Kind)
	}
	return nil
}

func (s *Session) wireCDP(ctx context.Context) error {
	viewport := schemas.Dimensions{
		Width:  s.cfg.Backend.CDP.Viewport.Width,
		Height: s.cfg.Backend.CDP.Viewport.Height,
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if url := s.cfg.Backend.CDP.URL; url != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, url)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.WindowSize(viewport.Width, viewport.Height),
		)
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	}
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	s.cancels = append(s.cancels, browserCancel, allocCancel)

	if err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(int64(viewport.Width), int64(viewport.Height))); err != nil {
		return fmt.Errorf("starting browser target: %w", err)
	}

	planner := input.NewPlanner(s.cfg.Backend.Trajectory, time.Now().UnixNano())
	exec := input.NewCDPExecutor(browserCtx, planner, s.logger)
	s.exec = selectExecutor(s.cfg, exec)
	s.capturer = screen.NewCDPCapturer(browserCtx, viewport)
	s.locator = locate.NewCache(locate.NewCDPTextLocator(browserCtx, s.logger))
	if s.cfg.Overlay.Enabled && !s.cfg.DryRun {
		s.overlay = exec
	}
	return nil
}

// selectExecutor applies the dry_run master switch: whatever the backend, a
// dry run never injects real input.
func selectExecutor(cfg *config.Config, backendExec input.Executor) input.Executor {
	if cfg.DryRun {
		return input.NewDryRun()
	}
	return backendExec
}

// Console exposes the session's narration surface.
func (s *Session) Console() *Console {
	return s.console
}

// RunInstruction executes one instruction in a fresh timestamped run
// directory and returns the result with the directory path.
func (s *Session) RunInstruction(ctx context.Context, instruction string) (RunResult, string, error) {
	runDir := filepath.Join(s.cfg.RunsDir, time.Now().UTC().Format("20060102T150405"))
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return RunResult{}, "", fmt.Errorf("creating run directory: %w", err)
	}

	writer, err := journal.NewWriter(runDir, s.logger)
	if err != nil {
		return RunResult{}, "", err
	}

	runID := uuidNewString()
	stepper := NewStepper(StepperParams{
		Config:   s.cfg,
		Model:    s.model,
		Executor: s.exec,
		Capturer: s.capturer,
		Locator:  s.locator,
		UIA:      s.uia,
		Overlay:  s.overlay,
		Journal:  writer,
		Console:  s.console,
		Logger:   s.logger,
		RunDir:   runDir,
	})

	result, runErr := stepper.Run(ctx, runID, instruction)
	if err := writer.Close(); err != nil {
		s.logger.Warn("Journal close failed.", zap.Error(err))
	}

	if runErr == nil && s.archive != nil {
		if err := s.archive.StoreRun(ctx, runID, result.Steps); err != nil {
			s.logger.Error("Run archive failed.", zap.Error(err))
		}
	}
	return result, runDir, runErr
}

// Close releases backend resources. Safe to call more than once.
func (s *Session) Close() {
	for i := len(s.cancels) - 1; i >= 0; i-- {
		s.cancels[i]()
	}
	s.cancels = nil
	if s.archive != nil {
		s.archive.Close()
		s.archive = nil
	}
}
