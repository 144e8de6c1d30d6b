// File: internal/journal/writer.go
//
// The run journal: an append-only JSONL file per run directory. Step records
// and session markers share the stream; every line is flushed as it is
// written so a crash never loses completed steps.
package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/deskops/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StepsFileName is the journal file inside a run directory.
const StepsFileName = "steps.jsonl"

// Writer appends journal lines for one run directory. Safe for concurrent
// use.
type Writer struct {
	mu     sync.Mutex
	file   *os.File
	path   string
	logger *zap.Logger
}

// NewWriter opens (creating if needed) the journal inside runDir.
func NewWriter(runDir string, logger *zap.Logger) (*Writer, error) {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}

	path := filepath.Join(runDir, StepsFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	return &Writer{file: file, path: path, logger: logger.Named("journal")}, nil
}

// Path returns the journal file location.
func (w *Writer) Path() string {
	return w.path
}

func (w *Writer) writeLine(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling journal line: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return fmt.Errorf("journal is closed")
	}
	if _, err := w.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing journal line: %w", err)
	}
	return w.file.Sync()
}

// SessionStart frames the beginning of one instruction run.
func (w *Writer) SessionStart(runID, instruction string) error {
	return w.writeLine(schemas.SessionMarker{
		Event:       schemas.EventSessionStart,
		RunID:       runID,
		Instruction: instruction,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}

// Append records one completed step.
func (w *Writer) Append(rec schemas.StepRecord) error {
	return w.writeLine(rec)
}

// ErrorSummary records the validation-failure tally. Empty tallies write
// nothing: a clean run has no error-summary line.
func (w *Writer) ErrorSummary(runID string, tally map[string]int) error {
	if len(tally) == 0 {
		return nil
	}
	return w.writeLine(schemas.ErrorSummary{
		Event: schemas.EventErrorSummary,
		RunID: runID,
		Tally: tally,
	})
}

// SessionEnd frames the end of one instruction run.
func (w *Writer) SessionEnd(runID string, status schemas.RunStatus, steps int) error {
	return w.writeLine(schemas.SessionMarker{
		Event:     schemas.EventSessionEnd,
		RunID:     runID,
		Status:    status,
		Steps:     steps,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Close releases the journal file. Further writes fail.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
