// File: internal/journal/journal_test.go
package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/deskops/api/schemas"
)

func sampleStep(i int) schemas.StepRecord {
	return schemas.StepRecord{
		StepIndex:   i,
		Plan:        "click the save button",
		NextAction:  schemas.ActionClick,
		Args:        map[string]any{"x": float64(100), "y": float64(200)},
		Observation: "clicked",
	}
}

func TestWriterReaderRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	w, err := NewWriter(dir, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, w.SessionStart("run-1", "save the file"))
	require.NoError(t, w.Append(sampleStep(0)))
	require.NoError(t, w.Append(sampleStep(1)))
	require.NoError(t, w.ErrorSummary("run-1", map[string]int{"UnknownAction": 2}))
	require.NoError(t, w.SessionEnd("run-1", schemas.RunDone, 2))
	require.NoError(t, w.Close())

	steps, err := ReadSteps(w.Path())
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, 0, steps[0].StepIndex)
	assert.Equal(t, schemas.ActionClick, steps[0].NextAction)
	assert.Equal(t, float64(100), steps[0].Args["x"])
	assert.Equal(t, 1, steps[1].StepIndex)
}

func TestWriterEmptyTallyWritesNothing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	w, err := NewWriter(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, w.ErrorSummary("run-1", nil))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(w.Path())
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestWriterClosedRejectsWrites(t *testing.T) {
	t.Parallel()
	w, err := NewWriter(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Error(t, w.Append(sampleStep(0)))
	assert.NoError(t, w.Close())
}

func TestReadStepsSkipsNoise(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, StepsFileName)

	content := `{"event":"session_start","run_id":"r","timestamp":"2026-01-01T00:00:00Z"}
{"step_index":0,"plan":"p","next_action":"TYPE","args":{},"observation":"typed"}
this line is not json at all
{"event":"error_summary","run_id":"r","tally":{"MissingField":1}}
{"step_index":1,"plan":"p","next_action":"NONE","args":{},"observation":""}
{"truncated": tru`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	steps, err := ReadSteps(path)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, schemas.ActionType, steps[0].NextAction)
	assert.Equal(t, schemas.ActionNone, steps[1].NextAction)
}

func TestReadStepsMissingFile(t *testing.T) {
	t.Parallel()
	_, err := ReadSteps(filepath.Join(t.TempDir(), "absent.jsonl"))
	assert.Error(t, err)
}

func TestLatestRunDir(t *testing.T) {
	t.Parallel()
	runs := t.TempDir()

	older := filepath.Join(runs, "20260101T000000")
	newer := filepath.Join(runs, "20260102T000000")
	require.NoError(t, os.Mkdir(older, 0o755))
	require.NoError(t, os.Mkdir(newer, 0o755))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	latest, err := LatestRunDir(runs)
	require.NoError(t, err)
	assert.Equal(t, newer, latest)
}

func TestLatestRunDirEmpty(t *testing.T) {
	t.Parallel()
	_, err := LatestRunDir(t.TempDir())
	assert.Error(t, err)
}
