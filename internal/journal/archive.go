// File: internal/journal/archive.go
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/deskops/api/schemas"
)

// DBPool abstracts pgxpool.Pool for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Close()
}

// Archive mirrors completed runs into Postgres so run history outlives the
// local runs directory.
type Archive struct {
	pool DBPool
	log  *zap.Logger
}

const createStepRecordsSQL = `
	CREATE TABLE IF NOT EXISTS step_records (
		run_id          TEXT        NOT NULL,
		step_index      INT         NOT NULL,
		plan            TEXT        NOT NULL,
		next_action     TEXT        NOT NULL,
		args            JSONB       NOT NULL,
		say             TEXT        NOT NULL DEFAULT '',
		observation     TEXT        NOT NULL,
		screenshot_path TEXT        NOT NULL DEFAULT '',
		meta            JSONB,
		recorded_at     TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (run_id, step_index)
	);
`

var stepRecordColumns = []string{
	"run_id", "step_index", "plan", "next_action", "args",
	"say", "observation", "screenshot_path", "meta", "recorded_at",
}

// NewArchive verifies the connection and ensures the schema exists.
func NewArchive(ctx context.Context, pool DBPool, logger *zap.Logger) (*Archive, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, createStepRecordsSQL); err != nil {
		return nil, fmt.Errorf("ensuring step_records table: %w", err)
	}
	return &Archive{pool: pool, log: logger.Named("journal.archive")}, nil
}

// OpenArchive connects to dsn and builds the archive over a real pool.
func OpenArchive(ctx context.Context, dsn string, logger *zap.Logger) (*Archive, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to archive database: %w", err)
	}
	archive, err := NewArchive(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return archive, nil
}

// StoreRun bulk-copies a run's step records.
func (a *Archive) StoreRun(ctx context.Context, runID string, steps []schemas.StepRecord) error {
	if len(steps) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([][]any, len(steps))
	for i, s := range steps {
		argsJSON, err := json.Marshal(s.Args)
		if err != nil {
			return fmt.Errorf("marshaling args for step %d: %w", s.StepIndex, err)
		}
		var metaJSON []byte
		if s.Meta != nil {
			metaJSON, err = json.Marshal(s.Meta)
			if err != nil {
				return fmt.Errorf("marshaling meta for step %d: %w", s.StepIndex, err)
			}
		}
		rows[i] = []any{
			runID, s.StepIndex, s.Plan, string(s.NextAction), argsJSON,
			s.Say, s.Observation, s.ScreenshotPath, metaJSON, now,
		}
	}

	copied, err := a.pool.CopyFrom(ctx,
		pgx.Identifier{"step_records"},
		stepRecordColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copying step records: %w", err)
	}
	if int(copied) != len(steps) {
		return fmt.Errorf("mismatch in copied step count: expected %d, got %d", len(steps), copied)
	}

	a.log.Info("Run archived.", zap.String("run_id", runID), zap.Int("steps", len(steps)))
	return nil
}

// Close releases the underlying pool.
func (a *Archive) Close() {
	a.pool.Close()
}
