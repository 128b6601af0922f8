package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/histnorm/internal/core"
)

// RunsTable holds one audit row per pipeline run.
const RunsTable = "pipeline_runs"

// CreateRunsTableSQL returns the DDL for the run audit table.
func CreateRunsTableSQL() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id uuid PRIMARY KEY,
	dataset_id text NOT NULL,
	status text NOT NULL,
	rows int4 NOT NULL,
	warnings jsonb NOT NULL DEFAULT '[]',
	error text,
	started_at timestamptz NOT NULL,
	duration_ms int8 NOT NULL
)`, pgx.Identifier{RunsTable}.Sanitize())
}

// RecordRun implements core.RunRecorder.
func (s *ObservationStore) RecordRun(ctx context.Context, entry core.RunEntry) error {
	warnings := entry.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	errText := pgtype.Text{}
	if entry.Error != "" {
		errText = ToPgText(entry.Error)
	}

	sql := fmt.Sprintf(`INSERT INTO %s
	(run_id, dataset_id, status, rows, warnings, error, started_at, duration_ms)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, pgx.Identifier{RunsTable}.Sanitize())

	_, err = s.db.Exec(ctx, sql,
		ToPgUUID(entry.RunID),
		entry.DatasetID,
		string(entry.Status),
		pgtype.Int4{Int32: int32(entry.Rows), Valid: true},
		warningsJSON,
		errText,
		pgtype.Timestamptz{Time: entry.StartedAt, Valid: true},
		entry.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", entry.RunID, err)
	}
	return nil
}
