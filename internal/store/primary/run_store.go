package primary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"postmatch/internal/models"
	"postmatch/internal/store"
)

var _ store.RunStore = (*StoreImpl)(nil)

// --- Run Store Implementation ---

const runColumns = `id, mode, instagram_username, foncii_username, fetched, accepted, batches_uploaded, status, error, started_at, finished_at`

// RecordRun upserts the run by ID.
func (s *StoreImpl) RecordRun(ctx context.Context, run *models.PipelineRun) error {
	query := `
		INSERT INTO pipeline_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			fetched = excluded.fetched,
			accepted = excluded.accepted,
			batches_uploaded = excluded.batches_uploaded,
			status = excluded.status,
			error = excluded.error,
			finished_at = excluded.finished_at`

	var finished sql.NullTime
	if run.FinishedAt != nil {
		finished = sql.NullTime{Time: *run.FinishedAt, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		run.ID.String(),
		run.Mode,
		run.InstagramUsername,
		run.FonciiUsername,
		run.Fetched,
		run.Accepted,
		run.BatchesUploaded,
		run.Status,
		run.Error,
		run.StartedAt,
		finished,
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

func (s *StoreImpl) GetRun(ctx context.Context, id uuid.UUID) (*models.PipelineRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM pipeline_runs WHERE id = $1`, id.String())
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns runs newest first.
func (s *StoreImpl) ListRuns(ctx context.Context, limit, offset int) ([]*models.PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM pipeline_runs ORDER BY started_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.PipelineRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*models.PipelineRun, error) {
	var (
		id       string
		finished sql.NullTime
		run      models.PipelineRun
	)
	err := row.Scan(
		&id,
		&run.Mode,
		&run.InstagramUsername,
		&run.FonciiUsername,
		&run.Fetched,
		&run.Accepted,
		&run.BatchesUploaded,
		&run.Status,
		&run.Error,
		&run.StartedAt,
		&finished,
	)
	if err != nil {
		return nil, err
	}
	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", id, err)
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
