package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/inboxsync/internal/models"
	"github.com/desertthunder/inboxsync/internal/shared"
)

const selectSyncRun = `
	SELECT
		id, sequence, handle, full_sync, background, phase,
		processed, added, updated, error_message, started_at, finished_at
	FROM sync_runs
`

// SyncRunRepository persists terminal sync outcomes.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create inserts a run, assigning its ID (when empty) and sequence.
func (r *SyncRunRepository) Create(ctx context.Context, run *models.SyncRun) error {
	if !run.Phase.Terminal() {
		return fmt.Errorf("%w: run phase %q is not terminal", shared.ErrInvalidInput, run.Phase)
	}

	sequence, err := NextSequence(ctx, r.db, "sync_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	if run.ID == "" {
		run.ID = shared.GenerateID()
	}
	run.Sequence = sequence

	query := `
		INSERT INTO sync_runs (
			id, sequence, handle, full_sync, background, phase,
			processed, added, updated, error_message, started_at, finished_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.Sequence,
		run.Handle.String(),
		run.FullSync,
		run.Background,
		run.Phase.String(),
		run.Stats.Processed,
		run.Stats.Added,
		run.Stats.Updated,
		run.ErrorMessage,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	return nil
}

// List returns the most recent runs, newest first. A non-positive limit returns all runs.
func (r *SyncRunRepository) List(ctx context.Context, limit int) ([]models.SyncRun, error) {
	query := selectSyncRun + " ORDER BY sequence DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sync runs: %w", err)
	}

	return runs, nil
}

// LastSuccessful returns the most recent Completed run, or nil when there is none.
func (r *SyncRunRepository) LastSuccessful(ctx context.Context) (*models.SyncRun, error) {
	query := selectSyncRun + " WHERE phase = ? ORDER BY sequence DESC LIMIT 1"

	run, err := scanSyncRun(r.db.QueryRowContext(ctx, query, models.PhaseCompleted.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSyncRun(s scanner) (*models.SyncRun, error) {
	var (
		run    models.SyncRun
		handle string
		phase  string
	)

	err := s.Scan(
		&run.ID,
		&run.Sequence,
		&handle,
		&run.FullSync,
		&run.Background,
		&phase,
		&run.Stats.Processed,
		&run.Stats.Added,
		&run.Stats.Updated,
		&run.ErrorMessage,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}

	run.Handle = models.TaskHandle(handle)
	run.Phase = models.SyncPhase(phase)
	return &run, nil
}
