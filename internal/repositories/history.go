package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/inboxsync/internal/models"
)

// HistoryAdapter implements tasks.MetadataSource and tasks.RunRecorder on top of
// [SyncRunRepository] and [MetadataRepository].
//
// The last sync time is the finish time of the newest Completed run; failed runs
// do not count. Recording a Completed run resets the pending counter.
type HistoryAdapter struct {
	runs *SyncRunRepository
	meta *MetadataRepository
}

// NewHistoryAdapter creates a new HistoryAdapter with the given repositories
func NewHistoryAdapter(runs *SyncRunRepository, meta *MetadataRepository) *HistoryAdapter {
	return &HistoryAdapter{runs: runs, meta: meta}
}

// SyncMetadata reports the last successful sync and the pending item count.
func (a *HistoryAdapter) SyncMetadata(ctx context.Context) (models.SyncMetadata, error) {
	var meta models.SyncMetadata

	last, err := a.runs.LastSuccessful(ctx)
	if err != nil {
		return meta, fmt.Errorf("failed to load last sync: %w", err)
	}
	if last != nil {
		finished := last.FinishedAt
		meta.LastSyncAt = &finished
	}

	if meta.PendingItems, err = a.meta.Pending(ctx); err != nil {
		return meta, err
	}
	return meta, nil
}

// RecordRun stores a terminal outcome.
func (a *HistoryAdapter) RecordRun(ctx context.Context, run models.SyncRun) error {
	if err := a.runs.Create(ctx, &run); err != nil {
		return err
	}
	if run.Phase == models.PhaseCompleted {
		return a.meta.ResetPending(ctx)
	}
	return nil
}

// History returns up to limit recent runs, newest first.
func (a *HistoryAdapter) History(ctx context.Context, limit int) ([]models.SyncRun, error) {
	return a.runs.List(ctx, limit)
}

// AddPending records n items observed upstream and returns the new pending count.
func (a *HistoryAdapter) AddPending(ctx context.Context, n int) (int, error) {
	if err := a.meta.AddPending(ctx, n); err != nil {
		return 0, err
	}
	return a.meta.Pending(ctx)
}
