package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/inboxsync/internal/models"
	"github.com/desertthunder/inboxsync/internal/services"
	"github.com/desertthunder/inboxsync/internal/shared"
)

// RequestSync asks the executor for an untracked sync over kind's window and
// returns the executor's message.
//
// It never touches the store or the poller, and may run alongside a tracked job.
// Calls beyond the configured rate fail with [shared.ErrRateLimited].
func (o *Orchestrator) RequestSync(ctx context.Context, kind models.SyncKind) (string, error) {
	if _, err := models.ParseSyncKind(string(kind)); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	if !o.limiter.Allow() {
		o.metrics.RecordRequest(kind, false)
		return "", fmt.Errorf("%w: retry later", shared.ErrRateLimited)
	}

	resp, err := o.executor.RequestSync(ctx, kind)
	o.metrics.RecordRequest(kind, err == nil)
	if err != nil {
		return "", fmt.Errorf("failed to request %s sync: %w", kind, err)
	}

	o.logger.Info("sync requested", "kind", kind, "message", resp.Message)
	return resp.Message, nil
}

// LatestKnownDataTimestamp reports the freshest item the executor holds.
// A nil Time means the executor has no data yet.
func (o *Orchestrator) LatestKnownDataTimestamp(ctx context.Context) (*models.LatestEmail, error) {
	resp, err := o.executor.GetLatestEmailTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest email: %w", err)
	}
	return services.ParseLatestEmail(resp)
}
