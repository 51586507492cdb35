package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/inboxsync/internal/metrics"
	"github.com/desertthunder/inboxsync/internal/models"
	"github.com/desertthunder/inboxsync/internal/services"
	"github.com/desertthunder/inboxsync/internal/shared"
	"github.com/desertthunder/inboxsync/internal/store"
)

// LaunchResult is either [Inline] or [Dispatched].
type LaunchResult interface {
	launchResult()
}

// Inline is a job the executor finished within the start request.
type Inline struct {
	Stats models.SyncStats
}

// Dispatched is a job the executor continues in the background.
type Dispatched struct {
	Handle models.TaskHandle
	Stats  models.SyncStats
}

func (Inline) launchResult()     {}
func (Dispatched) launchResult() {}

// Launcher starts tracked sync jobs and records the immediate result in the store.
type Launcher struct {
	executor         services.Executor
	store            *store.StatusStore
	poller           *Poller
	preferBackground bool
	onTerminal       func(Outcome)
	metrics          *metrics.SyncMetrics
	logger           *log.Logger
	now              func() time.Time
}

// Launch starts a job. A first sync is always a full, background sync; other
// syncs run in the background only when configured to.
//
// On request failure the store moves to Failed and the error is returned.
// Results from a launch superseded during the round-trip are discarded.
func (l *Launcher) Launch(ctx context.Context, isFirstSync bool) (LaunchResult, error) {
	gen := l.store.Begin()
	run := RunInfo{
		ID:         shared.GenerateID(),
		FullSync:   isFirstSync,
		Background: isFirstSync || l.preferBackground,
		StartedAt:  l.now(),
	}
	logger := shared.WithLogger(l.logger, "run", run.ID)
	logger.Info("starting sync", "full", run.FullSync, "background", run.Background)

	resp, err := l.executor.StartSync(ctx, run.FullSync, run.Background)
	if err != nil {
		l.metrics.RecordLaunch(metrics.LaunchError)
		if !errors.Is(err, shared.ErrTransport) {
			err = fmt.Errorf("%w: %w", shared.ErrTransport, err)
		}
		l.fail(gen, run, fmt.Sprintf("failed to start sync: %v", err), logger)
		return nil, err
	}

	if resp.InProgress && resp.TaskID == "" {
		l.metrics.RecordLaunch(metrics.LaunchError)
		err := fmt.Errorf("%w: in_progress without task_id", shared.ErrProtocol)
		l.fail(gen, run, err.Error(), logger)
		return nil, err
	}

	if resp.InProgress {
		run.Handle = models.TaskHandle(resp.TaskID)
		result := Dispatched{Handle: run.Handle, Stats: resp.Stats}
		l.metrics.RecordLaunch(metrics.LaunchDispatched)

		// Arming under the store lock orders it against any newer Begin, so the
		// armed job is always the one whose handle the store holds.
		if _, ok := l.store.UpdateIfGeneration(gen, func(c *models.SyncContext) {
			c.Stats = resp.Stats
			c.ActiveHandle = run.Handle
			l.poller.Arm(ctx, run)
		}); !ok {
			logger.Debug("dropping dispatched result", "handle", run.Handle, "reason", shared.ErrSuperseded)
			return result, nil
		}

		logger.Info("sync dispatched", "handle", run.Handle)
		return result, nil
	}

	l.metrics.RecordLaunch(metrics.LaunchInline)
	snap, ok := l.store.UpdateIfGeneration(gen, func(c *models.SyncContext) {
		c.Stats = resp.Stats
		c.Phase = models.PhaseCompleted
	})
	if !ok {
		logger.Debug("dropping inline result", "reason", shared.ErrSuperseded)
		return Inline{Stats: resp.Stats}, nil
	}

	logger.Info("sync completed inline", "stats", resp.Stats)
	l.finish(Outcome{Run: run, Context: snap})
	return Inline{Stats: resp.Stats}, nil
}

func (l *Launcher) fail(gen uint64, run RunInfo, msg string, logger *log.Logger) {
	snap, ok := l.store.UpdateIfGeneration(gen, func(c *models.SyncContext) {
		c.Phase = models.PhaseFailed
		c.ErrorMessage = msg
	})
	if !ok {
		logger.Debug("dropping launch failure", "reason", shared.ErrSuperseded)
		return
	}
	logger.Error("sync failed to start", "error", msg)
	l.finish(Outcome{Run: run, Context: snap})
}

func (l *Launcher) finish(o Outcome) {
	if l.onTerminal != nil {
		l.onTerminal(o)
	}
}
