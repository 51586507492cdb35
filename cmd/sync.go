package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/inboxsync/internal/formatter"
	"github.com/desertthunder/inboxsync/internal/models"
	"github.com/desertthunder/inboxsync/internal/shared"
	"github.com/desertthunder/inboxsync/internal/tasks"
)

// syncReport is the JSON shape of check and trigger results.
type syncReport struct {
	Decision *models.SyncDecision `json:"decision,omitempty"`
	Status   models.SyncContext   `json:"status"`
}

// SyncCheck runs the trigger policy and, when a sync is due, launches it and
// waits for it unless --detach is set.
func (r *Runner) SyncCheck(ctx context.Context, cmd *cli.Command) error {
	trigger, err := models.ParseTriggerReason(cmd.String("trigger"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	s, err := r.openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()

	decision, err := s.orch.CheckAndSync(ctx, trigger)
	if err != nil {
		return err
	}

	status := s.orch.Snapshot()
	if decision.NeedsSync && !cmd.Bool("detach") {
		if status, err = s.orch.Wait(ctx); err != nil {
			return err
		}
	}

	if err := r.reportSync(cmd.Bool("json"), &decision, status); err != nil {
		return err
	}
	return tasks.TerminalError(status)
}

// SyncTrigger launches a sync regardless of policy.
func (r *Runner) SyncTrigger(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.orch.TriggerSync(ctx, cmd.Bool("full")); err != nil {
		return err
	}

	status := s.orch.Snapshot()
	if !cmd.Bool("detach") {
		if status, err = s.orch.Wait(ctx); err != nil {
			return err
		}
	}

	if err := r.reportSync(cmd.Bool("json"), nil, status); err != nil {
		return err
	}
	return tasks.TerminalError(status)
}

// SyncRequest fires an untracked sync of a recent window.
func (r *Runner) SyncRequest(ctx context.Context, cmd *cli.Command) error {
	kind, err := models.ParseSyncKind(cmd.String("kind"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	orch, err := r.newOrchestrator(nil, nil)
	if err != nil {
		return err
	}
	defer orch.Close()

	msg, err := orch.RequestSync(ctx, kind)
	if err != nil {
		return err
	}
	if msg == "" {
		msg = fmt.Sprintf("%s sync requested", kind)
	}
	return r.writePlain("✓ %s\n", msg)
}

// SyncLatest prints the newest email the executor knows about.
func (r *Runner) SyncLatest(ctx context.Context, cmd *cli.Command) error {
	orch, err := r.newOrchestrator(nil, nil)
	if err != nil {
		return err
	}
	defer orch.Close()

	latest, err := orch.LatestKnownDataTimestamp(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(latest, true)
	}

	if latest.Time == nil {
		msg := latest.Message
		if msg == "" {
			msg = "No emails synced yet"
		}
		return r.writePlain("%s\n", msg)
	}

	r.writePlain("Latest email: %s\n", latest.Time.Local().Format(time.DateTime))
	if latest.Subject != "" {
		r.writePlain("Subject: %s\n", latest.Subject)
	}
	if latest.Sender != "" {
		r.writePlain("From: %s\n", latest.Sender)
	}
	return nil
}

// SyncHistory lists recorded runs, newest first.
func (r *Runner) SyncHistory(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := historyAdapter(db).History(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(runs, format, path); err != nil {
			return err
		}
		r.logger.Info("history exported", "path", path, "runs", len(runs))
		return r.writePlain("✓ Exported %d runs to %s\n", len(runs), path)
	}

	data, err := formatter.Export(runs, format)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// SyncPending adds to the pending item count the trigger policy reads, then prints it.
func (r *Runner) SyncPending(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	pending, err := historyAdapter(db).AddPending(ctx, int(cmd.Int("add")))
	if err != nil {
		return err
	}

	threshold := r.config.Sync.PendingThreshold
	if threshold > 0 && pending > threshold {
		return r.writePlain("%d items pending (over threshold %d, next check will sync)\n", pending, threshold)
	}
	return r.writePlain("%d items pending\n", pending)
}

func (r *Runner) reportSync(asJSON bool, decision *models.SyncDecision, status models.SyncContext) error {
	if asJSON {
		return r.writeJSON(syncReport{Decision: decision, Status: status}, true)
	}

	if decision != nil {
		if !decision.NeedsSync {
			return r.writePlain("No sync needed\n")
		}
		r.writePlain("Sync triggered (%s)\n", decision.Reason)
	}
	r.writeStatus(status)
	return nil
}

func (r *Runner) writeStatus(c models.SyncContext) {
	r.writePlainHeader("Sync Status")
	r.writePlain("Phase:    %s\n", c.Phase)
	r.writePlain("Progress: %d%%\n", c.ProgressPercent)
	r.writePlain("Stats:    %s\n", c.Stats)
	if !c.ActiveHandle.Empty() {
		r.writePlain("Job:      %s (poll %d)\n", c.ActiveHandle, c.Attempts)
	}
	if c.LastPollError != "" {
		r.writePlain("Warning:  %s\n", c.LastPollError)
	}
	if c.ErrorMessage != "" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", c.ErrorMessage)
	}
}
