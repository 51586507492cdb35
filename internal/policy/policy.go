// Package policy decides whether a sync job should be started.
//
// Decisions are pure: the same metadata, trigger and time always produce the
// same [models.SyncDecision].
package policy

import (
	"time"

	"github.com/desertthunder/inboxsync/internal/models"
	"github.com/desertthunder/inboxsync/internal/shared"
)

// Policy holds the thresholds a [Policy.ShouldSync] decision is made against.
// A zero threshold disables its rule.
type Policy struct {
	Threshold         time.Duration // max age of the last sync
	PendingThreshold  int           // max items waiting upstream
	ScheduledInterval time.Duration // min age for a scheduled trigger to fire
}

// New builds a [Policy] from the sync configuration.
func New(cfg shared.SyncConfig) Policy {
	return Policy{
		Threshold:         cfg.Threshold.Duration,
		PendingThreshold:  cfg.PendingThreshold,
		ScheduledInterval: cfg.ScheduledInterval.Duration,
	}
}

// ShouldSync evaluates the trigger rules in order:
//  1. no prior sync
//  2. last sync older than Threshold, or more than PendingThreshold pending items
//  3. manual trigger
//  4. scheduled trigger with the last sync at least ScheduledInterval old
func (p Policy) ShouldSync(lastSync *time.Time, pending int, trigger models.TriggerReason, now time.Time) models.SyncDecision {
	if lastSync == nil {
		return models.SyncDecision{NeedsSync: true, Reason: models.ReasonFirstSync, IsFirstSync: true}
	}

	elapsed := now.Sub(*lastSync)
	if (p.Threshold > 0 && elapsed > p.Threshold) || (p.PendingThreshold > 0 && pending > p.PendingThreshold) {
		return models.SyncDecision{NeedsSync: true, Reason: models.ReasonThresholdExceeded}
	}

	switch trigger {
	case models.TriggerManual:
		return models.SyncDecision{NeedsSync: true, Reason: models.ReasonManual}
	case models.TriggerScheduled:
		if p.ScheduledInterval > 0 && elapsed >= p.ScheduledInterval {
			return models.SyncDecision{NeedsSync: true, Reason: models.ReasonScheduled}
		}
	}

	return models.SyncDecision{}
}

// Decide is [Policy.ShouldSync] over stored [models.SyncMetadata].
func (p Policy) Decide(meta models.SyncMetadata, trigger models.TriggerReason, now time.Time) models.SyncDecision {
	return p.ShouldSync(meta.LastSyncAt, meta.PendingItems, trigger, now)
}
