package models

import (
	"fmt"
	"time"
)

// SyncPhase is the authoritative lifecycle flag of the tracked sync job.
type SyncPhase string

const (
	PhaseIdle      SyncPhase = "idle"
	PhaseSyncing   SyncPhase = "syncing"
	PhaseCompleted SyncPhase = "completed"
	PhaseFailed    SyncPhase = "failed"
)

func (p SyncPhase) String() string { return string(p) }

// Terminal reports whether no further transitions are expected without a new trigger.
func (p SyncPhase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// SyncStats is an additive record of work performed by the executor.
type SyncStats struct {
	Processed int `json:"processed"`
	Added     int `json:"added"`
	Updated   int `json:"updated"`
}

// Add returns the field-wise sum of s and o.
func (s SyncStats) Add(o SyncStats) SyncStats {
	return SyncStats{
		Processed: s.Processed + o.Processed,
		Added:     s.Added + o.Added,
		Updated:   s.Updated + o.Updated,
	}
}

func (s SyncStats) String() string {
	return fmt.Sprintf("%d processed, %d added, %d updated", s.Processed, s.Added, s.Updated)
}

// TaskHandle identifies a dispatched background job. The zero value means no job.
type TaskHandle string

func (h TaskHandle) String() string { return string(h) }

// Empty reports whether h refers to no job.
func (h TaskHandle) Empty() bool { return h == "" }

// SyncContext is the snapshot exposed to consumers.
//
// ErrorMessage is set iff Phase is Failed, ActiveHandle is set iff Phase is
// Syncing in background mode. LastPollError holds a transient poll failure that
// did not end the job.
type SyncContext struct {
	Phase           SyncPhase  `json:"phase"`
	Stats           SyncStats  `json:"stats"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	ProgressPercent int        `json:"progress_percent"`
	ActiveHandle    TaskHandle `json:"active_handle,omitempty"`
	LastPollError   string     `json:"last_poll_error,omitempty"`
	Attempts        int        `json:"attempts"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewSyncContext returns the idle context a session starts with.
func NewSyncContext() SyncContext {
	return SyncContext{Phase: PhaseIdle}
}

// Validate checks the cross-field invariants of c.
func (c SyncContext) Validate() error {
	switch c.Phase {
	case PhaseIdle, PhaseSyncing, PhaseCompleted, PhaseFailed:
	default:
		return fmt.Errorf("unknown phase %q", c.Phase)
	}
	if (c.ErrorMessage != "") != (c.Phase == PhaseFailed) {
		return fmt.Errorf("error message %q inconsistent with phase %s", c.ErrorMessage, c.Phase)
	}
	if !c.ActiveHandle.Empty() && c.Phase != PhaseSyncing {
		return fmt.Errorf("handle %s present in phase %s", c.ActiveHandle, c.Phase)
	}
	if c.Phase == PhaseCompleted && c.ProgressPercent != 100 {
		return fmt.Errorf("completed with progress %d", c.ProgressPercent)
	}
	if c.Phase == PhaseSyncing && c.ProgressPercent >= 100 {
		return fmt.Errorf("syncing with progress %d", c.ProgressPercent)
	}
	if c.ProgressPercent < 0 || c.ProgressPercent > 100 {
		return fmt.Errorf("progress %d out of range", c.ProgressPercent)
	}
	return nil
}

// TriggerReason is why a sync check was requested.
type TriggerReason string

const (
	TriggerPageVisit TriggerReason = "page-visit"
	TriggerScheduled TriggerReason = "scheduled"
	TriggerManual    TriggerReason = "manual"
)

// ParseTriggerReason maps user input onto a [TriggerReason].
func ParseTriggerReason(s string) (TriggerReason, error) {
	switch r := TriggerReason(s); r {
	case TriggerPageVisit, TriggerScheduled, TriggerManual:
		return r, nil
	default:
		return "", fmt.Errorf("unknown trigger reason %q (want page-visit, scheduled or manual)", s)
	}
}

// SyncReason explains a [SyncDecision].
type SyncReason string

const (
	ReasonNone              SyncReason = ""
	ReasonFirstSync         SyncReason = "firstSync"
	ReasonThresholdExceeded SyncReason = "thresholdExceeded"
	ReasonScheduled         SyncReason = "scheduled"
	ReasonManual            SyncReason = "manual"
)

// SyncDecision is the output of the trigger policy.
type SyncDecision struct {
	NeedsSync   bool       `json:"needs_sync"`
	Reason      SyncReason `json:"reason,omitempty"`
	IsFirstSync bool       `json:"is_first_sync"`
}

// SyncMetadata is what the trigger policy knows about previous syncs.
type SyncMetadata struct {
	LastSyncAt   *time.Time
	PendingItems int
}

// SyncKind selects the window of a decoupled sync request.
type SyncKind string

const (
	KindToday SyncKind = "today"
	KindWeek  SyncKind = "week"
	KindMonth SyncKind = "month"
)

// ParseSyncKind maps user input onto a [SyncKind].
func ParseSyncKind(s string) (SyncKind, error) {
	switch k := SyncKind(s); k {
	case KindToday, KindWeek, KindMonth:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sync kind %q (want today, week or month)", s)
	}
}

// LatestEmail is the freshest data point known to the executor.
type LatestEmail struct {
	Time    *time.Time `json:"time,omitempty"`
	Subject string     `json:"subject,omitempty"`
	Sender  string     `json:"sender,omitempty"`
	Message string     `json:"message,omitempty"`
}

// SyncRun is one terminal job outcome recorded in sync history.
type SyncRun struct {
	ID           string     `json:"id"`
	Sequence     int        `json:"sequence"`
	Handle       TaskHandle `json:"handle,omitempty"`
	FullSync     bool       `json:"full_sync"`
	Background   bool       `json:"background"`
	Phase        SyncPhase  `json:"phase"`
	Stats        SyncStats  `json:"stats"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   time.Time  `json:"finished_at"`
}

// Duration returns how long the run took.
func (r SyncRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
