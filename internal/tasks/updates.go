package tasks

import (
	"time"

	"github.com/desertthunder/inboxsync/internal/models"
)

// PollState is the lifecycle of a single poller.
type PollState int

const (
	PollIdle PollState = iota
	PollArmed
	Polling
	PollDone
	PollTimedOut
	PollSuperseded
	PollStopped
)

func (s PollState) String() string {
	switch s {
	case PollIdle:
		return "idle"
	case PollArmed:
		return "armed"
	case Polling:
		return "polling"
	case PollDone:
		return "done"
	case PollTimedOut:
		return "timed_out"
	case PollSuperseded:
		return "superseded"
	case PollStopped:
		return "stopped"
	default:
		return ""
	}
}

// Finished reports whether the poller will not tick again.
func (s PollState) Finished() bool {
	return s >= PollDone
}

// RunInfo describes a launched job.
type RunInfo struct {
	ID         string
	Handle     models.TaskHandle
	FullSync   bool
	Background bool
	StartedAt  time.Time
}

// Outcome is a job that reached a terminal phase.
type Outcome struct {
	Run     RunInfo
	Context models.SyncContext
}

// SyncRun converts o into a history record finished at the given time.
func (o Outcome) SyncRun(finished time.Time) models.SyncRun {
	return models.SyncRun{
		ID:           o.Run.ID,
		Handle:       o.Run.Handle,
		FullSync:     o.Run.FullSync,
		Background:   o.Run.Background,
		Phase:        o.Context.Phase,
		Stats:        o.Context.Stats,
		ErrorMessage: o.Context.ErrorMessage,
		StartedAt:    o.Run.StartedAt,
		FinishedAt:   finished,
	}
}
