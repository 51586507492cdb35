package store

import (
	"sync"
	"time"

	"github.com/desertthunder/inboxsync/internal/models"
	"github.com/desertthunder/inboxsync/internal/shared"
)

const defaultFailureMessage = "sync failed"

// Observer receives the context after each mutation.
//
// Observers run while the store serialises notifications, so they may read the
// store but must not mutate it.
type Observer func(models.SyncContext)

type observerEntry struct {
	id int
	fn Observer
}

// StatusStore is the single shared mutable cell of the orchestration core.
type StatusStore struct {
	notifyMu sync.Mutex // orders notifications across writers
	mu       sync.RWMutex

	state      models.SyncContext
	generation uint64
	observers  []observerEntry
	nextID     int
	now        func() time.Time
}

// New creates an idle [StatusStore].
func New() *StatusStore {
	return &StatusStore{state: models.NewSyncContext(), now: time.Now}
}

// NewWithClock creates an idle [StatusStore] stamping updates with now.
func NewWithClock(now func() time.Time) *StatusStore {
	s := New()
	if now != nil {
		s.now = now
	}
	return s
}

// Snapshot returns a copy of the current context.
func (s *StatusStore) Snapshot() models.SyncContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Handle returns the active task handle, empty when none.
func (s *StatusStore) Handle() models.TaskHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ActiveHandle
}

// Generation returns the current launch generation.
func (s *StatusStore) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Subscribe registers o and returns a function that removes it.
func (s *StatusStore) Subscribe(o Observer) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers = append(s.observers, observerEntry{id: id, fn: o})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, e := range s.observers {
				if e.id == id {
					s.observers = append(s.observers[:i], s.observers[i+1:]...)
					break
				}
			}
		})
	}
}

// SetPhase sets the lifecycle phase.
func (s *StatusStore) SetPhase(phase models.SyncPhase) {
	s.mutate(func(c *models.SyncContext) bool {
		c.Phase = phase
		return true
	})
}

// SetStats replaces the stats wholesale.
func (s *StatusStore) SetStats(stats models.SyncStats) {
	s.mutate(func(c *models.SyncContext) bool {
		c.Stats = stats
		return true
	})
}

// SetProgress sets the progress percentage, clamped to [0, 100].
func (s *StatusStore) SetProgress(percent int) {
	s.mutate(func(c *models.SyncContext) bool {
		c.ProgressPercent = percent
		return true
	})
}

// SetError marks the job Failed with message.
func (s *StatusStore) SetError(message string) {
	s.mutate(func(c *models.SyncContext) bool {
		c.Phase = models.PhaseFailed
		c.ErrorMessage = message
		return true
	})
}

// SetHandle sets the active handle. Outside the Syncing phase the handle is cleared.
func (s *StatusStore) SetHandle(handle models.TaskHandle) {
	s.mutate(func(c *models.SyncContext) bool {
		c.ActiveHandle = handle
		return true
	})
}

// Reset returns the store to Idle and invalidates every live writer.
func (s *StatusStore) Reset() {
	s.mutate(func(c *models.SyncContext) bool {
		s.generation++
		*c = models.NewSyncContext()
		return true
	})
}

// Begin resets the store to Syncing at 0% with no handle and returns the new generation.
func (s *StatusStore) Begin() uint64 {
	var gen uint64
	s.mutate(func(c *models.SyncContext) bool {
		s.generation++
		gen = s.generation
		*c = models.SyncContext{Phase: models.PhaseSyncing}
		return true
	})
	return gen
}

// UpdateIfGeneration applies fn only if gen is still the current generation.
// It returns the resulting context and whether fn was applied.
func (s *StatusStore) UpdateIfGeneration(gen uint64, fn func(*models.SyncContext)) (models.SyncContext, bool) {
	return s.mutate(func(c *models.SyncContext) bool {
		if s.generation != gen {
			return false
		}
		fn(c)
		return true
	})
}

// UpdateIfHandle applies fn only while handle is the active handle of a Syncing job.
func (s *StatusStore) UpdateIfHandle(handle models.TaskHandle, fn func(*models.SyncContext)) (models.SyncContext, bool) {
	return s.mutate(func(c *models.SyncContext) bool {
		if handle.Empty() || c.Phase != models.PhaseSyncing || c.ActiveHandle != handle {
			return false
		}
		fn(c)
		return true
	})
}

// mutate applies fn under the state lock and, when fn reports a change,
// notifies observers with the normalised snapshot.
func (s *StatusStore) mutate(fn func(*models.SyncContext) bool) (models.SyncContext, bool) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if !fn(&s.state) {
		snap := s.state
		s.mu.Unlock()
		return snap, false
	}
	normalize(&s.state)
	s.state.UpdatedAt = s.now()
	snap := s.state
	observers := make([]observerEntry, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, o := range observers {
		o.fn(snap)
	}
	return snap, true
}

func normalize(c *models.SyncContext) {
	switch c.Phase {
	case models.PhaseIdle, models.PhaseSyncing, models.PhaseCompleted, models.PhaseFailed:
	default:
		c.Phase = models.PhaseIdle
	}

	if c.Phase == models.PhaseFailed {
		if c.ErrorMessage == "" {
			c.ErrorMessage = defaultFailureMessage
		}
	} else {
		c.ErrorMessage = ""
	}

	if c.Phase != models.PhaseSyncing {
		c.ActiveHandle = ""
		c.LastPollError = ""
	}

	c.ProgressPercent = shared.ClampPercent(c.ProgressPercent)
	switch c.Phase {
	case models.PhaseCompleted:
		c.ProgressPercent = 100
	case models.PhaseSyncing:
		if c.ProgressPercent > 99 {
			c.ProgressPercent = 99
		}
	}
}
