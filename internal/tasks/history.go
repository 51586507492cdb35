package tasks

import (
	"context"
	"sync"

	"github.com/desertthunder/inboxsync/internal/models"
)

// MemoryHistory is an in-process [MetadataSource] and [RunRecorder] for sessions
// without a database.
type MemoryHistory struct {
	mu   sync.Mutex
	meta models.SyncMetadata
	runs []models.SyncRun
}

// NewMemoryHistory creates an empty [MemoryHistory].
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{}
}

func (h *MemoryHistory) SyncMetadata(context.Context) (models.SyncMetadata, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	meta := h.meta
	if meta.LastSyncAt != nil {
		last := *meta.LastSyncAt
		meta.LastSyncAt = &last
	}
	return meta, nil
}

func (h *MemoryHistory) RecordRun(_ context.Context, run models.SyncRun) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = append(h.runs, run)
	if run.Phase == models.PhaseCompleted {
		finished := run.FinishedAt
		h.meta.LastSyncAt = &finished
		h.meta.PendingItems = 0
	}
	return nil
}

// AddPending counts n items seen upstream.
func (h *MemoryHistory) AddPending(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.meta.PendingItems += n
}

// Runs returns the recorded runs, oldest first.
func (h *MemoryHistory) Runs() []models.SyncRun {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.SyncRun(nil), h.runs...)
}

// History returns up to limit runs, newest first. A non-positive limit returns all of them.
func (h *MemoryHistory) History(_ context.Context, limit int) ([]models.SyncRun, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.runs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.SyncRun, 0, n)
	for i := len(h.runs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, h.runs[i])
	}
	return out, nil
}
