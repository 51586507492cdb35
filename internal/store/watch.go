package store

import (
	"sync"

	"github.com/desertthunder/inboxsync/internal/models"
)

type watcher struct {
	mu     sync.Mutex
	ch     chan models.SyncContext
	closed bool
}

func (w *watcher) send(c models.SyncContext) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.ch <- c:
	default:
		// Slow reader, drop this update
	}
}

func (w *watcher) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.ch)
	}
}

// Watch returns a channel that receives the current context followed by every
// subsequent change, and a stop function that closes the channel.
//
// Sends never block the writer; updates are dropped while the buffer is full.
func (s *StatusStore) Watch(buffer int) (<-chan models.SyncContext, func()) {
	if buffer < 1 {
		buffer = 1
	}
	w := &watcher{ch: make(chan models.SyncContext, buffer)}

	// Hold notifyMu so no update slips between the initial snapshot and subscription.
	s.notifyMu.Lock()
	w.send(s.Snapshot())
	unsubscribe := s.Subscribe(w.send)
	s.notifyMu.Unlock()

	return w.ch, func() {
		unsubscribe()
		w.close()
	}
}
