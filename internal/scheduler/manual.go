package scheduler

import (
	"sort"
	"sync"
	"time"
)

type manualTimer struct {
	s       *Manual
	at      time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Manual is a deterministic [Scheduler]. Callbacks fire only from [Manual.Advance]
// or [Manual.RunNext], on the calling goroutine, in due-time then scheduling order.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

// NewManual creates a [Manual] scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the scheduler's current time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{s: m, at: m.now.Add(d), seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compact()
	return len(m.timers)
}

// Advance moves the clock forward by d, firing every timer that falls due,
// including timers scheduled by callbacks during the advance.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	until := m.now.Add(d)
	m.mu.Unlock()

	for {
		t := m.pop(until)
		if t == nil {
			break
		}
		t.fn()
	}

	m.mu.Lock()
	if m.now.Before(until) {
		m.now = until
	}
	m.mu.Unlock()
}

// RunNext jumps the clock to the earliest pending timer and fires it.
// It reports false when nothing is pending.
func (m *Manual) RunNext() bool {
	t := m.pop(time.Time{})
	if t == nil {
		return false
	}
	t.fn()
	return true
}

// pop removes and returns the earliest live timer due by until. A zero until
// accepts any timer.
func (m *Manual) pop(until time.Time) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compact()
	if len(m.timers) == 0 {
		return nil
	}
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].at.Equal(m.timers[j].at) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].at.Before(m.timers[j].at)
	})
	t := m.timers[0]
	if !until.IsZero() && t.at.After(until) {
		return nil
	}
	m.timers = m.timers[1:]
	t.fired = true
	if t.at.After(m.now) {
		m.now = t.at
	}
	return t
}

func (m *Manual) compact() {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	m.timers = live
}
