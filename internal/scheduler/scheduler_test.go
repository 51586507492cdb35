package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var _ Scheduler = (*Loop)(nil)
var _ Scheduler = (*Manual)(nil)

func TestManual(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("fires only when due", func(t *testing.T) {
		m := NewManual(start)
		var fired int
		m.AfterFunc(time.Second, func() { fired++ })

		m.Advance(999 * time.Millisecond)
		if fired != 0 {
			t.Fatalf("fired early")
		}
		m.Advance(time.Millisecond)
		if fired != 1 {
			t.Errorf("expected 1 fire, got %d", fired)
		}
		if !m.Now().Equal(start.Add(time.Second)) {
			t.Errorf("unexpected clock %v", m.Now())
		}
	})

	t.Run("orders by due time then scheduling order", func(t *testing.T) {
		m := NewManual(start)
		var order []string
		m.AfterFunc(2*time.Second, func() { order = append(order, "c") })
		m.AfterFunc(time.Second, func() { order = append(order, "a") })
		m.AfterFunc(time.Second, func() { order = append(order, "b") })

		m.Advance(5 * time.Second)
		if got := len(order); got != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("callbacks may reschedule during advance", func(t *testing.T) {
		m := NewManual(start)
		var ticks int
		var tick func()
		tick = func() {
			ticks++
			m.AfterFunc(time.Second, tick)
		}
		m.AfterFunc(time.Second, tick)

		m.Advance(5 * time.Second)
		if ticks != 5 {
			t.Errorf("expected 5 ticks, got %d", ticks)
		}
		if m.Pending() != 1 {
			t.Errorf("expected 1 pending timer, got %d", m.Pending())
		}
	})

	t.Run("stop cancels", func(t *testing.T) {
		m := NewManual(start)
		var fired bool
		timer := m.AfterFunc(time.Second, func() { fired = true })
		if !timer.Stop() {
			t.Error("expected Stop to report true")
		}
		if timer.Stop() {
			t.Error("second Stop should report false")
		}
		m.Advance(time.Minute)
		if fired {
			t.Error("stopped timer fired")
		}
		if m.Pending() != 0 {
			t.Errorf("expected no pending timers, got %d", m.Pending())
		}
	})

	t.Run("run next jumps clock", func(t *testing.T) {
		m := NewManual(start)
		m.AfterFunc(time.Hour, func() {})
		if !m.RunNext() {
			t.Fatal("expected a timer to run")
		}
		if !m.Now().Equal(start.Add(time.Hour)) {
			t.Errorf("unexpected clock %v", m.Now())
		}
		if m.RunNext() {
			t.Error("expected nothing pending")
		}
	})
}

func TestLoop(t *testing.T) {
	t.Run("runs callbacks serially", func(t *testing.T) {
		l := NewLoop(8)
		defer l.Close()

		var running, overlaps int32
		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			l.AfterFunc(time.Millisecond, func() {
				defer wg.Done()
				if atomic.AddInt32(&running, 1) > 1 {
					atomic.AddInt32(&overlaps, 1)
				}
				time.Sleep(100 * time.Microsecond)
				atomic.AddInt32(&running, -1)
			})
		}
		wg.Wait()

		if overlaps != 0 {
			t.Errorf("callbacks overlapped %d times", overlaps)
		}
	})

	t.Run("post after close", func(t *testing.T) {
		l := NewLoop(1)
		l.Close()
		l.Close()
		if l.Post(func() {}) {
			t.Error("expected Post to fail on closed loop")
		}
	})

	t.Run("stop prevents callback", func(t *testing.T) {
		l := NewLoop(1)
		defer l.Close()

		fired := make(chan struct{}, 1)
		timer := l.AfterFunc(50*time.Millisecond, func() { fired <- struct{}{} })
		timer.Stop()

		select {
		case <-fired:
			t.Error("stopped timer fired")
		case <-time.After(100 * time.Millisecond):
		}
	})
}
