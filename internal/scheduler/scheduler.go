// Package scheduler runs delayed callbacks for the orchestration core.
//
// Production code uses [Loop], a single event-loop goroutine on which callbacks
// never overlap. Tests use [Manual], which only fires callbacks when the test
// advances its clock.
package scheduler

import (
	"sync"
	"time"
)

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call
	// stopped the timer before it fired.
	Stop() bool
}

// Scheduler runs fn once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// Loop is a serial event loop. Timer expiry posts the callback onto the loop
// goroutine, so callbacks scheduled through one Loop run one at a time.
type Loop struct {
	events chan func()
	done   chan struct{}
	exited chan struct{}
	once   sync.Once
}

// NewLoop starts a [Loop] whose queue holds up to buffer pending callbacks.
func NewLoop(buffer int) *Loop {
	if buffer < 1 {
		buffer = 1
	}
	l := &Loop{
		events: make(chan func(), buffer),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.exited)
	for {
		select {
		case fn := <-l.events:
			fn()
		case <-l.done:
			return
		}
	}
}

// AfterFunc schedules fn to run on the loop after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, func() { l.Post(fn) })
}

// Post queues fn to run on the loop. It reports false if the loop is closed.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.events <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Close stops the loop and waits for a running callback to return.
// Queued callbacks are discarded.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
	<-l.exited
}
