package tasks

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/inboxsync/internal/metrics"
	"github.com/desertthunder/inboxsync/internal/models"
	"github.com/desertthunder/inboxsync/internal/scheduler"
	"github.com/desertthunder/inboxsync/internal/services"
	"github.com/desertthunder/inboxsync/internal/shared"
	"github.com/desertthunder/inboxsync/internal/store"
)

const (
	DefaultPollInterval   = time.Second
	DefaultMaxAttempts    = 180
	DefaultRequestTimeout = 10 * time.Second
)

// Poller tracks one dispatched job at a time by querying its progress at a
// fixed cadence.
//
// Every tick checks that its handle is still the active one before querying,
// and every write goes through [store.StatusStore.UpdateIfHandle], so a poller
// for an older job never mutates the store.
type Poller struct {
	executor       services.Executor
	store          *store.StatusStore
	sched          scheduler.Scheduler
	interval       time.Duration
	maxAttempts    int
	requestTimeout time.Duration
	lifetime       context.Context
	onTerminal     func(Outcome)
	metrics        *metrics.SyncMetrics
	logger         *log.Logger

	mu      sync.Mutex
	current *pollJob
}

type pollJob struct {
	run      RunInfo
	ctx      context.Context
	cancel   context.CancelFunc
	stop     func() bool
	attempts int
	state    PollState
	timer    scheduler.Timer
	logger   *log.Logger
}

// Arm starts polling run.Handle, replacing any previous job. The first query
// happens one interval from now. Arm never touches the store, so it may be
// called while the store lock is held.
//
// Queries run on a context detached from ctx's cancellation but bound to the
// poller's lifetime, so a launch request ending does not stop tracking.
func (p *Poller) Arm(ctx context.Context, run RunInfo) {
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	job := &pollJob{
		run:    run,
		ctx:    jobCtx,
		cancel: cancel,
		stop:   context.AfterFunc(p.lifetime, cancel),
		state:  PollArmed,
		logger: shared.WithLogger(p.logger, "run", run.ID, "handle", run.Handle),
	}

	p.mu.Lock()
	prev := p.current
	p.current = job
	job.timer = p.sched.AfterFunc(p.interval, func() { p.tick(job) })
	p.mu.Unlock()

	if prev != nil {
		p.release(prev, PollSuperseded)
	}
	job.logger.Debug("poller armed", "interval", p.interval, "max_attempts", p.maxAttempts)
}

// Cancel stops the current job, if any.
func (p *Poller) Cancel() {
	p.mu.Lock()
	job := p.current
	p.mu.Unlock()

	if job != nil {
		p.release(job, PollStopped)
	}
}

// State returns the state and attempt count of the most recently armed job.
func (p *Poller) State() (PollState, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return PollIdle, 0
	}
	return p.current.state, p.current.attempts
}

func (p *Poller) tick(job *pollJob) {
	if !p.live(job) {
		return
	}
	if job.ctx.Err() != nil {
		p.release(job, PollStopped)
		return
	}

	snap := p.store.Snapshot()
	if snap.Phase != models.PhaseSyncing || snap.ActiveHandle != job.run.Handle {
		job.logger.Debug("stopping poller", "reason", shared.ErrSuperseded)
		p.release(job, PollSuperseded)
		return
	}

	p.setState(job, Polling)
	qctx, cancel := context.WithTimeout(job.ctx, p.requestTimeout)
	resp, err := p.executor.GetSyncProgress(qctx, job.run.Handle)
	cancel()

	p.mu.Lock()
	job.attempts++
	attempts := job.attempts
	p.mu.Unlock()

	switch {
	case err != nil && errors.Is(err, shared.ErrJobNotFound):
		p.metrics.RecordPoll(metrics.PollError)
		p.terminate(job, PollDone, func(c *models.SyncContext) {
			c.Phase = models.PhaseFailed
			c.ErrorMessage = err.Error()
		})

	case err != nil:
		if job.ctx.Err() != nil {
			p.release(job, PollStopped)
			return
		}
		p.metrics.RecordPoll(metrics.PollError)
		job.logger.Warn("progress query failed", "attempt", attempts, "error", err)
		if attempts >= p.maxAttempts {
			p.timeout(job, attempts, nil)
			return
		}
		if !p.update(job, func(c *models.SyncContext) {
			c.LastPollError = err.Error()
			c.Attempts = attempts
		}) {
			return
		}
		p.schedule(job)

	case resp.IsRunning:
		p.metrics.RecordPoll(metrics.PollRunning)
		progress := func(c *models.SyncContext) {
			c.ProgressPercent = runningPercent(resp.Progress)
			c.Stats = resp.Stats
			c.LastPollError = ""
			c.Attempts = attempts
		}
		if attempts >= p.maxAttempts {
			p.timeout(job, attempts, progress)
			return
		}
		if !p.update(job, progress) {
			return
		}
		p.schedule(job)

	default:
		p.metrics.RecordPoll(metrics.PollDone)
		p.terminate(job, PollDone, func(c *models.SyncContext) {
			c.Stats = resp.Stats
			c.Attempts = attempts
			c.ProgressPercent = 100
			if msg := resp.ErrorMessage(); msg != "" {
				c.Phase = models.PhaseFailed
				c.ErrorMessage = msg
			} else {
				c.Phase = models.PhaseCompleted
			}
		})
	}
}

// timeout fails the job after applying last, the final poll's own update, if any.
func (p *Poller) timeout(job *pollJob, attempts int, last func(*models.SyncContext)) {
	err := fmt.Errorf("%w: sync job %s still running after %d attempts", shared.ErrTimeout, job.run.Handle, attempts)
	job.logger.Error("sync timed out", "attempts", attempts)
	p.terminate(job, PollTimedOut, func(c *models.SyncContext) {
		if last != nil {
			last(c)
		}
		c.Phase = models.PhaseFailed
		c.ErrorMessage = err.Error()
		c.Attempts = attempts
	})
}

// update applies a non-terminal change. It reports false when the job was superseded.
func (p *Poller) update(job *pollJob, fn func(*models.SyncContext)) bool {
	if _, ok := p.store.UpdateIfHandle(job.run.Handle, fn); !ok {
		job.logger.Debug("dropping progress", "reason", shared.ErrSuperseded)
		p.release(job, PollSuperseded)
		return false
	}
	return true
}

func (p *Poller) terminate(job *pollJob, state PollState, fn func(*models.SyncContext)) {
	snap, ok := p.store.UpdateIfHandle(job.run.Handle, fn)
	if !ok {
		job.logger.Debug("dropping terminal result", "reason", shared.ErrSuperseded)
		p.release(job, PollSuperseded)
		return
	}

	job.logger.Info("sync finished", "phase", snap.Phase, "stats", snap.Stats, "attempts", snap.Attempts)
	p.release(job, state)
	if p.onTerminal != nil {
		p.onTerminal(Outcome{Run: job.run, Context: snap})
	}
}

func (p *Poller) schedule(job *pollJob) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != job || job.state.Finished() {
		return
	}
	job.state = PollArmed
	job.timer = p.sched.AfterFunc(p.interval, func() { p.tick(job) })
}

func (p *Poller) live(job *pollJob) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current == job && !job.state.Finished()
}

func (p *Poller) setState(job *pollJob, s PollState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	job.state = s
}

// release moves job to a finished state and frees its timer and context.
func (p *Poller) release(job *pollJob, s PollState) {
	p.mu.Lock()
	if job.state.Finished() {
		p.mu.Unlock()
		return
	}
	job.state = s
	timer := job.timer
	p.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	job.stop()
	job.cancel()
}

// runningPercent maps executor progress onto [0, 99]; 100 is reserved for a finished job.
func runningPercent(progress float64) int {
	switch {
	case math.IsNaN(progress) || progress <= 0:
		return 0
	case progress >= 99:
		return 99
	default:
		return int(math.Round(progress))
	}
}
