package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/desertthunder/inboxsync/internal/metrics"
	"github.com/desertthunder/inboxsync/internal/models"
	"github.com/desertthunder/inboxsync/internal/policy"
	"github.com/desertthunder/inboxsync/internal/scheduler"
	"github.com/desertthunder/inboxsync/internal/services"
	"github.com/desertthunder/inboxsync/internal/shared"
	"github.com/desertthunder/inboxsync/internal/store"
)

const (
	DefaultCheckInterval = 5 * time.Minute
	recordTimeout        = 5 * time.Second
)

// MetadataSource supplies what the trigger policy knows about previous syncs.
type MetadataSource interface {
	SyncMetadata(ctx context.Context) (models.SyncMetadata, error)
}

// RunRecorder persists terminal outcomes.
type RunRecorder interface {
	RecordRun(ctx context.Context, run models.SyncRun) error
}

// Options configures an [Orchestrator]. Only Executor is required.
type Options struct {
	Executor  services.Executor
	Store     *store.StatusStore  // defaults to a fresh idle store
	Policy    policy.Policy       // zero value disables the threshold rules
	Metadata  MetadataSource      // defaults to [MemoryHistory]
	Recorder  RunRecorder         // defaults to Metadata when it also records runs
	Scheduler scheduler.Scheduler // defaults to a [scheduler.Loop] owned by the orchestrator
	Metrics   *metrics.SyncMetrics
	Logger    *log.Logger
	Clock     func() time.Time

	PollInterval     time.Duration
	MaxAttempts      int
	RequestTimeout   time.Duration
	PreferBackground bool
	CheckInterval    time.Duration
	RequestRate      float64 // untracked requests per minute, <= 0 disables throttling
	RequestBurst     int
}

// OptionsFromConfig maps the sync configuration onto [Options].
func OptionsFromConfig(cfg *shared.Config, executor services.Executor) Options {
	return Options{
		Executor:         executor,
		Policy:           policy.New(cfg.Sync),
		PollInterval:     cfg.Sync.PollInterval.Duration,
		MaxAttempts:      cfg.Sync.MaxAttempts,
		RequestTimeout:   cfg.Executor.RequestTimeout.Duration,
		PreferBackground: cfg.Sync.PreferBackground,
		CheckInterval:    cfg.Sync.CheckInterval.Duration,
		RequestRate:      cfg.Sync.RequestRate,
		RequestBurst:     cfg.Sync.RequestBurst,
	}
}

// Orchestrator is the single owner of a session's sync state.
type Orchestrator struct {
	executor      services.Executor
	store         *store.StatusStore
	policy        policy.Policy
	metadata      MetadataSource
	recorder      RunRecorder
	launcher      *Launcher
	poller        *Poller
	limiter       *rate.Limiter
	metrics       *metrics.SyncMetrics
	logger        *log.Logger
	now           func() time.Time
	checkInterval time.Duration

	group       singleflight.Group
	loop        *scheduler.Loop
	cancel      context.CancelFunc
	unsubscribe func()
	closeOnce   sync.Once
}

// NewOrchestrator wires the store, policy, launcher and poller.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Executor == nil {
		return nil, fmt.Errorf("%w: executor", shared.ErrMissingArgument)
	}

	o := &Orchestrator{
		executor:      opts.Executor,
		store:         opts.Store,
		policy:        opts.Policy,
		metadata:      opts.Metadata,
		recorder:      opts.Recorder,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		now:           opts.Clock,
		checkInterval: opts.CheckInterval,
	}
	if o.logger == nil {
		o.logger = shared.NewLogger(nil)
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.store == nil {
		o.store = store.NewWithClock(o.now)
	}
	if o.metadata == nil {
		o.metadata = NewMemoryHistory()
	}
	if o.recorder == nil {
		if r, ok := o.metadata.(RunRecorder); ok {
			o.recorder = r
		}
	}
	if o.checkInterval <= 0 {
		o.checkInterval = DefaultCheckInterval
	}

	sched := opts.Scheduler
	if sched == nil {
		o.loop = scheduler.NewLoop(16)
		sched = o.loop
	}

	limit := rate.Inf
	if opts.RequestRate > 0 {
		limit = rate.Limit(opts.RequestRate / 60)
	}
	o.limiter = rate.NewLimiter(limit, max(opts.RequestBurst, 1))

	lifetime, cancel := context.WithCancel(context.Background())
	o.cancel = cancel

	o.poller = &Poller{
		executor:       opts.Executor,
		store:          o.store,
		sched:          sched,
		interval:       orDefault(opts.PollInterval, DefaultPollInterval),
		maxAttempts:    opts.MaxAttempts,
		requestTimeout: orDefault(opts.RequestTimeout, DefaultRequestTimeout),
		lifetime:       lifetime,
		onTerminal:     o.record,
		metrics:        o.metrics,
		logger:         shared.WithLogger(o.logger, "component", "poller"),
	}
	if o.poller.maxAttempts <= 0 {
		o.poller.maxAttempts = DefaultMaxAttempts
	}

	o.launcher = &Launcher{
		executor:         opts.Executor,
		store:            o.store,
		poller:           o.poller,
		preferBackground: opts.PreferBackground,
		onTerminal:       o.record,
		metrics:          o.metrics,
		logger:           shared.WithLogger(o.logger, "component", "launcher"),
		now:              o.now,
	}

	o.unsubscribe = o.store.Subscribe(func(c models.SyncContext) {
		o.metrics.ObserveProgress(c.ProgressPercent)
	})
	return o, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

// Store returns the status store consumers observe.
func (o *Orchestrator) Store() *store.StatusStore { return o.store }

// Snapshot returns the current sync context.
func (o *Orchestrator) Snapshot() models.SyncContext { return o.store.Snapshot() }

// Poller exposes the poller's state for status reporting.
func (o *Orchestrator) Poller() *Poller { return o.poller }

// CheckAndSync consults the trigger policy and launches a job when it says so.
//
// A live tracked job is left alone unless the decision is manual. Concurrent
// checks for the same trigger share one evaluation. Metadata read failures and
// launch failures are returned; job failures only reach the store.
func (o *Orchestrator) CheckAndSync(ctx context.Context, trigger models.TriggerReason) (models.SyncDecision, error) {
	v, err, joined := o.group.Do("check:"+string(trigger), func() (any, error) {
		return o.checkAndSync(ctx, trigger)
	})
	if joined {
		o.logger.Debug("joined in-flight check", "trigger", trigger)
	}
	decision, _ := v.(models.SyncDecision)
	return decision, err
}

func (o *Orchestrator) checkAndSync(ctx context.Context, trigger models.TriggerReason) (models.SyncDecision, error) {
	meta, err := o.metadata.SyncMetadata(ctx)
	if err != nil {
		return models.SyncDecision{}, fmt.Errorf("failed to read sync metadata: %w", err)
	}

	decision := o.policy.Decide(meta, trigger, o.now())
	logger := shared.WithLogger(o.logger, "trigger", trigger, "reason", decision.Reason)
	if !decision.NeedsSync {
		logger.Debug("sync not needed", "pending", meta.PendingItems)
		return decision, nil
	}

	if o.store.Snapshot().Phase == models.PhaseSyncing && decision.Reason != models.ReasonManual {
		logger.Debug("sync already in progress, skipping launch")
		return decision, nil
	}

	_, err = o.launcher.Launch(ctx, decision.IsFirstSync)
	return decision, err
}

// TriggerSync launches a job regardless of policy, superseding any tracked job.
// forceFull requests a full background sync.
func (o *Orchestrator) TriggerSync(ctx context.Context, forceFull bool) error {
	_, err := o.launcher.Launch(ctx, forceFull)
	return err
}

// CancelSync forgets the tracked job and returns the store to Idle.
// The remote job, if any, keeps running.
func (o *Orchestrator) CancelSync() {
	handle := o.store.Handle()
	o.store.Reset()
	o.poller.Cancel()
	o.logger.Info("sync cancelled locally", "handle", handle)
}

// Wait blocks until the tracked job leaves the Syncing phase or ctx ends.
func (o *Orchestrator) Wait(ctx context.Context) (models.SyncContext, error) {
	updates, stop := o.store.Watch(1)
	defer stop()

	for {
		snap := o.store.Snapshot()
		if snap.Phase != models.PhaseSyncing {
			return snap, nil
		}
		select {
		case <-updates:
		case <-ctx.Done():
			return o.store.Snapshot(), ctx.Err()
		}
	}
}

// Start runs scheduled checks every check interval until ctx is cancelled.
// The first check happens immediately.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.logger.Info("starting scheduled sync checks", "interval", o.checkInterval)

	ticker := time.NewTicker(o.checkInterval)
	defer ticker.Stop()

	o.scheduledCheck(ctx)
	for {
		select {
		case <-ticker.C:
			o.scheduledCheck(ctx)
		case <-ctx.Done():
			o.logger.Info("scheduled sync checks stopping")
			return nil
		}
	}
}

func (o *Orchestrator) scheduledCheck(ctx context.Context) {
	if _, err := o.CheckAndSync(ctx, models.TriggerScheduled); err != nil {
		o.logger.Error("scheduled sync check failed", "error", err)
	}
}

// Close stops polling and releases the scheduler. The store keeps its last state.
func (o *Orchestrator) Close() error {
	o.closeOnce.Do(func() {
		o.cancel()
		o.poller.Cancel()
		o.unsubscribe()
		if o.loop != nil {
			o.loop.Close()
		}
	})
	return nil
}

// record persists a terminal outcome and updates metrics.
func (o *Orchestrator) record(out Outcome) {
	finished := o.now()
	o.metrics.RecordOutcome(out.Context.Phase, finished.Sub(out.Run.StartedAt))
	if o.recorder == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := o.recorder.RecordRun(ctx, out.SyncRun(finished)); err != nil {
		o.logger.Error("failed to record sync run", "run", out.Run.ID, "error", err)
	}
}

// TerminalError converts a Failed context into an error wrapping [shared.ErrJobReported].
func TerminalError(c models.SyncContext) error {
	if c.Phase != models.PhaseFailed {
		return nil
	}
	return fmt.Errorf("%w: %s", shared.ErrJobReported, c.ErrorMessage)
}
