package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/inboxsync/internal/models"
	"github.com/desertthunder/inboxsync/internal/policy"
	"github.com/desertthunder/inboxsync/internal/shared"
	tu "github.com/desertthunder/inboxsync/internal/testing"
)

func defaultPolicy() policy.Policy {
	return policy.Policy{Threshold: 30 * time.Minute, PendingThreshold: 50, ScheduledInterval: 15 * time.Minute}
}

func completedAt(h *harness, at time.Time) {
	h.history.RecordRun(context.Background(), models.SyncRun{Phase: models.PhaseCompleted, FinishedAt: at})
}

func TestNewOrchestrator(t *testing.T) {
	t.Run("Requires Executor", func(t *testing.T) {
		if _, err := NewOrchestrator(Options{}); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Defaults", func(t *testing.T) {
		o, err := NewOrchestrator(Options{Executor: &tu.FakeExecutor{}, Logger: tu.NewTestLogger()})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer o.Close()

		if o.Store() == nil || o.Snapshot().Phase != models.PhaseIdle {
			t.Error("expected idle default store")
		}
		if o.poller.interval != DefaultPollInterval || o.poller.maxAttempts != DefaultMaxAttempts {
			t.Errorf("unexpected poller defaults %v %d", o.poller.interval, o.poller.maxAttempts)
		}
		if o.loop == nil {
			t.Error("expected an owned event loop")
		}
		if _, ok := o.recorder.(*MemoryHistory); !ok {
			t.Errorf("expected memory history recorder, got %T", o.recorder)
		}
	})

	t.Run("From Config", func(t *testing.T) {
		cfg := shared.DefaultConfig()
		opts := OptionsFromConfig(cfg, &tu.FakeExecutor{})
		if opts.MaxAttempts != cfg.Sync.MaxAttempts || opts.PollInterval != cfg.Sync.PollInterval.Duration {
			t.Errorf("unexpected options %+v", opts)
		}
		if opts.Policy.Threshold != cfg.Sync.Threshold.Duration {
			t.Errorf("expected policy threshold %v, got %v", cfg.Sync.Threshold.Duration, opts.Policy.Threshold)
		}
	})
}

func TestCheckAndSync(t *testing.T) {
	ctx := context.Background()

	t.Run("First Sync", func(t *testing.T) {
		h := newHarness(t, tu.Dispatching("t1", tu.Running(10)))

		decision, err := h.o.CheckAndSync(ctx, models.TriggerPageVisit)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		want := models.SyncDecision{NeedsSync: true, Reason: models.ReasonFirstSync, IsFirstSync: true}
		if decision != want {
			t.Errorf("expected %+v, got %+v", want, decision)
		}
		if len(h.exec.StartCalls) != 1 || h.exec.StartCalls[0] != (tu.StartCall{ForceFull: true, Background: true}) {
			t.Errorf("expected full background start, got %+v", h.exec.StartCalls)
		}
	})

	t.Run("Recent Sync", func(t *testing.T) {
		h := newHarness(t, tu.Inline(models.SyncStats{}))
		completedAt(h, epoch.Add(-10*time.Minute))

		decision, err := h.o.CheckAndSync(ctx, models.TriggerPageVisit)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if decision.NeedsSync {
			t.Errorf("expected no sync, got %+v", decision)
		}
		if h.exec.StartCount() != 0 {
			t.Error("no launch expected")
		}
	})

	t.Run("Pending Items Exceed Threshold", func(t *testing.T) {
		h := newHarness(t, tu.Inline(models.SyncStats{}))
		completedAt(h, epoch.Add(-time.Minute))
		h.history.AddPending(51)

		decision, _ := h.o.CheckAndSync(ctx, models.TriggerPageVisit)
		if decision.Reason != models.ReasonThresholdExceeded || h.exec.StartCount() != 1 {
			t.Errorf("expected threshold launch, got %+v with %d starts", decision, h.exec.StartCount())
		}
		if meta, _ := h.history.SyncMetadata(ctx); meta.PendingItems != 0 {
			t.Errorf("completed run should reset pending, got %d", meta.PendingItems)
		}
	})

	t.Run("Skips While Syncing", func(t *testing.T) {
		h := newHarness(t, tu.Dispatching("t1", tu.Running(10)))
		h.o.CheckAndSync(ctx, models.TriggerPageVisit)

		decision, err := h.o.CheckAndSync(ctx, models.TriggerPageVisit)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !decision.NeedsSync {
			t.Errorf("policy should still want a sync, got %+v", decision)
		}
		if h.exec.StartCount() != 1 {
			t.Errorf("expected live job to be left alone, got %d starts", h.exec.StartCount())
		}
	})

	t.Run("Manual Overrides Live Job", func(t *testing.T) {
		h := newHarness(t, tu.Dispatching("t1", tu.Running(10)))
		completedAt(h, epoch.Add(-time.Minute))
		h.o.TriggerSync(ctx, false)

		decision, err := h.o.CheckAndSync(ctx, models.TriggerManual)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if decision.Reason != models.ReasonManual {
			t.Errorf("expected manual reason, got %+v", decision)
		}
		if h.exec.StartCount() != 2 {
			t.Errorf("expected second launch, got %d", h.exec.StartCount())
		}
	})

	t.Run("Scheduled", func(t *testing.T) {
		h := newHarness(t, tu.Inline(models.SyncStats{}))
		completedAt(h, epoch.Add(-20*time.Minute))

		decision, _ := h.o.CheckAndSync(ctx, models.TriggerScheduled)
		if decision.Reason != models.ReasonScheduled || h.exec.StartCount() != 1 {
			t.Errorf("expected scheduled launch, got %+v", decision)
		}
	})

	t.Run("Metadata Error", func(t *testing.T) {
		h := newHarness(t, tu.Inline(models.SyncStats{}), func(o *Options) {
			o.Metadata = failingMetadata{}
		})

		if _, err := h.o.CheckAndSync(ctx, models.TriggerPageVisit); err == nil {
			t.Fatal("expected metadata error")
		}
		if h.exec.StartCount() != 0 {
			t.Error("no launch expected")
		}
		if h.o.Snapshot().Phase != models.PhaseIdle {
			t.Error("store should be untouched")
		}
	})

	t.Run("Launch Error Returned", func(t *testing.T) {
		h := newHarness(t, &tu.FakeExecutor{StartErr: errors.New("refused")})
		decision, err := h.o.CheckAndSync(ctx, models.TriggerPageVisit)
		if !errors.Is(err, shared.ErrTransport) || !decision.IsFirstSync {
			t.Errorf("expected decision with transport error, got %+v %v", decision, err)
		}
	})

	t.Run("Concurrent Checks Share Evaluation", func(t *testing.T) {
		meta := &blockingMetadata{entered: make(chan struct{}), release: make(chan struct{})}
		h := newHarness(t, tu.Inline(models.SyncStats{}), func(o *Options) {
			o.Metadata = meta
			o.Recorder = NewMemoryHistory()
		})

		var wg sync.WaitGroup
		results := make([]models.SyncDecision, 2)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], _ = h.o.CheckAndSync(ctx, models.TriggerPageVisit)
			}(i)
			if i == 0 {
				<-meta.entered
			}
		}
		time.Sleep(50 * time.Millisecond)
		close(meta.release)
		wg.Wait()

		if n := atomic.LoadInt32(&meta.calls); n != 1 {
			t.Errorf("expected one metadata read, got %d", n)
		}
		if h.exec.StartCount() != 1 {
			t.Errorf("expected one launch, got %d", h.exec.StartCount())
		}
		if results[0] != results[1] {
			t.Errorf("expected shared decision, got %+v and %+v", results[0], results[1])
		}
	})
}

func TestWait(t *testing.T) {
	t.Run("Returns Terminal Context", func(t *testing.T) {
		exec := tu.Dispatching("t1", tu.Running(50), tu.Finished("quota exceeded"))
		h := newHarness(t, exec)
		h.o.TriggerSync(context.Background(), false)

		done := make(chan models.SyncContext, 1)
		go func() {
			snap, _ := h.o.Wait(context.Background())
			done <- snap
		}()

		h.sched.Advance(time.Second)
		h.sched.Advance(time.Second)

		select {
		case snap := <-done:
			if snap.Phase != models.PhaseFailed || snap.ErrorMessage != "quota exceeded" {
				t.Errorf("unexpected terminal context %+v", snap)
			}
			if err := TerminalError(snap); !errors.Is(err, shared.ErrJobReported) {
				t.Errorf("expected ErrJobReported, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Wait did not return")
		}
	})

	t.Run("Idle Returns Immediately", func(t *testing.T) {
		h := newHarness(t, tu.Inline(models.SyncStats{}))
		snap, err := h.o.Wait(context.Background())
		if err != nil || snap.Phase != models.PhaseIdle {
			t.Errorf("expected idle, got %+v %v", snap, err)
		}
		if TerminalError(snap) != nil {
			t.Error("idle context is not an error")
		}
	})

	t.Run("Context Cancelled", func(t *testing.T) {
		h := newHarness(t, tu.Dispatching("t1", tu.Running(10)))
		h.o.TriggerSync(context.Background(), false)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		snap, err := h.o.Wait(ctx)
		if !errors.Is(err, context.DeadlineExceeded) || snap.Phase != models.PhaseSyncing {
			t.Errorf("expected deadline while syncing, got %+v %v", snap, err)
		}
	})
}

func TestStart(t *testing.T) {
	h := newHarness(t, tu.Inline(models.SyncStats{}), func(o *Options) {
		o.CheckInterval = 10 * time.Millisecond
		o.Clock = time.Now
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := h.o.Start(ctx); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// the first check is a first sync, later scheduled checks find it recent
	if h.exec.StartCount() != 1 {
		t.Errorf("expected one launch, got %d", h.exec.StartCount())
	}
}

func TestOutcomeSyncRun(t *testing.T) {
	o := Outcome{
		Run: RunInfo{ID: "r1", Handle: "t1", FullSync: true, Background: true, StartedAt: epoch},
		Context: models.SyncContext{
			Phase:        models.PhaseFailed,
			ErrorMessage: "boom",
			Stats:        models.SyncStats{Processed: 2},
		},
	}
	run := o.SyncRun(epoch.Add(time.Minute))
	if run.ID != "r1" || run.Phase != models.PhaseFailed || run.ErrorMessage != "boom" || run.Duration() != time.Minute {
		t.Errorf("unexpected run %+v", run)
	}
}

type failingMetadata struct{}

func (failingMetadata) SyncMetadata(context.Context) (models.SyncMetadata, error) {
	return models.SyncMetadata{}, errors.New("database is locked")
}

type blockingMetadata struct {
	calls   int32
	entered chan struct{}
	release chan struct{}
}

func (b *blockingMetadata) SyncMetadata(context.Context) (models.SyncMetadata, error) {
	if atomic.AddInt32(&b.calls, 1) == 1 {
		close(b.entered)
	}
	<-b.release
	return models.SyncMetadata{}, nil
}
