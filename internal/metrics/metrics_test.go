package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/desertthunder/inboxsync/internal/models"
)

func TestNewSyncMetrics(t *testing.T) {
	t.Run("nil registerer is a no-op", func(t *testing.T) {
		m, err := NewSyncMetrics(nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if m != nil {
			t.Fatal("expected nil metrics")
		}

		m.RecordLaunch(LaunchInline)
		m.RecordPoll(PollRunning)
		m.RecordRequest(models.KindToday, true)
		m.ObserveProgress(10)
		m.RecordOutcome(models.PhaseCompleted, time.Second)
	})

	t.Run("double registration fails", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		if _, err := NewSyncMetrics(reg); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := NewSyncMetrics(reg); err == nil {
			t.Error("expected duplicate registration error")
		}
	})
}

func TestSyncMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewSyncMetrics(reg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	m.RecordLaunch(LaunchDispatched)
	m.RecordLaunch(LaunchDispatched)
	m.RecordLaunch(LaunchError)
	m.RecordPoll(PollRunning)
	m.RecordRequest(models.KindMonth, false)
	m.ObserveProgress(42)

	if got := testutil.ToFloat64(m.launches.WithLabelValues(LaunchDispatched)); got != 2 {
		t.Errorf("expected 2 dispatched launches, got %v", got)
	}
	if got := testutil.ToFloat64(m.launches.WithLabelValues(LaunchError)); got != 1 {
		t.Errorf("expected 1 failed launch, got %v", got)
	}
	if got := testutil.ToFloat64(m.polls.WithLabelValues(PollRunning)); got != 1 {
		t.Errorf("expected 1 running poll, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("month", "error")); got != 1 {
		t.Errorf("expected 1 failed request, got %v", got)
	}
	if got := testutil.ToFloat64(m.progress); got != 42 {
		t.Errorf("expected progress 42, got %v", got)
	}

	m.RecordOutcome(models.PhaseCompleted, 3*time.Second)
	if got := testutil.ToFloat64(m.outcomes.WithLabelValues("completed")); got != 1 {
		t.Errorf("expected 1 completed outcome, got %v", got)
	}
	if got := testutil.ToFloat64(m.progress); got != 100 {
		t.Errorf("expected progress 100 after completion, got %v", got)
	}
	if got := testutil.CollectAndCount(m.duration); got != 1 {
		t.Errorf("expected 1 duration series, got %d", got)
	}
}
