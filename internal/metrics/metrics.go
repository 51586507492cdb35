// Package metrics provides Prometheus instrumentation for sync orchestration.
//
// A nil [*SyncMetrics] is valid and records nothing, so components can be
// constructed without a registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/desertthunder/inboxsync/internal/models"
)

const namespace = "inboxsync"

// Launch modes recorded by [SyncMetrics.RecordLaunch].
const (
	LaunchInline     = "inline"
	LaunchDispatched = "dispatched"
	LaunchError      = "error"
)

// Poll results recorded by [SyncMetrics.RecordPoll].
const (
	PollRunning = "running"
	PollDone    = "done"
	PollError   = "error"
)

// SyncMetrics holds the collectors for launches, polls and outcomes.
type SyncMetrics struct {
	launches *prometheus.CounterVec
	polls    *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	requests *prometheus.CounterVec
	progress prometheus.Gauge
	duration *prometheus.HistogramVec
}

// NewSyncMetrics registers the sync collectors with reg.
// If reg is nil, it returns nil (no-op metrics).
func NewSyncMetrics(reg prometheus.Registerer) (*SyncMetrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &SyncMetrics{
		launches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_launches_total",
			Help:      "Tracked sync launches by mode.",
		}, []string{"mode"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_polls_total",
			Help:      "Progress queries by result.",
		}, []string{"result"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_outcomes_total",
			Help:      "Terminal sync outcomes by phase.",
		}, []string{"phase"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_requests_total",
			Help:      "Untracked sync requests by kind and result.",
		}, []string{"kind", "result"}),
		progress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_progress_percent",
			Help:      "Progress of the tracked sync.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of tracked syncs in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"phase"}),
	}

	for _, c := range []prometheus.Collector{m.launches, m.polls, m.outcomes, m.requests, m.progress, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordLaunch counts a launch by mode.
func (m *SyncMetrics) RecordLaunch(mode string) {
	if m == nil {
		return
	}
	m.launches.WithLabelValues(mode).Inc()
}

// RecordPoll counts a progress query by result.
func (m *SyncMetrics) RecordPoll(result string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(result).Inc()
}

// RecordRequest counts an untracked sync request.
func (m *SyncMetrics) RecordRequest(kind models.SyncKind, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.requests.WithLabelValues(string(kind), result).Inc()
}

// ObserveProgress sets the progress gauge.
func (m *SyncMetrics) ObserveProgress(percent int) {
	if m == nil {
		return
	}
	m.progress.Set(float64(percent))
}

// RecordOutcome counts a terminal phase and observes how long the run took.
func (m *SyncMetrics) RecordOutcome(phase models.SyncPhase, d time.Duration) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(phase.String()).Inc()
	m.duration.WithLabelValues(phase.String()).Observe(d.Seconds())
	if phase == models.PhaseCompleted {
		m.progress.Set(100)
	}
}
