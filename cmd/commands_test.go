package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/inboxsync/internal/models"
	"github.com/desertthunder/inboxsync/internal/server"
	"github.com/desertthunder/inboxsync/internal/services"
	"github.com/desertthunder/inboxsync/internal/shared"
	"github.com/desertthunder/inboxsync/internal/tasks"
	tu "github.com/desertthunder/inboxsync/internal/testing"
)

func newTestRunner(t *testing.T, executor services.Executor, daemonURL string) (*Runner, *bytes.Buffer) {
	t.Helper()
	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "inboxsync.db")
	config.Sync.PollInterval = shared.NewDuration(5 * time.Millisecond)

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:    config,
		Executor:  executor,
		DaemonURL: daemonURL,
		Logger:    tu.NewTestLogger(),
		Output:    output,
	})
	return runner, output
}

func run(r *Runner, args ...string) error {
	app := &cli.Command{Name: "inboxsync", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"inboxsync"}, args...))
}

func TestSyncCommands(t *testing.T) {
	t.Run("trigger inline records history", func(t *testing.T) {
		exec := tu.Inline(models.SyncStats{Processed: 5, Added: 2})
		runner, output := newTestRunner(t, exec, "")

		if err := run(runner, "sync", "trigger", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var report syncReport
		if err := json.Unmarshal(output.Bytes(), &report); err != nil {
			t.Fatalf("invalid JSON output %q: %v", output.String(), err)
		}
		if report.Status.Phase != models.PhaseCompleted || report.Status.Stats.Added != 2 {
			t.Errorf("unexpected status %+v", report.Status)
		}
		if report.Decision != nil {
			t.Error("trigger should not report a decision")
		}

		output.Reset()
		if err := run(runner, "sync", "history", "--format", "csv"); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(output.String()), "\n")
		if len(lines) != 2 || !strings.Contains(lines[1], "completed") {
			t.Errorf("expected one completed run, got:\n%s", output.String())
		}
	})

	t.Run("trigger full waits for dispatched job", func(t *testing.T) {
		exec := tu.Dispatching("job-1", tu.Running(40), tu.Finished(""))
		runner, output := newTestRunner(t, exec, "")

		if err := run(runner, "sync", "trigger", "--full"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(exec.StartCalls) != 1 || !exec.StartCalls[0].ForceFull || !exec.StartCalls[0].Background {
			t.Errorf("unexpected start calls %+v", exec.StartCalls)
		}
		if exec.ProgressCount() < 2 {
			t.Errorf("expected at least 2 progress polls, got %d", exec.ProgressCount())
		}
		if !strings.Contains(output.String(), "Phase:    completed") {
			t.Errorf("expected completed status, got:\n%s", output.String())
		}
	})

	t.Run("failed job returns reported error", func(t *testing.T) {
		exec := tu.Dispatching("job-2", tu.Finished("mailbox locked"))
		runner, _ := newTestRunner(t, exec, "")

		err := run(runner, "sync", "trigger", "--full")
		if !errors.Is(err, shared.ErrJobReported) {
			t.Fatalf("expected ErrJobReported, got %v", err)
		}
		if !strings.Contains(err.Error(), "mailbox locked") {
			t.Errorf("expected job message in error, got %v", err)
		}
	})

	t.Run("detach returns while syncing", func(t *testing.T) {
		exec := tu.Dispatching("job-3", tu.Running(10))
		runner, output := newTestRunner(t, exec, "")

		if err := run(runner, "sync", "trigger", "--full", "--detach"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Phase:    syncing") {
			t.Errorf("expected syncing status, got:\n%s", output.String())
		}
	})

	t.Run("launch failure is returned", func(t *testing.T) {
		exec := &tu.FakeExecutor{StartErr: errors.New("connection refused")}
		runner, _ := newTestRunner(t, exec, "")

		if err := run(runner, "sync", "trigger"); !errors.Is(err, shared.ErrTransport) {
			t.Errorf("expected ErrTransport, got %v", err)
		}
	})

	t.Run("check follows policy across sessions", func(t *testing.T) {
		exec := tu.Inline(models.SyncStats{Processed: 1})
		runner, output := newTestRunner(t, exec, "")

		if err := run(runner, "sync", "check"); err != nil {
			t.Fatalf("first check failed: %v", err)
		}
		if !strings.Contains(output.String(), "Sync triggered (firstSync)") {
			t.Errorf("expected first sync, got:\n%s", output.String())
		}

		output.Reset()
		if err := run(runner, "sync", "check"); err != nil {
			t.Fatalf("second check failed: %v", err)
		}
		if !strings.Contains(output.String(), "No sync needed") {
			t.Errorf("expected no sync, got:\n%s", output.String())
		}

		output.Reset()
		if err := run(runner, "sync", "check", "--trigger", "manual"); err != nil {
			t.Fatalf("manual check failed: %v", err)
		}
		if !strings.Contains(output.String(), "Sync triggered (manual)") {
			t.Errorf("expected manual sync, got:\n%s", output.String())
		}
		if exec.StartCount() != 2 {
			t.Errorf("expected 2 launches, got %d", exec.StartCount())
		}
	})

	t.Run("check rejects unknown trigger", func(t *testing.T) {
		runner, _ := newTestRunner(t, &tu.FakeExecutor{}, "")
		if err := run(runner, "sync", "check", "--trigger", "cron"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("request", func(t *testing.T) {
		exec := &tu.FakeExecutor{RequestResp: &services.RequestSyncResponse{Message: "week sync queued"}}
		runner, output := newTestRunner(t, exec, "")

		if err := run(runner, "sync", "request", "--kind", "week"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "week sync queued") {
			t.Errorf("unexpected output %q", output.String())
		}
		if len(exec.RequestCalls) != 1 || exec.RequestCalls[0] != models.KindWeek {
			t.Errorf("unexpected request calls %v", exec.RequestCalls)
		}
	})

	t.Run("request rejects unknown kind", func(t *testing.T) {
		exec := &tu.FakeExecutor{}
		runner, _ := newTestRunner(t, exec, "")

		if err := run(runner, "sync", "request", "--kind", "year"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if len(exec.RequestCalls) != 0 {
			t.Error("expected no request")
		}
	})

	t.Run("latest", func(t *testing.T) {
		ts := "2025-06-01T12:00:00Z"
		exec := &tu.FakeExecutor{LatestResp: &services.LatestEmailResponse{
			LatestEmailTime:    &ts,
			LatestEmailSubject: "Quarterly report",
			LatestEmailSender:  "ops@example.com",
		}}
		runner, output := newTestRunner(t, exec, "")

		if err := run(runner, "sync", "latest"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, want := range []string{"Latest email:", "Subject: Quarterly report", "From: ops@example.com"} {
			if !strings.Contains(output.String(), want) {
				t.Errorf("output missing %q:\n%s", want, output.String())
			}
		}
	})

	t.Run("latest without data", func(t *testing.T) {
		exec := &tu.FakeExecutor{LatestResp: &services.LatestEmailResponse{Message: "no emails found"}}
		runner, output := newTestRunner(t, exec, "")

		if err := run(runner, "sync", "latest"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if strings.TrimSpace(output.String()) != "no emails found" {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("history export to file", func(t *testing.T) {
		runner, output := newTestRunner(t, tu.Inline(models.SyncStats{}), "")
		if err := run(runner, "sync", "trigger"); err != nil {
			t.Fatalf("trigger failed: %v", err)
		}

		path := filepath.Join(t.TempDir(), "history.md")
		output.Reset()
		if err := run(runner, "sync", "history", "--format", "md", "--output", path); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if !strings.Contains(tu.MustReadFile(t, path), "# Sync History") {
			t.Error("expected markdown export")
		}
		if !strings.Contains(output.String(), "Exported 1 runs") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("pending triggers threshold sync", func(t *testing.T) {
		exec := tu.Inline(models.SyncStats{})
		runner, output := newTestRunner(t, exec, "")
		if err := run(runner, "sync", "trigger"); err != nil {
			t.Fatalf("trigger failed: %v", err)
		}

		output.Reset()
		if err := run(runner, "sync", "pending", "--add", "10"); err != nil {
			t.Fatalf("pending failed: %v", err)
		}
		if strings.TrimSpace(output.String()) != "10 items pending" {
			t.Errorf("unexpected output %q", output.String())
		}

		output.Reset()
		if err := run(runner, "sync", "pending", "--add", "45"); err != nil {
			t.Fatalf("pending failed: %v", err)
		}
		if !strings.Contains(output.String(), "over threshold 50") {
			t.Errorf("unexpected output %q", output.String())
		}

		output.Reset()
		if err := run(runner, "sync", "check"); err != nil {
			t.Fatalf("check failed: %v", err)
		}
		if !strings.Contains(output.String(), "Sync triggered (thresholdExceeded)") {
			t.Errorf("expected threshold sync, got:\n%s", output.String())
		}
	})

	t.Run("without executor", func(t *testing.T) {
		runner, _ := newTestRunner(t, nil, "")
		if err := run(runner, "sync", "trigger"); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestDaemonCommands(t *testing.T) {
	orch, err := tasks.NewOrchestrator(tasks.Options{Executor: &tu.FakeExecutor{}, Logger: tu.NewTestLogger()})
	if err != nil {
		t.Fatalf("failed to create orchestrator: %v", err)
	}
	defer orch.Close()

	srv := httptest.NewServer(server.NewRouter(server.NewSyncHandler(orch, orch.Store()), nil))
	defer srv.Close()

	t.Run("status", func(t *testing.T) {
		orch.Store().SetStats(models.SyncStats{Processed: 9})
		runner, output := newTestRunner(t, nil, srv.URL)

		if err := run(runner, "status", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var status models.SyncContext
		if err := json.Unmarshal(output.Bytes(), &status); err != nil {
			t.Fatalf("invalid JSON %q: %v", output.String(), err)
		}
		if status.Stats.Processed != 9 {
			t.Errorf("unexpected status %+v", status)
		}
	})

	t.Run("cancel", func(t *testing.T) {
		orch.Store().Begin()
		runner, output := newTestRunner(t, nil, srv.URL)

		if err := run(runner, "cancel"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "phase idle") {
			t.Errorf("unexpected output %q", output.String())
		}
		if orch.Snapshot().Phase != models.PhaseIdle {
			t.Error("expected daemon store reset")
		}
	})

	t.Run("unreachable daemon", func(t *testing.T) {
		runner, _ := newTestRunner(t, nil, "http://127.0.0.1:1")
		if err := run(runner, "status"); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("config", func(t *testing.T) {
		runner, output := newTestRunner(t, nil, "")
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := run(runner, "setup", "config", "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(output.String(), "Configuration written") {
			t.Errorf("unexpected output %q", output.String())
		}

		if err := run(runner, "setup", "config", "--config", path); err == nil {
			t.Error("expected error when config already exists")
		}
	})

	t.Run("database", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		dbPath := filepath.Join(dir, "inboxsync.db")
		if err := os.WriteFile(path, []byte(fmt.Sprintf("[database]\npath = %q\n", dbPath)), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		runner, _ := newTestRunner(t, nil, "")

		if err := run(runner, "setup", "database", "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, dbPath)
	})
}
