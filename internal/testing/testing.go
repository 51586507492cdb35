// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/inboxsync/internal/models"
	"github.com/desertthunder/inboxsync/internal/services"
)

// ProgressStep is one scripted answer of [FakeExecutor.GetSyncProgress].
type ProgressStep struct {
	Resp *services.SyncProgressResponse
	Err  error
}

// Running is a step reporting a job still running at progress percent.
func Running(progress float64) ProgressStep {
	return ProgressStep{Resp: &services.SyncProgressResponse{IsRunning: true, Progress: progress}}
}

// Finished is a step reporting a finished job, failed when errMsg is not empty.
func Finished(errMsg string) ProgressStep {
	resp := &services.SyncProgressResponse{Progress: 100}
	if errMsg != "" {
		resp.Error = &errMsg
	}
	return ProgressStep{Resp: resp}
}

// Failing is a step where the progress query itself fails.
func Failing(err error) ProgressStep {
	return ProgressStep{Err: err}
}

// StartCall records the arguments of a StartSync call.
type StartCall struct {
	ForceFull  bool
	Background bool
}

// FakeExecutor is a scripted test double for [services.Executor].
//
// Progress steps are consumed in order; the last step repeats once the script runs out.
type FakeExecutor struct {
	mu sync.Mutex

	StartResp *services.StartSyncResponse
	StartErr  error
	// StartTaskIDs, when set, replaces StartResp.TaskID on the i-th StartSync call.
	StartTaskIDs []string
	// StartHook runs inside StartSync before it returns; it may mutate shared state.
	StartHook func()

	Progress []ProgressStep

	RequestResp *services.RequestSyncResponse
	RequestErr  error

	LatestResp *services.LatestEmailResponse
	LatestErr  error

	StartCalls    []StartCall
	ProgressCalls []models.TaskHandle
	RequestCalls  []models.SyncKind
}

// Dispatching returns a [FakeExecutor] whose StartSync dispatches taskID and
// whose progress follows steps.
func Dispatching(taskID string, steps ...ProgressStep) *FakeExecutor {
	return &FakeExecutor{
		StartResp: &services.StartSyncResponse{InProgress: true, TaskID: taskID},
		Progress:  steps,
	}
}

// Inline returns a [FakeExecutor] whose StartSync completes with stats.
func Inline(stats models.SyncStats) *FakeExecutor {
	return &FakeExecutor{StartResp: &services.StartSyncResponse{Stats: stats}}
}

func (f *FakeExecutor) StartSync(ctx context.Context, forceFull, background bool) (*services.StartSyncResponse, error) {
	f.mu.Lock()
	f.StartCalls = append(f.StartCalls, StartCall{ForceFull: forceFull, Background: background})
	resp, err, hook := f.StartResp, f.StartErr, f.StartHook
	taskID := ""
	if n := len(f.StartCalls) - 1; n < len(f.StartTaskIDs) {
		taskID = f.StartTaskIDs[n]
	}
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return &services.StartSyncResponse{}, nil
	}
	out := *resp
	if taskID != "" {
		out.TaskID = taskID
	}
	return &out, nil
}

func (f *FakeExecutor) GetSyncProgress(ctx context.Context, taskID models.TaskHandle) (*services.SyncProgressResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ProgressCalls = append(f.ProgressCalls, taskID)

	if len(f.Progress) == 0 {
		return nil, errors.New("no progress scripted")
	}
	i := min(len(f.ProgressCalls)-1, len(f.Progress)-1)
	step := f.Progress[i]
	if step.Err != nil {
		return nil, step.Err
	}
	out := *step.Resp
	return &out, nil
}

func (f *FakeExecutor) RequestSync(ctx context.Context, kind models.SyncKind) (*services.RequestSyncResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RequestCalls = append(f.RequestCalls, kind)
	if f.RequestErr != nil {
		return nil, f.RequestErr
	}
	if f.RequestResp == nil {
		return &services.RequestSyncResponse{Message: "sync requested"}, nil
	}
	out := *f.RequestResp
	return &out, nil
}

func (f *FakeExecutor) GetLatestEmailTime(ctx context.Context) (*services.LatestEmailResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LatestErr != nil {
		return nil, f.LatestErr
	}
	if f.LatestResp == nil {
		return &services.LatestEmailResponse{}, nil
	}
	out := *f.LatestResp
	return &out, nil
}

// ProgressCount returns how many progress queries were made.
func (f *FakeExecutor) ProgressCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ProgressCalls)
}

// StartCount returns how many start requests were made.
func (f *FakeExecutor) StartCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.StartCalls)
}

var _ services.Executor = (*FakeExecutor)(nil)

// NewTestLogger returns a logger that discards output.
func NewTestLogger() *log.Logger {
	return log.New(io.Discard)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
