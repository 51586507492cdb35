package services

import (
	"context"

	"github.com/desertthunder/inboxsync/internal/models"
)

// Executor is the request/response contract of the remote sync executor.
type Executor interface {
	// StartSync starts a tracked sync. With background set the executor may
	// dispatch the job and return a task id instead of finishing inline.
	StartSync(ctx context.Context, forceFull, background bool) (*StartSyncResponse, error)

	// GetSyncProgress reports on a dispatched job.
	GetSyncProgress(ctx context.Context, taskID models.TaskHandle) (*SyncProgressResponse, error)

	// RequestSync fires an untracked sync over the given window.
	RequestSync(ctx context.Context, kind models.SyncKind) (*RequestSyncResponse, error)

	// GetLatestEmailTime returns the freshest item the executor knows about.
	GetLatestEmailTime(ctx context.Context) (*LatestEmailResponse, error)
}

// StartSyncRequest is the body of POST /api/sync/start.
type StartSyncRequest struct {
	ForceFull  bool `json:"force_full"`
	Background bool `json:"background"`
}

// StartSyncResponse is returned by POST /api/sync/start.
//
// InProgress with a TaskID means the job was dispatched; otherwise it finished inline.
type StartSyncResponse struct {
	Stats      models.SyncStats `json:"stats"`
	InProgress bool             `json:"in_progress"`
	TaskID     string           `json:"task_id,omitempty"`
	Message    string           `json:"message,omitempty"`
}

// SyncProgressResponse is returned by GET /api/sync/progress/{task_id}.
type SyncProgressResponse struct {
	IsRunning bool             `json:"is_running"`
	Progress  float64          `json:"progress"`
	Stats     models.SyncStats `json:"stats"`
	Error     *string          `json:"error,omitempty"`
}

// ErrorMessage returns the reported job error, empty when none.
func (r SyncProgressResponse) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return *r.Error
}

// RequestSyncRequest is the body of POST /api/sync/request.
type RequestSyncRequest struct {
	Kind models.SyncKind `json:"kind"`
}

// RequestSyncResponse is returned by POST /api/sync/request.
type RequestSyncResponse struct {
	Message string `json:"message"`
}

// LatestEmailResponse is returned by GET /api/emails/latest.
type LatestEmailResponse struct {
	LatestEmailTime    *string `json:"latest_email_time"`
	LatestEmailSubject string  `json:"latest_email_subject,omitempty"`
	LatestEmailSender  string  `json:"latest_email_sender,omitempty"`
	Message            string  `json:"message,omitempty"`
}
