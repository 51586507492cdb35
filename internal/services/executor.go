package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/imroc/req/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/inboxsync/internal/models"
	"github.com/desertthunder/inboxsync/internal/shared"
)

const (
	pathStartSync   = "/api/sync/start"
	pathProgress    = "/api/sync/progress/{task_id}"
	pathRequestSync = "/api/sync/request"
	pathLatestEmail = "/api/emails/latest"

	HeaderRequestID = "X-Request-ID"
)

// APIError is an error body returned by the executor.
type APIError struct {
	Detail string `json:"detail,omitempty"`
	Msg    string `json:"error,omitempty"`
	Status int    `json:"-"`
}

func (e *APIError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Msg
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("executor returned %d: %s", e.Status, msg)
}

// ExecutorService implements [Executor] against the executor's HTTP API.
type ExecutorService struct {
	client  *req.Client
	tokens  oauth2.TokenSource
	retries int
	logger  *log.Logger
}

// Option configures an [ExecutorService].
type Option func(*ExecutorService)

// WithTokenSource overrides the bearer token source.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(s *ExecutorService) { s.tokens = ts }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(s *ExecutorService) { s.logger = l }
}

// NewExecutorService creates an [ExecutorService] from the executor configuration.
func NewExecutorService(cfg shared.ExecutorConfig, opts ...Option) (*ExecutorService, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: executor.base_url", shared.ErrMissingConfig)
	}

	timeout := cfg.RequestTimeout.Duration
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	s := &ExecutorService{
		client: req.C().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(timeout).
			SetUserAgent("inboxsync").
			SetCommonErrorResult(&APIError{}),
		retries: cfg.Retries,
		logger:  shared.NewLogger(nil),
	}
	if cfg.APIToken != "" {
		s.tokens = oauth2.ReuseTokenSource(nil, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.APIToken,
			TokenType:   "Bearer",
		}))
	}

	for _, opt := range opts {
		opt(s)
	}

	s.client.OnBeforeRequest(s.authorize)
	return s, nil
}

// authorize adds the bearer token and a correlation id to every request.
func (s *ExecutorService) authorize(_ *req.Client, r *req.Request) error {
	r.SetHeader(HeaderRequestID, shared.GenerateID())
	if s.tokens == nil {
		return nil
	}

	tok, err := s.tokens.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}
	r.SetHeader("Authorization", tok.Type()+" "+tok.AccessToken)
	return nil
}

// StartSync issues POST /api/sync/start.
func (s *ExecutorService) StartSync(ctx context.Context, forceFull, background bool) (*StartSyncResponse, error) {
	var out StartSyncResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(&StartSyncRequest{ForceFull: forceFull, Background: background}).
		SetSuccessResult(&out).
		Post(pathStartSync)
	if err := handleAPIError(resp, err, "start sync"); err != nil {
		return nil, err
	}

	s.logger.Debug("sync started", "in_progress", out.InProgress, "task_id", out.TaskID)
	return &out, nil
}

// GetSyncProgress issues GET /api/sync/progress/{task_id}.
func (s *ExecutorService) GetSyncProgress(ctx context.Context, taskID models.TaskHandle) (*SyncProgressResponse, error) {
	if taskID.Empty() {
		return nil, fmt.Errorf("%w: task id", shared.ErrMissingArgument)
	}

	var out SyncProgressResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("task_id", taskID.String()).
		SetSuccessResult(&out).
		Get(pathProgress)
	if err == nil && resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", shared.ErrJobNotFound, taskID)
	}
	if err := handleAPIError(resp, err, "sync progress"); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestSync issues POST /api/sync/request.
func (s *ExecutorService) RequestSync(ctx context.Context, kind models.SyncKind) (*RequestSyncResponse, error) {
	var out RequestSyncResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(&RequestSyncRequest{Kind: kind}).
		SetSuccessResult(&out).
		Post(pathRequestSync)
	if err := handleAPIError(resp, err, "request sync"); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLatestEmailTime issues GET /api/emails/latest. It is a read, so it is retried.
func (s *ExecutorService) GetLatestEmailTime(ctx context.Context) (*LatestEmailResponse, error) {
	var out LatestEmailResponse
	r := s.client.R().
		SetContext(ctx).
		SetSuccessResult(&out)
	if s.retries > 0 {
		r.SetRetryCount(s.retries).
			SetRetryFixedInterval(250 * time.Millisecond).
			AddRetryCondition(func(resp *req.Response, err error) bool {
				return err != nil || (resp != nil && resp.StatusCode >= http.StatusInternalServerError)
			})
	}

	resp, err := r.Get(pathLatestEmail)
	if err := handleAPIError(resp, err, "latest email"); err != nil {
		return nil, err
	}
	return &out, nil
}

// handleAPIError maps a req round-trip onto shared sentinels.
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		if errors.Is(requestErr, shared.ErrNotAuthenticated) {
			return fmt.Errorf("%s: %w", operation, requestErr)
		}
		return fmt.Errorf("%w: %s: %v", shared.ErrTransport, operation, requestErr)
	}

	if !resp.IsErrorState() {
		return nil
	}

	apiErr, ok := resp.ErrorResult().(*APIError)
	if !ok || apiErr == nil {
		apiErr = &APIError{}
	}
	apiErr.Status = resp.StatusCode

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s: %w", shared.ErrNotAuthenticated, operation, apiErr)
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %w: %s: %w", shared.ErrTransport, shared.ErrServiceUnavailable, operation, apiErr)
	default:
		return fmt.Errorf("%w: %s: %w", shared.ErrTransport, operation, apiErr)
	}
}

// ParseLatestEmail converts a [LatestEmailResponse] into a [models.LatestEmail].
func ParseLatestEmail(r *LatestEmailResponse) (*models.LatestEmail, error) {
	out := &models.LatestEmail{
		Subject: r.LatestEmailSubject,
		Sender:  r.LatestEmailSender,
		Message: r.Message,
	}
	if r.LatestEmailTime == nil || *r.LatestEmailTime == "" {
		return out, nil
	}

	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, *r.LatestEmailTime); err == nil {
			out.Time = &t
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: latest_email_time %q", shared.ErrInvalidInput, *r.LatestEmailTime)
}
