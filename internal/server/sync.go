package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/desertthunder/inboxsync/internal/models"
	"github.com/desertthunder/inboxsync/internal/shared"
)

// SyncHandler serves a [Controller] and streams a [Watcher].
type SyncHandler struct {
	ctrl    Controller
	watcher Watcher
}

// NewSyncHandler creates a [SyncHandler]. Without a watcher /events is not served.
func NewSyncHandler(ctrl Controller, watcher Watcher) *SyncHandler {
	return &SyncHandler{ctrl: ctrl, watcher: watcher}
}

// Routes implements [Handler].
func (h *SyncHandler) Routes() []Route {
	routes := []Route{
		{Method: http.MethodGet, Path: "/status", Handler: h.status},
		{Method: http.MethodPost, Path: "/sync", Handler: h.trigger},
		{Method: http.MethodDelete, Path: "/sync", Handler: h.cancel},
		{Method: http.MethodPost, Path: "/sync/check", Handler: h.check},
		{Method: http.MethodPost, Path: "/sync/request", Handler: h.request},
	}
	if h.watcher != nil {
		routes = append(routes, Route{Method: http.MethodGet, Path: "/events", Handler: h.events})
	}
	return routes
}

// StatusResponse is returned by every endpoint that changes or reads the tracked job.
type StatusResponse struct {
	Status   models.SyncContext   `json:"status"`
	Decision *models.SyncDecision `json:"decision,omitempty"`
	Message  string               `json:"message,omitempty"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *SyncHandler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: h.ctrl.Snapshot()})
}

func (h *SyncHandler) trigger(w http.ResponseWriter, r *http.Request) {
	full := false
	if v := r.URL.Query().Get("full"); v != "" {
		var err error
		if full, err = strconv.ParseBool(v); err != nil {
			writeError(w, fmt.Errorf("%w: full=%q", shared.ErrInvalidArgument, v))
			return
		}
	}

	if err := h.ctrl.TriggerSync(r.Context(), full); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, StatusResponse{Status: h.ctrl.Snapshot()})
}

func (h *SyncHandler) cancel(w http.ResponseWriter, r *http.Request) {
	h.ctrl.CancelSync()
	writeJSON(w, http.StatusOK, StatusResponse{Status: h.ctrl.Snapshot()})
}

func (h *SyncHandler) check(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("trigger")
	if raw == "" {
		raw = string(models.TriggerPageVisit)
	}
	trigger, err := models.ParseTriggerReason(raw)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err))
		return
	}

	decision, err := h.ctrl.CheckAndSync(r.Context(), trigger)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: h.ctrl.Snapshot(), Decision: &decision})
}

func (h *SyncHandler) request(w http.ResponseWriter, r *http.Request) {
	kind := models.SyncKind(r.URL.Query().Get("kind"))
	msg, err := h.ctrl.RequestSync(r.Context(), kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, StatusResponse{Status: h.ctrl.Snapshot(), Message: msg})
}

// events streams each status change as a server-sent event until the client goes away.
func (h *SyncHandler) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, fmt.Errorf("streaming unsupported"))
		return
	}

	updates, stop := h.watcher.Watch(16)
	defer stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case c, ok := <-updates:
			if !ok {
				return
			}
			data, err := json.Marshal(c)
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "event: status\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), ErrorResponse{Error: err.Error()})
}

// statusFor maps shared sentinels onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidArgument), errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, shared.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrTransport), errors.Is(err, shared.ErrProtocol):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
