package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/inboxsync/internal/models"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Route is one method and path served by a [Handler].
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Handler is a group of routes registered on a [Router] together.
type Handler interface {
	Routes() []Route // Routes returns every route this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers every route of a Handler
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Controller is the orchestration surface served over HTTP.
type Controller interface {
	Snapshot() models.SyncContext
	CheckAndSync(ctx context.Context, trigger models.TriggerReason) (models.SyncDecision, error)
	TriggerSync(ctx context.Context, forceFull bool) error
	CancelSync()
	RequestSync(ctx context.Context, kind models.SyncKind) (string, error)
}

// Watcher streams status changes.
type Watcher interface {
	Watch(buffer int) (<-chan models.SyncContext, func())
}

const shutdownTimeout = 5 * time.Second

// Serve runs an HTTP server on addr until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *log.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("HTTP server failed: %w", err)
			return
		}
		errs <- nil
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return <-errs
}
