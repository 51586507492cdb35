// Package server exposes the sync orchestrator over HTTP for the serve command.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [BasicRouter] implements it on a chi mux; [Middleware] wraps handlers in
// reverse order (last added executes first).
//
// # Sync Handler
//
// [SyncHandler] serves the presentation surface of a [Controller]:
//
//	GET    /status        current sync context
//	POST   /sync          trigger a tracked sync (?full=true for a full sync)
//	DELETE /sync          cancel the tracked sync locally
//	POST   /sync/check    run the trigger policy (?trigger=page-visit|scheduled|manual)
//	POST   /sync/request  fire an untracked sync (?kind=today|week|month)
//	GET    /events        server-sent events, one per status change
//
// Errors are JSON bodies {"error": "..."} with a status derived from the
// shared sentinel they wrap.
//
// # Metrics
//
// GET /metrics is served by promhttp from the registry passed to [NewRouter].
package server
