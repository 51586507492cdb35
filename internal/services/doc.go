// Package services defines the [Executor] contract for the remote sync executor and implements it over HTTP.
//
// # Executor Interface
//
// The orchestration core only depends on [Executor]; tests substitute fakes.
//
// # HTTP Implementation
//
// [ExecutorService] talks JSON to the executor with a [req.Client]:
//   - POST /api/sync/start starts a tracked sync
//   - GET /api/sync/progress/{task_id} reports a background job
//   - POST /api/sync/request fires an untracked sync
//   - GET /api/emails/latest returns the freshest known item
//
// Requests carry a bearer token from an [oauth2.TokenSource] and an X-Request-ID
// correlation header.
//
// # Error Handling
//
// Errors wrap sentinels from the shared package:
//   - [shared.ErrTransport] : request failed or the executor returned an error status
//   - [shared.ErrJobNotFound] : progress queried for an unknown task_id
//   - [shared.ErrNotAuthenticated] : executor rejected the token
//   - [shared.ErrServiceUnavailable] : executor returned 5xx
//
// Error bodies of the form {"detail": ...} or {"error": ...} are decoded into [APIError].
package services
