// Package tasks orchestrates a remote sync job from trigger to terminal state.
//
// # Core Operations
//
// The [Orchestrator] owns a [store.StatusStore], a [policy.Policy], a [Launcher]
// and a [Poller], and exposes the commands presentation code calls:
//
//  1. [Orchestrator.CheckAndSync] : consult the policy and launch when warranted
//  2. [Orchestrator.TriggerSync] : launch unconditionally
//  3. [Orchestrator.CancelSync] : forget the tracked job locally
//  4. [Orchestrator.RequestSync] : fire an untracked sync, never touching the store
//
// # Lifecycle
//
// A launch moves the store to Syncing before the request is sent. An inline
// response completes immediately; a dispatched response stores the task handle
// and arms the poller, which queries progress at a fixed cadence until the job
// finishes, fails, times out or is superseded.
//
// # Supersession
//
// Starting a new job or cancelling invalidates every older writer. The launcher
// checks the store generation and the poller checks the active handle before any
// mutation; a stale writer stops without a trace beyond a debug log.
//
// # Progress Reporting
//
// Consumers observe the store through [store.StatusStore.Subscribe] or
// [store.StatusStore.Watch]. Terminal outcomes also reach a [RunRecorder] and
// the metrics collectors.
package tasks
