// Package models defines the value types shared by the sync orchestration core.
//
// The aggregate exposed to presentation code is [SyncContext]:
//   - [SyncPhase] : Idle, Syncing, Completed or Failed; exactly one at a time
//   - [SyncStats] : additive counts of processed, added and updated items, replaced wholesale
//   - [TaskHandle] : identifier of a dispatched background job, empty when none is active
//
// Trigger inputs and outputs:
//   - [TriggerReason] : why a check was requested (page visit, schedule, user)
//   - [SyncDecision] : whether a job should start, with its [SyncReason]
//   - [SyncMetadata] : last successful sync and items observed since
//
// Types in this package carry no behaviour beyond validation and formatting; all
// state transitions live in the store and tasks packages.
package models
