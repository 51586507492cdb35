// Package store holds the single mutable [models.SyncContext] of a client session.
//
// [StatusStore] is push-based: every mutation notifies all observers
// synchronously, in registration order, before the mutating call returns.
// Observers receive a copy of the context; a consumer that prefers a channel
// uses [StatusStore.Watch], which drops updates rather than block the writer.
//
// # Live writers
//
// At most one component may mutate the store at a time: the launcher of the most
// recent job, or the poller holding the current handle. Two guards enforce this
// without callers sharing locks:
//   - [StatusStore.Begin] starts a new generation; [StatusStore.UpdateIfGeneration]
//     applies a change only if no newer Begin or Reset happened since.
//   - [StatusStore.UpdateIfHandle] applies a change only while the given handle is
//     still the active one.
//
// The store normalises every write so the phase/error/handle/progress
// invariants of [models.SyncContext] always hold.
package store
