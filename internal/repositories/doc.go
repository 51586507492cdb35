// Package repositories implements SQLite persistence for sync history.
//
// Key Implementations:
//   - [SyncRunRepository] : terminal job outcomes with per-table sequence numbers
//   - [MetadataRepository] : the single-row pending item counter
//   - [HistoryAdapter] : exposes both as the metadata source and run recorder of the orchestrator
//
// Sequence numbers give runs a stable, human-readable order (run #42) independent of UUIDs.
// [NextSequence] atomically increments counters kept in dedicated sequence tables.
package repositories
