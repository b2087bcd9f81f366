// Package engine replicates legacy change-log entries into the application
// store.
//
// ARCHITECTURE:
//
// Single-Threaded Batch Run:
// Engine.Run makes one pass over the change log and returns. Entries are
// processed one at a time so relative order between conflicting mutations is
// the order the legacy triggers wrote them in.
//
// Processing Order:
//  1. Entities in the order target, target extra, photometry, spectroscopy
//  2. Actions in the order delete, insert, update
//  3. Entries oldest first
//
// Deletes run first because a row can be deleted and a different row
// inserted under the same id within one batch.
//
// Exactly-Once Effect:
// There is no transaction spanning both stores. Each entry is applied in its
// own destination transaction; the change-log entry is deleted only after
// that commit. Every write first looks up its natural key, so re-applying an
// entry whose retirement was lost to a crash changes nothing.
//
// Failure Isolation:
// A connectivity failure aborts the run. Any other failure defers just that
// entry: it stays in the change log, is listed in the Report and the pass
// moves on.
package engine
