// Package store persists STAT7 identity cores, manifestations, and
// bit-chain event logs in SQLite.
//
// The store is a faithful mirror of the in-memory model: the manifestation
// doc column holds the exact canonical JSON hash input, and event rows are
// keyed by append index so a read-back followed by replay validation
// verifies the persisted chain end to end. All writes are idempotent
// (ON CONFLICT DO NOTHING on immutable rows, upsert for the evolving
// manifestation head).
package store
