// Package store persists batch tasks in a local SQLite database.
//
// Each task is one row in the batch_tasks table: scalar fields as columns,
// and the config, items, and results collections as three independently
// serialized JSON text columns. The store round-trips those blobs without
// interpreting them.
//
// Upsert is insert-or-replace by task id, last write wins; callers serialize
// writes per task id themselves. Concurrent access safety comes from
// SQLite's own locking.
package store
