// Package store archives serialized lineage records in SQLite.
//
// Records are content-addressed: the digest of a record's canonical JSON is
// unique, so archiving the same lineage twice returns the existing entry.
// Each archived record also lists its transformation names in
// lineage_steps, one row per step, for lookup by transformation.
//
// # Ordering
//
// Entries carry a seq assigned at insert time (a logical clock). All list
// queries use ORDER BY seq ASC, id ASC COLLATE BINARY, so results never
// depend on wall time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
