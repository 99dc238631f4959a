// Package storage persists per-device readings into the readings table.
//
// Two sinks implement the same Sink interface:
//
//   - SQLite: a local file opened through internal/infrastructure/database,
//     with the schema applied from the embedded migrations.
//   - Gorm: PostgreSQL through gorm, with the schema created by AutoMigrate.
//
// Each poll cycle uses one Batch: Begin, one Insert per reading, then a
// single Commit. The batch transaction is not bound to the caller's
// cancellation, so an interrupted cycle rolls back cleanly and a commit in
// progress finishes as a unit.
package storage
