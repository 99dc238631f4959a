// Package database provides the SQLite connection behind the readings sink.
//
// This package manages:
//   - Database connection with WAL mode for concurrent readers
//   - Schema migrations from an fs.FS of YYYYMMDD_HHMMSS_name.up.sql files
//   - Connection lifecycle and health checks
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Storage.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns must be NULLABLE or carry a DEFAULT.
package database
