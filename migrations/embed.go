// Package migrations embeds the SQLite schema into the binary.
//
// The PostgreSQL sink creates the same table through gorm, so these files
// are only applied by the SQLite sink.
package migrations

import "embed"

// FS holds every *.sql file in this directory at its root.
//
//go:embed *.sql
var FS embed.FS
