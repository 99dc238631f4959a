package database

import (
	"context"
	"testing"
	"testing/fstest"
	"time"
)

var testMigrations = fstest.MapFS{
	"20260301_120000_create_samples.up.sql": {Data: []byte(`
		CREATE TABLE samples (id INTEGER PRIMARY KEY, value REAL NOT NULL);
		CREATE INDEX idx_samples_value ON samples (value);
	`)},
	"20260301_120000_create_samples.down.sql": {Data: []byte(`DROP TABLE samples;`)},
	"20260302_090000_add_label.up.sql":        {Data: []byte(`ALTER TABLE samples ADD COLUMN label TEXT;`)},
	"README.md":                               {Data: []byte("not a migration")},
}

// TestMigrate verifies migration application and idempotence.
func TestMigrate(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(ctx, testMigrations); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	if _, err := db.ExecContext(ctx, "INSERT INTO samples (value, label) VALUES (?, ?)", 1.5, "x"); err != nil {
		t.Fatalf("schema not applied: %v", err)
	}

	versions, err := db.AppliedVersions(ctx)
	if err != nil {
		t.Fatalf("AppliedVersions() error = %v", err)
	}
	want := []string{"20260301_120000", "20260302_090000"}
	if len(versions) != len(want) || versions[0] != want[0] || versions[1] != want[1] {
		t.Errorf("AppliedVersions() = %v, want %v", versions, want)
	}

	if err := db.Migrate(ctx, testMigrations); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

// TestMigrateFailureRollsBack verifies a failing migration leaves no record.
func TestMigrateFailureRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	broken := fstest.MapFS{
		"20260301_120000_ok.up.sql":     {Data: []byte(`CREATE TABLE ok_table (id INTEGER);`)},
		"20260302_120000_broken.up.sql": {Data: []byte(`CREATE TABLE broken (;`)},
	}

	if err := db.Migrate(ctx, broken); err == nil {
		t.Fatal("Migrate() expected error for broken SQL")
	}

	versions, err := db.AppliedVersions(ctx)
	if err != nil {
		t.Fatalf("AppliedVersions() error = %v", err)
	}
	if len(versions) != 1 || versions[0] != "20260301_120000" {
		t.Errorf("AppliedVersions() = %v, want only the first migration", versions)
	}
}

// TestMigrateNoMigrations verifies a nil or empty source is a no-op.
func TestMigrateNoMigrations(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, nil); err != nil {
		t.Errorf("Migrate(nil) error = %v", err)
	}
	if err := db.Migrate(ctx, fstest.MapFS{}); err != nil {
		t.Errorf("Migrate(empty) error = %v", err)
	}
}

// TestParseMigrationFilename verifies filename parsing.
func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion string
		wantIsUp    bool
		wantOk      bool
	}{
		{
			name:        "valid up migration",
			filename:    "20260301_120000_readings.up.sql",
			wantVersion: "20260301_120000",
			wantIsUp:    true,
			wantOk:      true,
		},
		{
			name:        "valid down migration",
			filename:    "20260301_120000_readings.down.sql",
			wantVersion: "20260301_120000",
			wantIsUp:    false,
			wantOk:      true,
		},
		{name: "not sql file", filename: "readme.txt", wantOk: false},
		{name: "missing direction", filename: "20260301_120000_readings.sql", wantOk: false},
		{name: "invalid format", filename: "invalid.up.sql", wantOk: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk {
				t.Errorf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok {
				if version != tt.wantVersion {
					t.Errorf("version = %v, want %v", version, tt.wantVersion)
				}
				if isUp != tt.wantIsUp {
					t.Errorf("isUp = %v, want %v", isUp, tt.wantIsUp)
				}
			}
		})
	}
}

// TestExtractMigrationName verifies name extraction.
func TestExtractMigrationName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"20260301_120000_readings.up.sql", "readings"},
		{"20260301_120000_readings.down.sql", "readings"},
		{"20260302_090000_add_recorded_at_index.up.sql", "add_recorded_at_index"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := extractMigrationName(tt.filename); got != tt.want {
				t.Errorf("extractMigrationName(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}
