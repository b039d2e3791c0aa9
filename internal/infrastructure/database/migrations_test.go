package database

import (
	"context"
	"io/fs"
	"testing"
	"testing/fstest"
)

func useMigrations(t *testing.T, fsys fs.FS) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() {
		MigrationsFS, MigrationsDir = origFS, origDir
	})
	MigrationsFS, MigrationsDir = fsys, "."
}

func sampleMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20260301_120000_controller_state.up.sql": {
			Data: []byte("CREATE TABLE sample_state (key TEXT PRIMARY KEY, data TEXT);"),
		},
		"20260301_120000_controller_state.down.sql": {
			Data: []byte("DROP TABLE sample_state;"),
		},
		"20260302_090000_add_column.up.sql": {
			Data: []byte("ALTER TABLE sample_state ADD COLUMN version INTEGER DEFAULT 1;"),
		},
		"README.md": {Data: []byte("ignored")},
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	return count == 1
}

func TestMigrate(t *testing.T) {
	useMigrations(t, sampleMigrations())
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "sample_state") {
		t.Fatal("sample_state not created")
	}

	applied, pending, err := db.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("Status() applied=%v pending=%v, want 2 applied and none pending", applied, pending)
	}

	// Idempotent.
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrate_FailureKeepsEarlierMigrations(t *testing.T) {
	fsys := sampleMigrations()
	fsys["20260302_090000_add_column.up.sql"] = &fstest.MapFile{Data: []byte("NOT SQL AT ALL")}
	useMigrations(t, fsys)
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err == nil {
		t.Fatal("Migrate() expected error for broken migration")
	}

	applied, pending, err := db.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(applied) != 1 || applied[0] != "20260301_120000" {
		t.Errorf("applied = %v, want [20260301_120000]", applied)
	}
	if len(pending) != 1 || pending[0] != "20260302_090000" {
		t.Errorf("pending = %v, want [20260302_090000]", pending)
	}
}

func TestMigrateDown(t *testing.T) {
	fsys := sampleMigrations()
	delete(fsys, "20260302_090000_add_column.up.sql")
	useMigrations(t, fsys)
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "sample_state") {
		t.Error("sample_state should have been dropped")
	}

	applied, _, err := db.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("applied = %v after rollback, want none", applied)
	}

	// Nothing left to roll back.
	if err := db.MigrateDown(ctx); err != nil {
		t.Errorf("MigrateDown() on empty history error = %v", err)
	}
}

func TestMigrateDown_MissingDownSQL(t *testing.T) {
	useMigrations(t, sampleMigrations())
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	// Latest migration has no .down.sql.
	if err := db.MigrateDown(ctx); err == nil {
		t.Error("MigrateDown() expected error for migration without down SQL")
	}
}

func TestMigrate_NoMigrations(t *testing.T) {
	useMigrations(t, nil)
	db := openTestDB(t)

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() with no migrations error = %v", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantIsUp    bool
		wantOk      bool
	}{
		{"20260301_120000_controller_state.up.sql", "20260301_120000", "controller_state", true, true},
		{"20260301_120000_controller_state.down.sql", "20260301_120000", "controller_state", false, true},
		{"20260301_120000_add_booster_column.up.sql", "20260301_120000", "add_booster_column", true, true},
		{"readme.txt", "", "", false, false},
		{"20260301_120000_controller_state.sql", "", "", false, false},
		{"invalid.up.sql", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if !ok {
				return
			}
			if version != tt.wantVersion {
				t.Errorf("version = %q, want %q", version, tt.wantVersion)
			}
			if name != tt.wantName {
				t.Errorf("name = %q, want %q", name, tt.wantName)
			}
			if isUp != tt.wantIsUp {
				t.Errorf("isUp = %v, want %v", isUp, tt.wantIsUp)
			}
		})
	}
}
