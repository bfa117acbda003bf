package db

import (
	"io/fs"
	"path/filepath"
	"testing"
	"testing/fstest"
)

// setupMigrationTestDB opens a database without running migrations.
func setupMigrationTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testMigrations() fs.FS {
	return fstest.MapFS{
		"000001_create_test_table.up.sql": {Data: []byte(`
			CREATE TABLE IF NOT EXISTS test_table (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL
			);`)},
		"000001_create_test_table.down.sql": {Data: []byte(`DROP TABLE IF EXISTS test_table;`)},
		"000002_add_test_column.up.sql":     {Data: []byte(`ALTER TABLE test_table ADD COLUMN description TEXT;`)},
		"000002_add_test_column.down.sql":   {Data: []byte(`ALTER TABLE test_table DROP COLUMN description;`)},
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n); err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	return n > 0
}

func TestMigrateUpDown(t *testing.T) {
	db := setupMigrationTestDB(t)
	migrations := testMigrations()

	version, dirty, err := db.MigrateVersion(migrations)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 0 || dirty {
		t.Errorf("expected fresh database at version 0, got %d (dirty %v)", version, dirty)
	}

	if err := db.MigrateUp(migrations); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	// Second run is a no-op.
	if err := db.MigrateUp(migrations); err != nil {
		t.Fatalf("repeated MigrateUp failed: %v", err)
	}
	version, _, _ = db.MigrateVersion(migrations)
	if version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}

	if err := db.MigrateDown(migrations); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}
	version, _, _ = db.MigrateVersion(migrations)
	if version != 1 {
		t.Errorf("expected version 1 after down, got %d", version)
	}

	if err := db.MigrateTo(migrations, 2); err != nil {
		t.Fatalf("MigrateTo failed: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO test_table (name, description) VALUES ('a', 'b')`); err != nil {
		t.Errorf("expected description column after MigrateTo(2): %v", err)
	}
}

func TestMigrateForce(t *testing.T) {
	db := setupMigrationTestDB(t)
	migrations := testMigrations()

	if err := db.MigrateForce(migrations, 1); err != nil {
		t.Fatalf("MigrateForce failed: %v", err)
	}
	version, dirty, err := db.MigrateVersion(migrations)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("expected forced version 1, got %d (dirty %v)", version, dirty)
	}
	if tableExists(t, db, "test_table") {
		t.Errorf("force must not run migrations")
	}
}

func TestMigrateNilFS(t *testing.T) {
	db := setupMigrationTestDB(t)
	if err := db.MigrateUp(nil); err == nil {
		t.Error("expected error for nil migrations filesystem")
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := MigrationsFS()
	if err != nil {
		t.Fatalf("MigrationsFS failed: %v", err)
	}
	latest, err := GetLatestMigrationVersion(migrations)
	if err != nil {
		t.Fatalf("GetLatestMigrationVersion failed: %v", err)
	}
	if latest != 2 {
		t.Errorf("expected latest embedded version 2, got %d", latest)
	}

	db := setupMigrationTestDB(t)
	if err := db.MigrateUp(migrations); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	for _, table := range []string{"profiles", "profile_samples", "compressibility_coefficients"} {
		if !tableExists(t, db, table) {
			t.Errorf("expected table %s", table)
		}
	}

	status, err := db.GetMigrationStatus(migrations)
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}
	if status["current_version"] != uint(2) || status["schema_migrations_exists"] != true {
		t.Errorf("unexpected status %v", status)
	}

	for i := 0; i < 2; i++ {
		if err := db.MigrateDown(migrations); err != nil {
			t.Fatalf("MigrateDown failed: %v", err)
		}
	}
	if tableExists(t, db, "profiles") {
		t.Error("expected profiles table to be dropped")
	}
}

func TestGetLatestMigrationVersionEmpty(t *testing.T) {
	if _, err := GetLatestMigrationVersion(fstest.MapFS{}); err == nil {
		t.Error("expected error for empty migrations")
	}
}

func TestDevModeMigrations(t *testing.T) {
	orig := DevMode
	DevMode = true
	defer func() { DevMode = orig }()

	migrations, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS failed: %v", err)
	}
	if migrations == nil {
		t.Fatal("expected a filesystem in DevMode")
	}
}
