package postgres

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoadMigrationsFromFS_Success(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0001_init.up.sql": {
			Data: []byte("CREATE TABLE test_a (id INT);"),
		},
		"sql/migrations/0001_init.down.sql": {
			Data: []byte("DROP TABLE IF EXISTS test_a;"),
		},
		"sql/migrations/0002_more.up.sql": {
			Data: []byte("CREATE TABLE test_b (id INT);"),
		},
		"sql/migrations/0002_more.down.sql": {
			Data: []byte("DROP TABLE IF EXISTS test_b;"),
		},
	}

	migrations, err := loadMigrationsFromFS(fsys)
	if err != nil {
		t.Fatalf("loadMigrationsFromFS failed: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}

	if migrations[0].Version != 1 || migrations[0].Name != "init" {
		t.Fatalf("unexpected first migration: %+v", migrations[0])
	}
	if migrations[1].Version != 2 || migrations[1].Name != "more" {
		t.Fatalf("unexpected second migration: %+v", migrations[1])
	}
}

func TestLoadMigrationsFromFS_MissingDown(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0001_init.up.sql": {
			Data: []byte("CREATE TABLE test_a (id INT);"),
		},
	}

	_, err := loadMigrationsFromFS(fsys)
	if err == nil {
		t.Fatal("expected error for missing down migration")
	}
	if !strings.Contains(err.Error(), "both up and down") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadMigrationsFromFS_InvalidFilename(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/not_a_migration.sql": {
			Data: []byte("SELECT 1;"),
		},
	}

	_, err := loadMigrationsFromFS(fsys)
	if err == nil {
		t.Fatal("expected error for invalid migration file name")
	}
}

func TestLoadMigrationsFromFS_EmptyFile(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0001_init.up.sql": {
			Data: []byte("   \n"),
		},
		"sql/migrations/0001_init.down.sql": {
			Data: []byte("DROP TABLE IF EXISTS test;"),
		},
	}

	_, err := loadMigrationsFromFS(fsys)
	if err == nil {
		t.Fatal("expected error for empty migration file body")
	}
}

func testMigrations(t *testing.T) []migration {
	t.Helper()

	migrations, err := loadMigrationsFromFS(fstest.MapFS{
		"sql/migrations/0001_init.up.sql":   {Data: []byte("CREATE TABLE a (id INT);")},
		"sql/migrations/0001_init.down.sql": {Data: []byte("DROP TABLE a;")},
		"sql/migrations/0002_more.up.sql":   {Data: []byte("CREATE TABLE b (id INT);")},
		"sql/migrations/0002_more.down.sql": {Data: []byte("DROP TABLE b;")},
		"sql/migrations/0003_last.up.sql":   {Data: []byte("CREATE TABLE c (id INT);")},
		"sql/migrations/0003_last.down.sql": {Data: []byte("DROP TABLE c;")},
	})
	if err != nil {
		t.Fatalf("loadMigrationsFromFS failed: %v", err)
	}
	return migrations
}

func versionsOf(plan []migration) []int64 {
	versions := make([]int64, 0, len(plan))
	for _, m := range plan {
		versions = append(versions, m.Version)
	}
	return versions
}

func TestLoadMigrationsFromFS_Checksum(t *testing.T) {
	t.Parallel()

	migrations := testMigrations(t)
	if migrations[0].Checksum != checksum("CREATE TABLE a (id INT);") {
		t.Fatalf("unexpected checksum: %s", migrations[0].Checksum)
	}
	if migrations[0].Checksum == migrations[1].Checksum {
		t.Fatal("different bodies must produce different checksums")
	}
}

func TestLoadMigrationsFromFS_NameMismatch(t *testing.T) {
	t.Parallel()

	_, err := loadMigrationsFromFS(fstest.MapFS{
		"sql/migrations/0001_init.up.sql":    {Data: []byte("SELECT 1;")},
		"sql/migrations/0001_other.down.sql": {Data: []byte("SELECT 1;")},
	})
	if err == nil || !strings.Contains(err.Error(), "name mismatch") {
		t.Fatalf("expected name mismatch error, got %v", err)
	}
}

func TestPlanMigrations_Up(t *testing.T) {
	t.Parallel()

	migrations := testMigrations(t)
	applied := []appliedMigration{{Version: 1, Checksum: migrations[0].Checksum}}

	plan, err := planMigrations(migrations, applied, migrationUp, 0)
	if err != nil {
		t.Fatalf("planMigrations failed: %v", err)
	}
	if got := versionsOf(plan); len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Fatalf("unexpected up plan: %v", got)
	}

	plan, err = planMigrations(migrations, applied, migrationUp, 1)
	if err != nil {
		t.Fatalf("planMigrations failed: %v", err)
	}
	if got := versionsOf(plan); len(got) != 1 || got[0] != 2 {
		t.Fatalf("unexpected single-step plan: %v", got)
	}
}

func TestPlanMigrations_UpDetectsModifiedMigration(t *testing.T) {
	t.Parallel()

	migrations := testMigrations(t)
	applied := []appliedMigration{{Version: 1, Checksum: checksum("CREATE TABLE a (id BIGINT);")}}

	_, err := planMigrations(migrations, applied, migrationUp, 0)
	if !errors.Is(err, ErrMigrationChecksum) {
		t.Fatalf("expected ErrMigrationChecksum, got %v", err)
	}

	// записи без checksum (до появления колонки) не сверяются
	applied[0].Checksum = ""
	if _, err := planMigrations(migrations, applied, migrationUp, 0); err != nil {
		t.Fatalf("legacy record must be accepted: %v", err)
	}
}

func TestPlanMigrations_Down(t *testing.T) {
	t.Parallel()

	migrations := testMigrations(t)
	applied := []appliedMigration{{Version: 1}, {Version: 2}, {Version: 3}}

	plan, err := planMigrations(migrations, applied, migrationDown, 2)
	if err != nil {
		t.Fatalf("planMigrations failed: %v", err)
	}
	if got := versionsOf(plan); len(got) != 2 || got[0] != 3 || got[1] != 2 {
		t.Fatalf("unexpected down plan: %v", got)
	}

	_, err = planMigrations(migrations, []appliedMigration{{Version: 9}}, migrationDown, 1)
	if err == nil || !strings.Contains(err.Error(), "unknown migration version 9") {
		t.Fatalf("expected unknown version error, got %v", err)
	}
}

func TestPlanMigrations_UnsupportedDirection(t *testing.T) {
	t.Parallel()

	if _, err := planMigrations(testMigrations(t), nil, migrationDirection("sideways"), 1); err == nil {
		t.Fatal("expected error for unsupported direction")
	}
}
