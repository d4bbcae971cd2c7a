package postgres

import (
	"context"
	"testing"
	"time"
)

func assertMigrationStatus(t *testing.T, store *Store, wantVersion int64, wantCount int) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	version, count, err := store.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("migration status: %v", err)
	}
	if version != wantVersion || count != wantCount {
		t.Fatalf("unexpected status: version=%d count=%d, want version=%d count=%d", version, count, wantVersion, wantCount)
	}
}

func TestMigrator_PostgresUpDownCycle(t *testing.T) {
	store := openRawPostgresStoreForIntegrationTest(t)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = store.EnsureSchema(ctx)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	migrations, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		t.Fatalf("load embedded migrations: %v", err)
	}
	latest := migrations[len(migrations)-1].Version

	if err := store.MigrateDown(ctx, len(migrations)); err != nil {
		t.Fatalf("reset migrations: %v", err)
	}
	assertMigrationStatus(t, store, 0, 0)

	// по одному шагу вверх
	if err := store.MigrateUp(ctx, 1); err != nil {
		t.Fatalf("migrate up one step: %v", err)
	}
	assertMigrationStatus(t, store, migrations[0].Version, 1)

	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("migrate up all: %v", err)
	}
	assertMigrationStatus(t, store, latest, len(migrations))

	// повторный up ничего не меняет
	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("repeated migrate up: %v", err)
	}
	assertMigrationStatus(t, store, latest, len(migrations))

	rows, err := store.DB().QueryContext(ctx, `SELECT version, checksum FROM schema_migrations ORDER BY version`)
	if err != nil {
		t.Fatalf("query recorded checksums: %v", err)
	}
	defer rows.Close()
	i := 0
	for rows.Next() {
		var (
			version int64
			sum     string
		)
		if err := rows.Scan(&version, &sum); err != nil {
			t.Fatalf("scan checksum: %v", err)
		}
		if sum != migrations[i].Checksum {
			t.Fatalf("migration %d recorded checksum %q, want %q", version, sum, migrations[i].Checksum)
		}
		i++
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterate checksums: %v", err)
	}

	// steps<=0 откатывает одну миграцию
	if err := store.MigrateDown(ctx, 0); err != nil {
		t.Fatalf("migrate down default step: %v", err)
	}
	assertMigrationStatus(t, store, migrations[len(migrations)-2].Version, len(migrations)-1)

	if err := store.MigrateDown(ctx, len(migrations)); err != nil {
		t.Fatalf("migrate down rest: %v", err)
	}
	assertMigrationStatus(t, store, 0, 0)

	if err := store.MigrateDown(ctx, 1); err != nil {
		t.Fatalf("migrate down on empty schema must be a no-op: %v", err)
	}
}

func TestMigrator_GuardsAndUnsupportedDirection(t *testing.T) {
	var nilStore *Store
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := nilStore.MigrateUp(ctx, 0); err == nil {
		t.Fatal("expected error for nil store MigrateUp")
	}
	if err := nilStore.MigrateDown(ctx, 1); err == nil {
		t.Fatal("expected error for nil store MigrateDown")
	}
	if _, _, err := nilStore.MigrationStatus(ctx); err == nil {
		t.Fatal("expected error for nil store MigrationStatus")
	}

	store := openRawPostgresStoreForIntegrationTest(t)
	if err := store.migrate(ctx, migrationDirection("invalid"), 0); err == nil {
		t.Fatal("expected unsupported direction error")
	}
}
