// internal/db/db_test.go
package db

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDB(t *testing.T) {
	path := t.TempDir() + "/test.db"
	database, err := New(path)
	if err != nil {
		t.Fatalf("failed to create db: %v", err)
	}
	defer database.Close()

	// Verify WAL mode is enabled
	var journalMode string
	err = database.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected journal_mode=wal, got %s", journalMode)
	}
}

func setupTestDB(t *testing.T) (*DB, func()) {
	path := t.TempDir() + "/test.db"
	database, err := New(path)
	if err != nil {
		t.Fatalf("failed to create db: %v", err)
	}
	err = database.RunMigrations()
	if err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return database, func() { database.Close() }
}

func TestMigrationsCreateSchema(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	for _, table := range []string{
		"plans", "admins", "admin_sessions", "admin_refresh_tokens", "oauth_states",
		"categories", "ingredients", "menus", "menu_ingredients",
		"dining_tables", "orders", "order_items",
	} {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err)
		require.Equal(t, 1, count, "table %s should exist", table)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	// Running twice must not error or duplicate seeded plans
	require.NoError(t, db.RunMigrations())

	var plans int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM plans").Scan(&plans))
	require.Equal(t, 3, plans)
}

func TestOrderStatusConstraint(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := db.Exec(`INSERT INTO admins (id, email) VALUES ('a1', 'a@example.com')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO dining_tables (admin_id, code, name) VALUES ('a1', 'code-1', 'Table 1')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO orders (admin_id, table_id, status) VALUES ('a1', 1, 'bogus')`)
	require.Error(t, err, "unknown status must be rejected")
}
