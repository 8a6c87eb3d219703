package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

const kvTableSQL = `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`

// CreateInMemoryDB creates an in-memory SQLite database with the kv table
func CreateInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	// every connection to ":memory:" is a fresh database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(kvTableSQL); err != nil {
		db.Close()
		t.Fatalf("Failed to create kv table: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// CreateTestDB creates an in-memory database holding a small two-session history
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := CreateInMemoryDB(t)
	InsertValue(t, db, "messages", SampleMessagesJSON)
	InsertValue(t, db, "enabled", "true")
	InsertValue(t, db, "manslaterMode", "false")
	return db
}

// InsertValue stores a raw JSON value under key
func InsertValue(t *testing.T, db *sql.DB, key, value string) {
	t.Helper()
	insertSQL := "INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value"
	if _, err := db.Exec(insertSQL, key, value); err != nil {
		t.Fatalf("Failed to insert %s: %v", key, err)
	}
}

// ReadValue returns the raw value stored under key, or "" when absent
func ReadValue(t *testing.T, db *sql.DB, key string) string {
	t.Helper()
	var value string
	err := db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return ""
	}
	if err != nil {
		t.Fatalf("Failed to read %s: %v", key, err)
	}
	return value
}
