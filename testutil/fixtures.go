package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// SampleMessagesJSON is a newest-first history over two sessions
const SampleMessagesJSON = `[
	{"text":"See you at 6","timestamp":1712138700000,"type":"incoming","platform":"whatsapp","sessionId":"Alice::chat-a","chatTitle":"Alice"},
	{"text":"Dinner tonight?","timestamp":1712138640000,"type":"outgoing","platform":"whatsapp","sessionId":"Alice::chat-a","chatTitle":"Alice"},
	{"text":"Build is green","timestamp":1712138000000,"type":"incoming","platform":"whatsapp","sessionId":"Team::chat-b","chatTitle":"Team"}
]`

// CreateSQLiteFixture creates a SQLite database file holding the sample history
func CreateSQLiteFixture(t *testing.T, dbPath string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(kvTableSQL); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	InsertValue(t, db, "messages", SampleMessagesJSON)
}

// CreateSnapshotFixture writes an HTML page snapshot and returns its path
func CreateSnapshotFixture(t *testing.T, dir, name, html string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create snapshot directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		t.Fatalf("Failed to write snapshot %s: %v", path, err)
	}
	return path
}

// CreateConfigFixture writes a YAML config file and returns its path
func CreateConfigFixture(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}
