package internal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const kvSchema = `CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// OpenDatabase opens (creating if needed) a SQLite database with the kv table
func OpenDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := db.Exec(kvSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	return db, nil
}

// SQLiteStore implements KVStore on a SQLite kv table
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens the store at path
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, &StorageError{Key: path, Op: "open", Err: err}
	}
	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStore wraps an already opened database that has the kv table
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get implements KVStore.
func (s *SQLiteStore) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	query := "SELECT key, value FROM kv WHERE key IN (" + placeholders + ")"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Key: strings.Join(keys, ","), Op: "get", Err: errors.Wrap(err, "query failed")}
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, &StorageError{Key: key, Op: "get", Err: errors.Wrap(err, "scan failed")}
		}
		if value.Valid {
			out[key] = []byte(value.String)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "get", Err: errors.Wrap(err, "rows iteration error")}
	}

	return out, nil
}

// Set implements KVStore. All values are written in one transaction.
func (s *SQLiteStore) Set(ctx context.Context, values map[string]any) error {
	encoded, err := encodeValues(values)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "set", Err: errors.Wrap(err, "begin failed")}
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value")
	if err != nil {
		return &StorageError{Op: "set", Err: errors.Wrap(err, "prepare failed")}
	}
	defer stmt.Close()

	for k, v := range encoded {
		if _, err := stmt.ExecContext(ctx, k, string(v)); err != nil {
			return &StorageError{Key: k, Op: "set", Err: errors.Wrap(err, "write failed")}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "set", Err: errors.Wrap(err, "commit failed")}
	}
	return nil
}

// Close implements KVStore.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
