// Package sqlite implements the store.Adapter interface on an embedded
// SQLite database.
//
// The whole store is one table: each collection key maps to a single row
// holding the serialized collection. That mirrors the store contract
// (whole-value reads and writes, no cross-key transactions) while giving
// the durability and crash safety of SQLite's WAL journal.
//
// The driver is modernc.org/sqlite (pure Go, no CGo), registered under the
// name "sqlite" by the blank import.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Adapter is a SQLite-backed store.Adapter.
type Adapter struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and prepares the schema.
// Use ":memory:" for an ephemeral database in tests.
func New(dbPath string) (*Adapter, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows reads to proceed while a write is in flight; busy_timeout
	// makes concurrent writers queue instead of failing with SQLITE_BUSY.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	a := &Adapter{conn: conn}
	if err := a.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return a, nil
}

// Close closes the underlying connection pool.
func (a *Adapter) Close() error {
	return a.conn.Close()
}

func (a *Adapter) migrate() error {
	_, err := a.conn.Exec(`
		CREATE TABLE IF NOT EXISTS collections (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating collections table: %w", err)
	}
	return nil
}

// Get returns the stored value for key, or ok=false if the key is absent.
func (a *Adapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := a.conn.QueryRowContext(ctx,
		`SELECT value FROM collections WHERE key = ?`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: reading key %q: %w", key, err)
	}
	return []byte(value), true, nil
}

// Put replaces the whole value stored under key.
func (a *Adapter) Put(ctx context.Context, key string, value []byte) error {
	_, err := a.conn.ExecContext(ctx,
		`INSERT INTO collections (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: writing key %q: %w", key, err)
	}
	return nil
}

// Delete removes the value stored under key. Deleting an absent key is not
// an error.
func (a *Adapter) Delete(ctx context.Context, key string) error {
	_, err := a.conn.ExecContext(ctx,
		`DELETE FROM collections WHERE key = ?`, key,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting key %q: %w", key, err)
	}
	return nil
}
