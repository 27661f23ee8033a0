// Package sqlitekv implements backend.KeyValueStore over a sqlite database,
// used by the persistent key-value filesystem backend and the kv-store
// checkpointer (spec §6.4). It is grounded on internal/storage/sqlite's
// New()-opens-and-migrates-schema shape, generalized from an issue-tracker
// schema to a single generic key/value table, and standardized on
// github.com/ncruces/go-sqlite3 — the module's actual declared sqlite
// driver (pure Go, no cgo), rather than the cgo mattn/go-sqlite3 driver the
// teacher's issue-tracker storage uses for its much richer relational
// schema.
package sqlitekv

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	namespace TEXT NOT NULL,
	key       TEXT NOT NULL,
	value     BLOB NOT NULL,
	PRIMARY KEY (namespace, key)
);
`

// Store is a sqlite-backed backend.KeyValueStore.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a sqlite database at path and ensures
// the kv schema exists, following internal/storage/sqlite.New's
// MkdirAll-then-open-then-migrate sequence.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlitekv directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlitekv database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlitekv database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate sqlitekv schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func joinNamespace(namespace []string) string {
	return strings.Join(namespace, "\x00")
}

func (s *Store) Get(ctx context.Context, namespace []string, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`,
		joinNamespace(namespace), key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlitekv get: %w", err)
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, namespace []string, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (namespace, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value`,
		joinNamespace(namespace), key, value,
	)
	if err != nil {
		return fmt.Errorf("sqlitekv set: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, namespace []string, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM kv WHERE namespace = ? AND key = ?`,
		joinNamespace(namespace), key,
	)
	if err != nil {
		return fmt.Errorf("sqlitekv delete: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, namespace []string) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM kv WHERE namespace = ?`,
		joinNamespace(namespace),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlitekv list: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("sqlitekv list scan: %w", err)
		}
		out[key] = value
	}
	return out, rows.Err()
}
