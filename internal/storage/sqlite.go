// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS slots (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TEXT NOT NULL
);`

// SQLiteSlot stores the transcript as a row in a SQLite database.
type SQLiteSlot struct {
	db   *sql.DB
	path string
	key  string
}

// OpenSQLiteSlot opens (creating if needed) the database at path.
func OpenSQLiteSlot(path, key string) (*SQLiteSlot, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "create sqlite directory")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite db")
	}
	// SQLite supports one writer at a time
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=2000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "set %s", pragma)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create sqlite schema")
	}

	return &SQLiteSlot{db: db, path: path, key: key}, nil
}

// Read returns the stored value for the slot key.
func (s *SQLiteSlot) Read(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM slots WHERE key = ?", s.key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "read sqlite slot")
	}
	return data, nil
}

// Write upserts the value for the slot key.
func (s *SQLiteSlot) Write(ctx context.Context, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO slots (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.key, data, time.Now().UTC().Format(time.RFC3339))
	return errors.Wrap(err, "write sqlite slot")
}

// Close closes the database.
func (s *SQLiteSlot) Close() error {
	return s.db.Close()
}

// Name returns "sqlite:<path>#<key>".
func (s *SQLiteSlot) Name() string { return "sqlite:" + s.path + "#" + s.key }
