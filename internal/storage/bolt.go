// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// boltBucket holds every rkai slot inside the database file.
var boltBucket = []byte("rkai")

// BoltSlot stores the transcript under a key in a bbolt database.
//
// The database is opened per operation so a second rkai process (for
// example "rkai history list" while the TUI is running) only waits for the
// file lock instead of failing for the whole session.
type BoltSlot struct {
	path    string
	key     []byte
	timeout time.Duration
}

// NewBoltSlot creates a slot for key inside the bbolt database at path.
func NewBoltSlot(path, key string) *BoltSlot {
	return &BoltSlot{
		path:    path,
		key:     []byte(key),
		timeout: 2 * time.Second,
	}
}

func (s *BoltSlot) open() (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, errors.Wrap(err, "create bolt directory")
	}
	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: s.timeout})
	if err != nil {
		return nil, errors.Wrapf(err, "open bolt db %s", s.path)
	}
	return db, nil
}

// Read returns the stored bytes for the slot key.
func (s *BoltSlot) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil, ErrSlotNotFound
	}
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	var out []byte
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		if b == nil {
			return ErrSlotNotFound
		}
		v := b.Get(s.key)
		if v == nil {
			return ErrSlotNotFound
		}
		// Values are only valid for the life of the transaction.
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Write replaces the value for the slot key.
func (s *BoltSlot) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db, err := s.open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return err
		}
		return b.Put(s.key, data)
	})
	return errors.Wrap(err, "write bolt slot")
}

// Close is a no-op; the database is never held open between operations.
func (s *BoltSlot) Close() error { return nil }

// Name returns "bolt:<path>#<key>".
func (s *BoltSlot) Name() string { return "bolt:" + s.path + "#" + string(s.key) }
