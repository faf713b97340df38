// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides transcript persistence for rkai.
//
// The transcript lives in a single named slot ("rk_ai_history") holding a
// JSON array of turn records. The slot itself is pluggable so the same
// document can be kept in a plain file, a bbolt database or SQLite.
//
// # Key Types
//
//   - TranscriptStore: Ordered, validated, persisted list of turns
//   - Slot: Durable key/value cell holding the encoded transcript
//   - FileSlot, BoltSlot, SQLiteSlot, MemorySlot: Slot backends
//   - LoadReport: What Load kept, dropped and repaired
//
// # Usage
//
//	slot, err := storage.OpenSlot(storage.SlotOptions{Backend: "file", Path: path})
//	store := storage.NewTranscriptStore(slot, storage.WithLogger(logger))
//	turns := store.Load(ctx) // never fails; corrupt data yields an empty transcript
//	err = store.Append(ctx, model.NewUserTurn("hello"))
//
// # Durability
//
// Every mutation writes the full snapshot before returning. If the write
// fails the in-memory transcript keeps the mutation and the error is
// returned wrapped as ErrPersist.
package storage
