// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

const badgerRulePrefix = "rule/"

// BadgerConfig holds configuration for the badger-backed rule store.
type BadgerConfig struct {
	// Path is the directory for database files.
	// Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger is the logger for database operations.
	// If nil, badger's internal logging is disabled.
	Logger *slog.Logger
}

// DefaultBadgerConfig returns production defaults for a persistent store.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:       path,
		SyncWrites: true,
	}
}

// InMemoryBadgerConfig returns configuration for testing. Data is lost
// when the store is closed.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{
		InMemory:   true,
		SyncWrites: false,
	}
}

// badgerLogger adapts slog.Logger to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerStore persists rules in an embedded BadgerDB under keys
// rule/<id> with JSON-encoded values.
//
// Thread Safety: the underlying *badger.DB is safe for concurrent use;
// the owning Store serializes Save calls.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore creates and opens a badger-backed persistence with
// the given configuration. Caller must call Close when done.
func OpenBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent rule store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create rule store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open rule store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// LoadAll reads every persisted rule. An undecodable value wraps
// ErrCorruptStore and aborts the load.
func (b *BadgerStore) LoadAll() ([]*Rule, error) {
	var out []*Rule
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerRulePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			err := item.Value(func(val []byte) error {
				var r Rule
				if err := json.Unmarshal(val, &r); err != nil {
					return fmt.Errorf("%w: decoding %s: %v", ErrCorruptStore, key, err)
				}
				out = append(out, &r)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Save upserts one rule under rule/<id>.
func (b *BadgerStore) Save(r *Rule) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding rule %s: %w", r.ID, err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerRulePrefix+r.ID), data)
	})
	if err != nil {
		return fmt.Errorf("writing rule %s: %w", r.ID, err)
	}
	return nil
}

// Close releases the underlying database.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}
