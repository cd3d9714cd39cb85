// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package cache

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

const entryKeyPrefix = "ext:"

// store wraps the BadgerDB instance backing the cache on disk.
type store struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// openStore opens a BadgerDB database at the specified directory,
// creating it if needed.
func openStore(dir string, logger *slog.Logger) (*store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &store{db: db, logger: logger}, nil
}

// scan iterates every cache entry on disk, invoking fn with the fingerprint
// and raw value bytes.
func (s *store) scan(fn func(fingerprint string, value []byte) error) error {
	return s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryKeyPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			fingerprint := string(item.Key()[len(entryKeyPrefix):])
			err := item.Value(func(value []byte) error {
				return fn(fingerprint, value)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// writeBatch persists the given entries in one atomic batch.
func (s *store) writeBatch(entries map[string][]byte) error {
	batch := s.db.NewWriteBatch()
	defer batch.Cancel()

	for fingerprint, value := range entries {
		if err := batch.Set([]byte(entryKeyPrefix+fingerprint), value); err != nil {
			return err
		}
	}
	return batch.Flush()
}

// delete removes entries by fingerprint.
func (s *store) delete(fingerprints []string) error {
	batch := s.db.NewWriteBatch()
	defer batch.Cancel()

	for _, fingerprint := range fingerprints {
		if err := batch.Delete([]byte(entryKeyPrefix + fingerprint)); err != nil {
			return err
		}
	}
	return batch.Flush()
}

func (s *store) close() error {
	return s.db.Close()
}
