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
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/hypha/core"
)

// DefaultTTL is the staleness bound applied when none is configured.
const DefaultTTL = time.Hour

type entry struct {
	Entities  []core.Entity `json:"entities"`
	CreatedAt time.Time     `json:"created_at"`
}

// Cache maps (chunk, schema) fingerprints to previously validated
// extraction results. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	pending map[string]struct{} // fingerprints added since restore
	store   *store              // nil when running memory-only
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the cache's time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Open creates a cache backed by a BadgerDB store at dir and restores all
// live entries into memory. A store that cannot be opened or read is
// logged and discarded; the returned cache then runs memory-only for the
// run. Open never fails because of cache state.
func Open(dir string, ttl time.Duration, opts ...Option) *Cache {
	c := NewMemory(ttl, opts...)

	st, err := openStore(dir, c.logger)
	if err != nil {
		c.logger.Warn("failed to open cache store, running memory-only", "dir", dir, "err", err)
		return c
	}
	c.store = st
	c.restore()
	return c
}

// NewMemory creates a cache with no on-disk store. Persist is a no-op.
func NewMemory(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		entries: make(map[string]entry),
		pending: make(map[string]struct{}),
		ttl:     ttl,
		now:     time.Now,
		logger:  slog.Default().With("component", "extraction-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// restore loads every decodable, unexpired entry from the store. Corrupt
// entries are skipped: the format is private and repair is not attempted.
func (c *Cache) restore() {
	loaded, skipped := 0, 0
	err := c.store.scan(func(fingerprint string, value []byte) error {
		var e entry
		if err := json.Unmarshal(value, &e); err != nil {
			skipped++
			return nil
		}
		if c.expired(e) {
			skipped++
			return nil
		}
		c.entries[fingerprint] = e
		loaded++
		return nil
	})
	if err != nil {
		c.logger.Warn("cache restore failed, starting empty", "err", err)
		c.entries = make(map[string]entry)
		return
	}
	c.logger.Info("cache restored", "entries", loaded, "skipped", skipped)
}

// Get returns the cached entities for the (chunk, schema) pair. A missing
// key and an entry past its TTL are both reported as a miss.
func (c *Cache) Get(chunkText, schemaID string) ([]core.Entity, bool) {
	fingerprint := Fingerprint(chunkText, schemaID)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[fingerprint]
	if !ok {
		return nil, false
	}
	if c.expired(e) {
		delete(c.entries, fingerprint)
		delete(c.pending, fingerprint)
		if c.store != nil {
			if err := c.store.delete([]string{fingerprint}); err != nil {
				c.logger.Warn("failed to drop expired cache entry", "err", err)
			}
		}
		return nil, false
	}
	return e.Entities, true
}

// Put records validated entities for the (chunk, schema) pair. The entry
// reaches disk on the next Persist.
func (c *Cache) Put(chunkText, schemaID string, entities []core.Entity) {
	fingerprint := Fingerprint(chunkText, schemaID)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[fingerprint] = entry{Entities: entities, CreatedAt: c.now()}
	c.pending[fingerprint] = struct{}{}
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Persist flushes entries added since the last restore or Persist to the
// store in a single batch. Called once at the end of a processing run, not
// per chunk, so an interrupted run never corrupts earlier persisted state.
func (c *Cache) Persist() error {
	c.mu.Lock()
	batch := make(map[string][]byte, len(c.pending))
	for fingerprint := range c.pending {
		e, ok := c.entries[fingerprint]
		if !ok {
			continue
		}
		value, err := json.Marshal(e)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		batch[fingerprint] = value
	}
	c.mu.Unlock()

	if c.store == nil || len(batch) == 0 {
		c.clearPending()
		return nil
	}

	if err := c.store.writeBatch(batch); err != nil {
		return err
	}
	c.clearPending()
	c.logger.Debug("cache persisted", "entries", len(batch))
	return nil
}

// Close persists pending entries and closes the underlying store.
func (c *Cache) Close() error {
	if err := c.Persist(); err != nil {
		c.logger.Warn("failed to persist cache on close", "err", err)
	}
	if c.store == nil {
		return nil
	}
	return c.store.close()
}

func (c *Cache) clearPending() {
	c.mu.Lock()
	c.pending = make(map[string]struct{})
	c.mu.Unlock()
}

func (c *Cache) expired(e entry) bool {
	return c.now().Sub(e.CreatedAt) >= c.ttl
}
