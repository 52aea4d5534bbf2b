// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package cache

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/callboard/internal/logging"
)

const badgerKeyPrefix = "analytics:"

// BadgerCache persists entries in BadgerDB so that a restart does not
// discard payloads that are still fresh. Expiry is stored with the value
// and checked against the injected clock on every read.
type BadgerCache struct {
	db  *badger.DB
	ttl time.Duration
	now Clock

	hits   atomic.Int64
	misses atomic.Int64
}

type badgerEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OpenBadger opens (or creates) a badger directory at path. An empty path
// opens an in-memory instance.
func OpenBadger(path string, ttl time.Duration, opts ...Option) (*BadgerCache, error) {
	bopts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		bopts = bopts.WithInMemory(true)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return NewBadgerCache(db, ttl, opts...), nil
}

// NewBadgerCache wraps an already opened badger database.
func NewBadgerCache(db *badger.DB, ttl time.Duration, opts ...Option) *BadgerCache {
	o := buildOptions(opts)
	return &BadgerCache{db: db, ttl: ttl, now: o.now}
}

// Get returns the value for key while now < expiry.
func (c *BadgerCache) Get(key string) ([]byte, bool) {
	var entry badgerEntry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			logging.Warn().Err(err).Str("key", key).Msg("Analytics cache read failed")
		}
		c.misses.Add(1)
		return nil, false
	}
	if !c.now().Before(entry.ExpiresAt) {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return entry.Data, true
}

// Set stores value with the default TTL.
func (c *BadgerCache) Set(key string, value []byte) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value with a custom TTL. Write failures are logged; a
// cache that cannot persist degrades to recomputing.
func (c *BadgerCache) SetWithTTL(key string, value []byte, ttl time.Duration) {
	data, err := json.Marshal(badgerEntry{Data: value, ExpiresAt: c.now().Add(ttl)})
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("Analytics cache encode failed")
		return
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerKeyPrefix+key), data)
	})
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("Analytics cache write failed")
	}
}

// GetStats returns a snapshot of the cache counters.
func (c *BadgerCache) GetStats() Stats {
	var keys int64
	_ = c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(badgerKeyPrefix)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys++
		}
		return nil
	})
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), TotalKeys: keys}
}

// Close closes the underlying database.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}
