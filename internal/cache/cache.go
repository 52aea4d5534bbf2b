// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Entry is a cached value with its expiry.
type Entry struct {
	Data      []byte
	ExpiresAt time.Time
}

// Cache is a process-local TTL cache safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration
	now     Clock

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates an in-memory cache whose entries live for ttl.
//
//	c := cache.New(60*time.Second)
//	c.Set(key, payload)
//	if data, ok := c.Get(key); ok {
//	    // serve data
//	}
func New(ttl time.Duration, opts ...Option) *Cache {
	o := buildOptions(opts)
	return &Cache{
		entries: make(map[string]Entry),
		ttl:     ttl,
		now:     o.now,
	}
}

// Get returns the value for key while now < expiry.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists || !c.now().Before(entry.ExpiresAt) {
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return entry.Data, true
}

// Set stores value with the default TTL, superseding any previous entry.
func (c *Cache) Set(key string, value []byte) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value with a custom TTL.
func (c *Cache) SetWithTTL(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{Data: value, ExpiresAt: c.now().Add(ttl)}
}

// GetStats returns a snapshot of the cache counters.
func (c *Cache) GetStats() Stats {
	c.mu.RLock()
	keys := int64(len(c.entries))
	c.mu.RUnlock()
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), TotalKeys: keys}
}

// Close is a no-op for the in-memory cache.
func (c *Cache) Close() error {
	return nil
}
