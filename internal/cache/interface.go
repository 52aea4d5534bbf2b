// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

// Package cache provides TTL caches for computed analytics payloads.
//
// Entries are returned only while the injected clock reads strictly before
// their expiry. Expired entries are ignored and later superseded by the next
// write under the same key; nothing evicts them in the background.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Cacher is implemented by the in-memory Cache and the badger-backed BadgerCache.
type Cacher interface {
	// Get returns the value stored under key if it has not expired.
	Get(key string) ([]byte, bool)

	// Set stores value under key with the default TTL.
	Set(key string, value []byte)

	// SetWithTTL stores value under key with a custom TTL.
	SetWithTTL(key string, value []byte, ttl time.Duration)

	// GetStats returns a snapshot of hit/miss counters.
	GetStats() Stats

	// Close releases resources held by the backend.
	Close() error
}

// Clock returns the current time. Tests inject a fake one.
type Clock func() time.Time

// Option configures a cache.
type Option func(*options)

type options struct {
	now Clock
}

// WithClock replaces time.Now as the cache's notion of the current time.
func WithClock(now Clock) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	TotalKeys int64 `json:"total_keys"`
}

// HitRate returns hits as a percentage of lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// GenerateKey derives a stable cache key from a namespace and a value. The
// value is JSON-encoded, so two structurally equal values always share a
// key and values that differ in any field never do.
func GenerateKey(namespace string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", namespace, params)
	}
	sum := sha256.Sum256(data)
	return namespace + ":" + hex.EncodeToString(sum[:16])
}
