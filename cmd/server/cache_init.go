// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package main

import (
	"fmt"

	"github.com/tomtom215/callboard/internal/cache"
	"github.com/tomtom215/callboard/internal/config"
)

// Cache backends.
const (
	cacheBackendMemory = "memory"
	cacheBackendBadger = "badger"
)

// openAnalyticsCache builds the analytics response cache. The badger backend
// keeps entries across restarts; both honor cfg.CacheTTL.
func openAnalyticsCache(cfg *config.AnalyticsConfig) (cache.Cacher, error) {
	switch cfg.CacheBackend {
	case "", cacheBackendMemory:
		return cache.New(cfg.CacheTTL), nil
	case cacheBackendBadger:
		c, err := cache.OpenBadger(cfg.CachePath, cfg.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("open badger cache at %s: %w", cfg.CachePath, err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
