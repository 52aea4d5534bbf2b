// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package api

import (
	"context"
	"net/http"
	"time"
)

const healthCheckTimeout = 5 * time.Second

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status            string       `json:"status"`
	DatabaseConnected bool         `json:"database_connected"`
	CircuitBreaker    string       `json:"circuit_breaker,omitempty"`
	LastSyncTime      *time.Time   `json:"last_sync_time,omitempty"`
	Cache             *CacheHealth `json:"cache,omitempty"`
	Uptime            float64      `json:"uptime"`
}

// CacheHealth reports analytics cache effectiveness.
type CacheHealth struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Keys    int64   `json:"keys"`
	HitRate float64 `json:"hit_rate"`
}

// Health handles GET /health. The service is degraded when the store is
// unreachable or the remote circuit breaker is open; the status code stays
// 200 unless the store is down.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	health := HealthStatus{
		Status:            "healthy",
		DatabaseConnected: h.store != nil && h.store.Ping(ctx) == nil,
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	if h.breaker != nil {
		health.CircuitBreaker = h.breaker.State()
	}
	if h.cache != nil {
		stats := h.cache.GetStats()
		health.Cache = &CacheHealth{
			Hits:    stats.Hits,
			Misses:  stats.Misses,
			Keys:    stats.TotalKeys,
			HitRate: stats.HitRate(),
		}
	}
	if h.cron != nil {
		if last := h.cron.LastSyncTime(); !last.IsZero() {
			health.LastSyncTime = &last
		}
	}

	rw := NewResponseWriter(w, r)
	switch {
	case !health.DatabaseConnected:
		health.Status = "unhealthy"
		rw.writeJSON(http.StatusServiceUnavailable, APIResponse{Success: false, Data: health, Meta: rw.meta()})
		return
	case health.CircuitBreaker == "open":
		health.Status = "degraded"
	}
	rw.Success(health)
}
