// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package api

import (
	"net/http"
	"time"

	syncpkg "github.com/tomtom215/callboard/internal/sync"
)

// CronStatus is the body of GET /api/cron/call-history.
type CronStatus struct {
	Message  string     `json:"message"`
	LastSync *time.Time `json:"lastSync,omitempty"`
}

// CronCallHistoryStatus handles GET /api/cron/call-history, an
// unauthenticated liveness probe for the scheduler.
func (h *Handler) CronCallHistoryStatus(w http.ResponseWriter, r *http.Request) {
	status := CronStatus{Message: "Call history cron endpoint is active"}
	if last := h.cron.LastSyncTime(); !last.IsZero() {
		status.LastSync = &last
	}
	NewResponseWriter(w, r).Success(status)
}

// CronCallHistory handles POST /api/cron/call-history: sync recent calls of
// every active assistant, grouped by user. The route is guarded by the cron
// shared secret.
func (h *Handler) CronCallHistory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	report, err := h.cron.SyncAll(r.Context(), syncpkg.TriggerCron)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(report)
}
