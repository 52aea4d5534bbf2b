// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/callboard/internal/analytics"
	"github.com/tomtom215/callboard/internal/validation"
)

// AnalyticsRecent handles GET /api/analytics: metrics for the recent window
// computed from raw calls. ?assistantIds=a,b narrows the caller's assistants.
func (h *Handler) AnalyticsRecent(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, ok := currentUser(rw, r)
	if !ok {
		return
	}

	filter := parseCommaSeparated(r.URL.Query().Get("assistantIds"))
	payload, err := h.analytics.Recent(r.Context(), userID, filter)
	if err != nil {
		h.writeAnalyticsError(rw, err)
		return
	}
	rw.Success(payload)
}

// AnalyticsQuery handles POST /api/analytics. Identical requests within the
// cache TTL are answered from the cache and flagged cached=true.
func (h *Handler) AnalyticsQuery(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, ok := currentUser(rw, r)
	if !ok {
		return
	}

	var req validation.AnalyticsQueryRequest
	if !decodeJSON(rw, r, &req) {
		return
	}
	if verr := req.Validate(); verr != nil {
		rw.ValidationError(verr.Error(), verr.Details())
		return
	}

	payload, err := h.analytics.Query(r.Context(), userID, analytics.Query{
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		GroupBy:      req.GroupBy,
		AssistantIDs: req.AssistantIDs,
	})
	if err != nil {
		h.writeAnalyticsError(rw, err)
		return
	}
	rw.Success(payload)
}

// writeAnalyticsError answers 502 for a failed call listing and 500 for
// store failures.
func (h *Handler) writeAnalyticsError(rw *ResponseWriter, err error) {
	if errors.Is(err, analytics.ErrCallListing) {
		rw.ExternalServiceError(http.StatusBadGateway, err)
		return
	}
	rw.DatabaseError(err)
}
