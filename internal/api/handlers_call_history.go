// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/tomtom215/callboard/internal/models"
	"github.com/tomtom215/callboard/internal/validation"
)

// Pagination describes one page of stored calls.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// CallHistoryResponse is the body of GET /api/call-history.
type CallHistoryResponse struct {
	Calls      []models.CallRecord     `json:"calls"`
	Stats      models.CallHistoryStats `json:"stats"`
	Pagination Pagination              `json:"pagination"`
}

// ListCallHistory handles GET /api/call-history?limit&offset&assistantId&status.
// Stats cover all of the caller's calls, narrowed by assistantId only.
func (h *Handler) ListCallHistory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, ok := currentUser(rw, r)
	if !ok {
		return
	}

	params, ok := h.parseCallHistoryParams(rw, r)
	if !ok {
		return
	}

	calls, err := h.store.ListCalls(r.Context(), models.CallHistoryFilter{
		UserID:      userID,
		AssistantID: params.AssistantID,
		Status:      params.Status,
		Limit:       params.Limit,
		Offset:      params.Offset,
	})
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	stats, err := h.store.CallStats(r.Context(), userID, params.AssistantID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(CallHistoryResponse{
		Calls: calls,
		Stats: stats,
		Pagination: Pagination{
			Limit:   params.Limit,
			Offset:  params.Offset,
			HasMore: len(calls) == params.Limit,
		},
	})
}

func (h *Handler) parseCallHistoryParams(rw *ResponseWriter, r *http.Request) (validation.CallHistoryParams, bool) {
	var params validation.CallHistoryParams

	limit, err := intParam(r, "limit", h.defaultPageSize)
	if err != nil {
		rw.BadRequest(err.Error())
		return params, false
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		rw.BadRequest(err.Error())
		return params, false
	}

	q := r.URL.Query()
	params = validation.CallHistoryParams{
		Limit:       limit,
		Offset:      offset,
		AssistantID: strings.TrimSpace(q.Get("assistantId")),
		Status:      strings.TrimSpace(q.Get("status")),
	}
	if verr := validation.ValidateStruct(&params); verr != nil {
		rw.ValidationError(verr.Error(), verr.Details())
		return params, false
	}
	if params.Limit > h.maxPageSize {
		verr := &validation.RequestValidationError{Fields: []validation.FieldError{{
			Field:   "limit",
			Tag:     "max",
			Param:   strconv.Itoa(h.maxPageSize),
			Message: fmt.Sprintf("limit must be at most %d", h.maxPageSize),
		}}}
		rw.ValidationError(verr.Error(), verr.Details())
		return params, false
	}
	return params, true
}

// SyncCallHistory handles POST /api/call-history: sync the newest calls of
// the caller's active assistants into the store. Per-assistant failures are
// reported in the result list.
func (h *Handler) SyncCallHistory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, ok := currentUser(rw, r)
	if !ok {
		return
	}

	report, err := h.syncer.SyncUser(r.Context(), userID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(report)
}
