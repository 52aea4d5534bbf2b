// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/callboard/internal/database"
	"github.com/tomtom215/callboard/internal/logging"
	"github.com/tomtom215/callboard/internal/models"
	"github.com/tomtom215/callboard/internal/validation"
	"github.com/tomtom215/callboard/internal/vapi"
)

// AssistantView is a registration with its live remote configuration.
type AssistantView struct {
	models.Assistant
	VapiDetails json.RawMessage `json:"vapi_details"`
	HasVapiData bool            `json:"has_vapi_data"`
}

// ListAssistants handles GET /api/assistants. Each registration is enriched
// with its remote configuration; a failed lookup leaves vapi_details null.
func (h *Handler) ListAssistants(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, ok := currentUser(rw, r)
	if !ok {
		return
	}

	assistants, err := h.store.ListAssistants(r.Context(), userID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(h.enrichAssistants(r.Context(), assistants))
}

func (h *Handler) enrichAssistants(ctx context.Context, assistants []models.Assistant) []AssistantView {
	views := make([]AssistantView, len(assistants))

	var g errgroup.Group
	g.SetLimit(h.enrichConcurrency)
	for i := range assistants {
		views[i].Assistant = assistants[i]
		g.Go(func() error {
			remote, err := h.remote.GetAssistant(ctx, assistants[i].VapiAssistantID)
			if err != nil {
				logging.Ctx(ctx).Warn().Err(err).
					Str("assistant_id", assistants[i].VapiAssistantID).
					Msg("Failed to fetch remote assistant details")
				return nil
			}
			views[i].VapiDetails = remote.Raw
			views[i].HasVapiData = len(remote.Raw) > 0
			return nil
		})
	}
	_ = g.Wait() // lookups never return errors

	return views
}

// CreateAssistant handles POST /api/assistants. The id must exist on the
// platform; the name defaults to the remote name and the description to
// the remote first message.
func (h *Handler) CreateAssistant(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, ok := currentUser(rw, r)
	if !ok {
		return
	}

	var req validation.CreateAssistantRequest
	if !decodeJSON(rw, r, &req) {
		return
	}
	req.Normalize()
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Details())
		return
	}

	remote, err := h.remote.GetAssistant(r.Context(), req.AssistantID)
	if err != nil {
		if errors.Is(err, vapi.ErrNotFound) {
			rw.NotFound("Assistant not found on the voice platform")
			return
		}
		rw.ExternalServiceError(remoteErrorStatus(err), err)
		return
	}

	a := newRegistration(userID, &req, remote)
	if err := h.store.CreateAssistant(r.Context(), a); err != nil {
		if errors.Is(err, database.ErrAssistantConflict) {
			rw.Conflict("Assistant already registered")
			return
		}
		rw.DatabaseError(err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("assistant_id", sanitizeLogValue(req.AssistantID)).
		Msg("Assistant registered")
	rw.Created(a)
}

func newRegistration(userID string, req *validation.CreateAssistantRequest, remote *vapi.Assistant) *models.Assistant {
	name := req.Name
	if name == "" {
		name = remote.Name
	}
	if name == "" {
		name = "Assistant " + req.AssistantID
	}
	description := req.Description
	if description == "" {
		description = remote.FirstMessage
	}

	return &models.Assistant{
		UserID:          userID,
		VapiAssistantID: req.AssistantID,
		Name:            name,
		Description:     models.StringPtr(description),
		Model:           models.StringPtr(remote.ModelName()),
		Voice:           models.StringPtr(remote.VoiceID()),
		FirstMessage:    models.StringPtr(remote.FirstMessage),
		Metadata:        remote.Metadata,
	}
}

// GetAssistant handles GET /api/assistants/{id} with the remote configuration.
func (h *Handler) GetAssistant(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if _, ok := currentUser(rw, r); !ok {
		return
	}

	remote, err := h.remote.GetAssistant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, vapi.ErrNotFound) {
			rw.NotFound("Assistant not found")
			return
		}
		rw.ExternalServiceError(remoteErrorStatus(err), err)
		return
	}
	rw.Success(remote.Raw)
}

// UpdateAssistant handles PATCH /api/assistants/{id}. The patch goes to the
// platform first; the caller's local copy is then refreshed from the
// platform's current configuration.
func (h *Handler) UpdateAssistant(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, ok := currentUser(rw, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	var patch map[string]interface{}
	if !decodeJSON(rw, r, &patch) {
		return
	}
	if len(vapi.SanitizePatch(patch)) == 0 {
		rw.BadRequest("No fields to update")
		return
	}

	updated, err := h.remote.UpdateAssistant(r.Context(), id, patch)
	if err != nil {
		rw.ExternalServiceError(remoteErrorStatus(err), err)
		return
	}

	current, err := h.remote.GetAssistant(r.Context(), id)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("assistant_id", id).
			Msg("Failed to re-read assistant after update, using update response")
		current = updated
	}

	err = h.store.UpdateAssistantMirror(r.Context(), userID, id, models.AssistantUpdate{
		Name:         models.StringPtr(current.Name),
		Model:        models.StringPtr(current.ModelName()),
		Voice:        models.StringPtr(current.VoiceID()),
		FirstMessage: models.StringPtr(current.FirstMessage),
	})
	switch {
	case errors.Is(err, database.ErrAssistantNotFound):
		// not registered by this caller; nothing to mirror
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Str("assistant_id", id).
			Msg("Assistant updated remotely but local copy could not be refreshed")
	}

	rw.Success(current.Raw)
}

// DeleteAssistant handles DELETE /api/assistants/{id}. Only the caller's
// registration is removed; the remote assistant is untouched.
func (h *Handler) DeleteAssistant(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, ok := currentUser(rw, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.store.DeleteAssistant(r.Context(), userID, id); err != nil {
		if errors.Is(err, database.ErrAssistantNotFound) {
			rw.NotFound("Assistant not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.Success(map[string]string{"deleted": id})
}
