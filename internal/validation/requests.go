// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package validation

import "strings"

// Call-history paging bounds.
const (
	DefaultCallHistoryLimit = 50
	MaxCallHistoryLimit     = 500
)

// CreateAssistantRequest is the body of POST /api/assistants.
type CreateAssistantRequest struct {
	AssistantID string `json:"assistantId" validate:"required,max=128"`
	Name        string `json:"name,omitempty" validate:"max=200"`
	Description string `json:"description,omitempty" validate:"max=2000"`
}

// Normalize trims surrounding whitespace.
func (r *CreateAssistantRequest) Normalize() {
	r.AssistantID = strings.TrimSpace(r.AssistantID)
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

// AnalyticsQueryRequest is the body of POST /api/analytics.
type AnalyticsQueryRequest struct {
	StartDate    string   `json:"startDate" validate:"required,isodate"`
	EndDate      string   `json:"endDate" validate:"required,isodate"`
	GroupBy      string   `json:"groupBy,omitempty" validate:"max=64"`
	AssistantIDs []string `json:"assistantIds,omitempty" validate:"max=100,dive,required,max=128"`
}

// Validate checks the field rules and that the range is not reversed.
func (r *AnalyticsQueryRequest) Validate() *RequestValidationError {
	if verr := ValidateStruct(r); verr != nil {
		return verr
	}
	start, _ := ParseDate(r.StartDate)
	end, _ := ParseDate(r.EndDate)
	if end.Before(start) {
		return &RequestValidationError{Fields: []FieldError{{
			Field:   "endDate",
			Tag:     "daterange",
			Message: "endDate must not be before startDate",
		}}}
	}
	return nil
}

// CallHistoryParams are the query parameters of GET /api/call-history.
type CallHistoryParams struct {
	Limit       int    `json:"limit" validate:"min=1,max=500"`
	Offset      int    `json:"offset" validate:"min=0"`
	AssistantID string `json:"assistantId,omitempty" validate:"max=128"`
	Status      string `json:"status,omitempty" validate:"max=64"`
}
