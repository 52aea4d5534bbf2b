// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Assistant is a user's registration of a remote voice assistant.
// At most one registration exists per (UserID, VapiAssistantID).
type Assistant struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	VapiAssistantID string          `json:"vapi_assistant_id"`
	Name            string          `json:"name"`
	Description     *string         `json:"description"`
	Model           *string         `json:"model"`         // remote model identifier, copied at registration/edit
	Voice           *string         `json:"voice"`         // remote voice identifier
	FirstMessage    *string         `json:"first_message"` // remote greeting
	Metadata        json.RawMessage `json:"metadata"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// AssistantUpdate lists the locally mirrored fields refreshed after a remote edit.
// Nil fields are left unchanged.
type AssistantUpdate struct {
	Name         *string
	Description  *string
	Model        *string
	Voice        *string
	FirstMessage *string
	Metadata     json.RawMessage
	IsActive     *bool
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns *s or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
