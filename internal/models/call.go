// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Call statuses and end reasons used by the success rules.
const (
	CallStatusEnded = "ended"

	EndedReasonAssistantEndedCall = "assistant-ended-call"
	EndedReasonAssistantFailed    = "assistant-ended-call-failed"
	EndedReasonNoAnswer           = "no-answer"
	EndedReasonBusy               = "busy"
	EndedReasonHookSay            = "call.ringing.hook-executed-say"
	EndedReasonHookTransfer       = "call.ringing.hook-executed-transfer"
)

// CallRecord is one stored remote call, unique per (UserID, VapiCallID).
type CallRecord struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	AssistantID   string          `json:"assistant_id"` // local assistant registration id
	VapiCallID    string          `json:"vapi_call_id"`
	AssistantName string          `json:"assistant_name"`
	Status        string          `json:"status"`
	EndedReason   *string         `json:"ended_reason"`
	Duration      *float64        `json:"duration"` // seconds
	Cost          *float64        `json:"cost"`
	PhoneNumber   *string         `json:"phone_number"`
	Transcript    *string         `json:"transcript"`
	Metadata      json.RawMessage `json:"metadata"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Assistant *CallAssistantSummary `json:"assistants,omitempty"`
}

// CallAssistantSummary is the registration detail joined onto listed calls.
type CallAssistantSummary struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Model       *string `json:"model"`
	Voice       *string `json:"voice"`
}

// CallHistoryFilter selects stored call records for one user.
type CallHistoryFilter struct {
	UserID      string
	AssistantID string // local assistant id, optional
	Status      string // optional
	Limit       int
	Offset      int
}

// CallHistoryStats summarises a user's stored calls.
type CallHistoryStats struct {
	TotalCalls    int     `json:"totalCalls"`
	TotalDuration float64 `json:"totalDuration"` // seconds
	TotalCost     float64 `json:"totalCost"`
	SuccessRate   float64 `json:"successRate"` // percent, 2dp
}

// IsSuccessfulCall applies the strict success rule used for raw call
// records: the call ended and the assistant hung up normally.
func IsSuccessfulCall(status string, endedReason string) bool {
	return status == CallStatusEnded && endedReason == EndedReasonAssistantEndedCall
}
