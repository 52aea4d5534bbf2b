// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package vapi

import (
	"time"

	"github.com/goccy/go-json"
)

// Assistant is the subset of a remote assistant configuration that the
// dashboard reads. Raw holds the full document as returned by the platform.
type Assistant struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	FirstMessage string          `json:"firstMessage,omitempty"`
	Model        *AssistantModel `json:"model,omitempty"`
	Voice        *AssistantVoice `json:"voice,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    string          `json:"createdAt,omitempty"`
	UpdatedAt    string          `json:"updatedAt,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// AssistantModel is the language model block of an assistant.
type AssistantModel struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// AssistantVoice is the voice block of an assistant.
type AssistantVoice struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

// ModelName returns the model identifier or "".
func (a *Assistant) ModelName() string {
	if a == nil || a.Model == nil {
		return ""
	}
	return a.Model.Model
}

// VoiceID returns the voice identifier or "".
func (a *Assistant) VoiceID() string {
	if a == nil || a.Voice == nil {
		return ""
	}
	return a.Voice.VoiceID
}

// Call is one call as listed by the platform.
type Call struct {
	ID          string          `json:"id"`
	AssistantID string          `json:"assistantId"`
	Status      string          `json:"status"`
	EndedReason string          `json:"endedReason"`
	Duration    *float64        `json:"duration,omitempty"` // seconds
	Cost        *float64        `json:"cost,omitempty"`
	PhoneNumber json.RawMessage `json:"phoneNumber,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	EndedAt     *time.Time      `json:"endedAt,omitempty"`
}

// DurationSeconds returns the reported duration, or the span between
// start and end when the platform omits it. Nil means unknown.
func (c *Call) DurationSeconds() *float64 {
	if c.Duration != nil {
		return c.Duration
	}
	if c.StartedAt != nil && c.EndedAt != nil && c.EndedAt.After(*c.StartedAt) {
		d := c.EndedAt.Sub(*c.StartedAt).Seconds()
		return &d
	}
	return nil
}

// PhoneNumberString flattens the phone number, which the platform sends
// either as a plain string or as an object with a "number" field.
func (c *Call) PhoneNumberString() string {
	if len(c.PhoneNumber) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(c.PhoneNumber, &s); err == nil {
		return s
	}
	var obj struct {
		Number string `json:"number"`
	}
	if err := json.Unmarshal(c.PhoneNumber, &obj); err == nil {
		return obj.Number
	}
	return ""
}

// ListCallsParams filters GET /call.
type ListCallsParams struct {
	AssistantID string
	Limit       int
	CreatedAtGt time.Time // zero means no cutoff
}

// AnalyticsQuery is the body of POST /analytics.
type AnalyticsQuery struct {
	StartDate    string   `json:"startDate,omitempty"`
	EndDate      string   `json:"endDate,omitempty"`
	AssistantIDs []string `json:"assistantIds,omitempty"`
	GroupBy      []string `json:"groupBy"`
}

// Analytics groupings issued by the dashboard.
const (
	GroupByCreatedAt   = "createdAt"
	GroupByEndedReason = "endedReason"
	GroupByHour        = "hour"
	GroupByAssistantID = "assistantId"
)
