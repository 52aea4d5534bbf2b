// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package models

import "time"

// AssistantSyncResult reports one assistant's pass of a call-history sync.
type AssistantSyncResult struct {
	AssistantID    string `json:"assistantId"` // remote assistant id
	AssistantName  string `json:"assistantName"`
	CallsProcessed int    `json:"callsProcessed"`
	TotalCalls     int    `json:"totalCalls"`
	Error          string `json:"error,omitempty"`
}

// UserSyncResult groups assistant results for one user in a scheduled sync.
type UserSyncResult struct {
	UserID     string                `json:"userId"`
	Assistants []AssistantSyncResult `json:"assistants"`
}

// SyncReport is the response to a user-triggered sync.
type SyncReport struct {
	Message             string                `json:"message"`
	TotalCallsProcessed int                   `json:"totalCallsProcessed"`
	Results             []AssistantSyncResult `json:"results,omitempty"`
	Timestamp           time.Time             `json:"timestamp"`
}

// CronSyncReport is the response to a scheduled sync across all users.
type CronSyncReport struct {
	Message             string           `json:"message"`
	TotalCallsProcessed int              `json:"totalCallsProcessed"`
	UsersProcessed      int              `json:"usersProcessed"`
	Results             []UserSyncResult `json:"results,omitempty"`
	Timestamp           time.Time        `json:"timestamp"`
}
