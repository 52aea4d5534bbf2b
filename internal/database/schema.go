// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package database

import (
	"context"
	"fmt"
	"time"
)

const schemaTimeout = 60 * time.Second

var schemaQueries = []string{
	`CREATE TABLE IF NOT EXISTS assistants (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		vapi_assistant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		model TEXT,
		voice TEXT,
		first_message TEXT,
		metadata TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (user_id, vapi_assistant_id)
	)`,
	`CREATE TABLE IF NOT EXISTS call_history (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		assistant_id TEXT NOT NULL,
		vapi_call_id TEXT NOT NULL,
		assistant_name TEXT NOT NULL,
		status TEXT NOT NULL,
		ended_reason TEXT,
		duration DOUBLE PRECISION,
		cost DOUBLE PRECISION,
		phone_number TEXT,
		transcript TEXT,
		metadata TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (user_id, vapi_call_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_assistants_user ON assistants (user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_call_history_user_created ON call_history (user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_call_history_assistant ON call_history (assistant_id)`,
}

func (db *DB) createTables(ctx context.Context) error {
	for _, query := range schemaQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
