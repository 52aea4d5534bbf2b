// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/callboard/internal/database/query"
	"github.com/tomtom215/callboard/internal/metrics"
	"github.com/tomtom215/callboard/internal/models"
)

const (
	defaultCallLimit = 50
	maxCallLimit     = 500
)

// callUpdateColumns are rewritten when a call is synced again. The owning
// registration and creation time are fixed at first insert; both are indexed.
var callUpdateColumns = []string{
	"assistant_name", "status", "ended_reason", "duration",
	"cost", "phone_number", "metadata", "updated_at",
}

// UpsertCall stores a remote call, keyed by (UserID, VapiCallID). A repeat
// sync rewrites the mutable columns; a nil Transcript leaves a stored
// transcript in place.
func (db *DB) UpsertCall(ctx context.Context, rec *models.CallRecord) (err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("upsert", "call_history", time.Since(start), err) }()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := db.timestamp()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.CreatedAt = rec.CreatedAt.UTC().Truncate(time.Microsecond)
	rec.UpdatedAt = now

	updates := callUpdateColumns
	if rec.Transcript != nil {
		updates = append(append([]string{}, callUpdateColumns...), "transcript")
	}
	sets := make([]string, len(updates))
	for i, col := range updates {
		sets[i] = col + " = EXCLUDED." + col
	}

	upsertSQL := `INSERT INTO call_history (
			id, user_id, assistant_id, vapi_call_id, assistant_name, status, ended_reason,
			duration, cost, phone_number, transcript, metadata, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id, vapi_call_id) DO UPDATE SET ` + strings.Join(sets, ", ")

	_, err = db.conn.ExecContext(ctx, upsertSQL,
		rec.ID, rec.UserID, rec.AssistantID, rec.VapiCallID, rec.AssistantName, rec.Status,
		nullString(rec.EndedReason), nullFloat(rec.Duration), nullFloat(rec.Cost),
		nullString(rec.PhoneNumber), nullString(rec.Transcript), nullJSON(rec.Metadata),
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert call %s: %w", rec.VapiCallID, err)
	}
	return nil
}

// ListCalls returns a page of a user's stored calls, newest first, with
// the registration details of each call's assistant.
func (db *DB) ListCalls(ctx context.Context, filter models.CallHistoryFilter) (result []models.CallRecord, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("list", "call_history", time.Since(start), err) }()

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultCallLimit
	}
	if limit > maxCallLimit {
		limit = maxCallLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	wb := query.NewWhereBuilder()
	wb.Eq("c.user_id", filter.UserID).
		EqIfSet("c.assistant_id", filter.AssistantID).
		EqIfSet("c.status", filter.Status)
	limitArg, offsetArg := wb.Arg(limit), wb.Arg(offset)
	where, args := wb.BuildWithPrefix()

	sqlQuery := `SELECT c.id, c.user_id, c.assistant_id, c.vapi_call_id, c.assistant_name, c.status,
			c.ended_reason, c.duration, c.cost, c.phone_number, c.transcript, c.metadata,
			c.created_at, c.updated_at, a.name, a.description, a.model, a.voice
		FROM call_history c
		LEFT JOIN assistants a ON a.id = c.assistant_id
		` + where + `
		ORDER BY c.created_at DESC, c.id LIMIT ` + limitArg + ` OFFSET ` + offsetArg

	rows, err := db.conn.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query call history: %w", err)
	}
	defer closeWithLog(rows, "call history rows")

	result = []models.CallRecord{}
	for rows.Next() {
		rec, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}
		result = append(result, *rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating call history: %w", err)
	}
	return result, nil
}

// CallStats summarises a user's stored calls, optionally for one local
// assistant. The status filter of a listing does not apply here.
func (db *DB) CallStats(ctx context.Context, userID, assistantID string) (stats models.CallHistoryStats, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("stats", "call_history", time.Since(start), err) }()

	wb := query.NewWhereBuilder()
	statusArg := wb.Arg(models.CallStatusEnded)
	reasonArg := wb.Arg(models.EndedReasonAssistantEndedCall)
	wb.Eq("user_id", userID).EqIfSet("assistant_id", assistantID)
	where, args := wb.BuildWithPrefix()

	sqlQuery := `SELECT
			COUNT(*),
			COALESCE(SUM(duration), 0),
			COALESCE(SUM(cost), 0),
			COUNT(*) FILTER (WHERE status = ` + statusArg + ` AND ended_reason = ` + reasonArg + `)
		FROM call_history
		` + where

	var total, successful int64
	err = db.conn.QueryRowContext(ctx, sqlQuery, args...).Scan(&total, &stats.TotalDuration, &stats.TotalCost, &successful)
	if err != nil {
		return models.CallHistoryStats{}, fmt.Errorf("failed to compute call stats: %w", err)
	}

	stats.TotalCalls = int(total)
	if total > 0 {
		stats.SuccessRate = round2(float64(successful) / float64(total) * 100)
	}
	return stats, nil
}

func scanCall(row rowScanner) (*models.CallRecord, error) {
	var rec models.CallRecord
	var endedReason, phone, transcript, metadata sql.NullString
	var duration, cost sql.NullFloat64
	var aName, aDescription, aModel, aVoice sql.NullString

	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.AssistantID, &rec.VapiCallID, &rec.AssistantName, &rec.Status,
		&endedReason, &duration, &cost, &phone, &transcript, &metadata,
		&rec.CreatedAt, &rec.UpdatedAt,
		&aName, &aDescription, &aModel, &aVoice,
	)
	if err != nil {
		return nil, err
	}

	rec.EndedReason = stringFromNull(endedReason)
	rec.Duration = floatFromNull(duration)
	rec.Cost = floatFromNull(cost)
	rec.PhoneNumber = stringFromNull(phone)
	rec.Transcript = stringFromNull(transcript)
	rec.Metadata = jsonFromNull(metadata)
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()

	if aName.Valid {
		rec.Assistant = &models.CallAssistantSummary{
			Name:        aName.String,
			Description: stringFromNull(aDescription),
			Model:       stringFromNull(aModel),
			Voice:       stringFromNull(aVoice),
		}
	}
	return &rec, nil
}
