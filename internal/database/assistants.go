// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/callboard/internal/metrics"
	"github.com/tomtom215/callboard/internal/models"
)

const assistantColumns = `id, user_id, vapi_assistant_id, name, description, model, voice,
	first_message, metadata, is_active, created_at, updated_at`

// timestamp returns the current time at the precision both drivers store.
func (db *DB) timestamp() time.Time {
	return db.now().UTC().Truncate(time.Microsecond)
}

// CreateAssistant registers a remote assistant for a user. ID and the
// timestamps are assigned when empty, and the registration starts active.
// Registering the same remote assistant twice returns ErrAssistantConflict.
func (db *DB) CreateAssistant(ctx context.Context, a *models.Assistant) (err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("insert", "assistants", time.Since(start), err) }()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := db.timestamp()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.CreatedAt = a.CreatedAt.UTC().Truncate(time.Microsecond)
	a.UpdatedAt = now
	a.IsActive = true

	query := `INSERT INTO assistants (` + assistantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = db.conn.ExecContext(ctx, query,
		a.ID, a.UserID, a.VapiAssistantID, a.Name,
		nullString(a.Description), nullString(a.Model), nullString(a.Voice), nullString(a.FirstMessage),
		nullJSON(a.Metadata), a.IsActive, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrAssistantConflict
		}
		return fmt.Errorf("failed to create assistant: %w", err)
	}
	return nil
}

// GetAssistantByVapiID returns the user's registration of a remote assistant.
func (db *DB) GetAssistantByVapiID(ctx context.Context, userID, vapiAssistantID string) (*models.Assistant, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + assistantColumns + ` FROM assistants WHERE user_id = $1 AND vapi_assistant_id = $2`

	a, err := scanAssistant(db.conn.QueryRowContext(ctx, query, userID, vapiAssistantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAssistantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assistant: %w", err)
	}
	return a, nil
}

// ListAssistants returns all of a user's registrations, newest first.
func (db *DB) ListAssistants(ctx context.Context, userID string) ([]models.Assistant, error) {
	return db.listAssistants(ctx, "list", `WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
}

// ListActiveAssistants returns a user's active registrations, newest first.
func (db *DB) ListActiveAssistants(ctx context.Context, userID string) ([]models.Assistant, error) {
	return db.listAssistants(ctx, "list_active", `WHERE user_id = $1 AND is_active = TRUE ORDER BY created_at DESC, id`, userID)
}

// ListAllActiveAssistants returns every active registration, grouped by user.
func (db *DB) ListAllActiveAssistants(ctx context.Context) ([]models.Assistant, error) {
	return db.listAssistants(ctx, "list_all_active", `WHERE is_active = TRUE ORDER BY user_id, created_at, id`)
}

func (db *DB) listAssistants(ctx context.Context, op, clause string, args ...interface{}) (result []models.Assistant, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery(op, "assistants", time.Since(start), err) }()

	rows, err := db.conn.QueryContext(ctx, `SELECT `+assistantColumns+` FROM assistants `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assistants: %w", err)
	}
	defer closeWithLog(rows, "assistant rows")

	result = []models.Assistant{}
	for rows.Next() {
		a, err := scanAssistant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assistant: %w", err)
		}
		result = append(result, *a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assistants: %w", err)
	}
	return result, nil
}

// UpdateAssistantMirror refreshes the locally mirrored fields of a
// registration. Nil fields keep their stored value.
func (db *DB) UpdateAssistantMirror(ctx context.Context, userID, vapiAssistantID string, upd models.AssistantUpdate) (err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("update", "assistants", time.Since(start), err) }()

	var (
		sets []string
		args []interface{}
	)
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Model != nil {
		add("model", *upd.Model)
	}
	if upd.Voice != nil {
		add("voice", *upd.Voice)
	}
	if upd.FirstMessage != nil {
		add("first_message", *upd.FirstMessage)
	}
	if upd.Metadata != nil {
		add("metadata", string(upd.Metadata))
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}
	add("updated_at", db.timestamp())

	args = append(args, userID, vapiAssistantID)
	query := fmt.Sprintf(`UPDATE assistants SET %s WHERE user_id = $%d AND vapi_assistant_id = $%d`,
		strings.Join(sets, ", "), len(args)-1, len(args))

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update assistant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if n == 0 {
		return ErrAssistantNotFound
	}
	return nil
}

// DeleteAssistant removes a user's registration. Stored call history is kept.
func (db *DB) DeleteAssistant(ctx context.Context, userID, vapiAssistantID string) (err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("delete", "assistants", time.Since(start), err) }()

	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM assistants WHERE user_id = $1 AND vapi_assistant_id = $2`, userID, vapiAssistantID)
	if err != nil {
		return fmt.Errorf("failed to delete assistant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if n == 0 {
		return ErrAssistantNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAssistant(row rowScanner) (*models.Assistant, error) {
	var a models.Assistant
	var description, model, voice, firstMsg, metadata sql.NullString
	err := row.Scan(
		&a.ID, &a.UserID, &a.VapiAssistantID, &a.Name,
		&description, &model, &voice, &firstMsg, &metadata,
		&a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Description = stringFromNull(description)
	a.Model = stringFromNull(model)
	a.Voice = stringFromNull(voice)
	a.FirstMessage = stringFromNull(firstMsg)
	a.Metadata = jsonFromNull(metadata)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}
