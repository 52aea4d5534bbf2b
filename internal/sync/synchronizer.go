// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/callboard/internal/config"
	"github.com/tomtom215/callboard/internal/logging"
	"github.com/tomtom215/callboard/internal/metrics"
	"github.com/tomtom215/callboard/internal/models"
	"github.com/tomtom215/callboard/internal/vapi"
)

// Result messages returned to API callers.
const (
	MessageNoActiveAssistants = "No active assistants found"
	MessageUserSyncDone       = "Call history updated successfully"
	MessageCronSyncDone       = "Call history cron job completed successfully"

	failedAssistantMessage = "Failed to process assistant"
)

// Triggers label sync runs in metrics and logs.
const (
	TriggerUser      = "user"
	TriggerCron      = "cron"
	TriggerScheduled = "scheduled"
)

// Remote is the part of the platform client a sync needs.
type Remote interface {
	ListCalls(ctx context.Context, params vapi.ListCallsParams) ([]vapi.Call, error)
	GetCallTranscript(ctx context.Context, callID string) (string, error)
}

// Store is the part of the database a sync needs.
type Store interface {
	ListActiveAssistants(ctx context.Context, userID string) ([]models.Assistant, error)
	ListAllActiveAssistants(ctx context.Context) ([]models.Assistant, error)
	UpsertCall(ctx context.Context, rec *models.CallRecord) error
}

// Synchronizer copies remote calls into the store.
type Synchronizer struct {
	remote Remote
	store  Store

	userLimit    int
	cronLimit    int
	cronLookback time.Duration

	now    func() time.Time
	logger zerolog.Logger
}

// NewSynchronizer creates a Synchronizer from the sync configuration.
func NewSynchronizer(remote Remote, store Store, cfg *config.SyncConfig) *Synchronizer {
	return &Synchronizer{
		remote:       remote,
		store:        store,
		userLimit:    cfg.UserLimit,
		cronLimit:    cfg.CronLimit,
		cronLookback: cfg.CronLookback,
		now:          time.Now,
		logger:       logging.WithComponent("sync"),
	}
}

// SyncUser syncs the newest calls of a user's active assistants.
func (s *Synchronizer) SyncUser(ctx context.Context, userID string) (*models.SyncReport, error) {
	start := time.Now()

	assistants, err := s.store.ListActiveAssistants(ctx, userID)
	if err != nil {
		metrics.SyncErrors.WithLabelValues("assistants").Inc()
		return nil, fmt.Errorf("failed to list active assistants: %w", err)
	}
	if len(assistants) == 0 {
		return &models.SyncReport{Message: MessageNoActiveAssistants, Timestamp: s.now().UTC()}, nil
	}

	params := vapi.ListCallsParams{Limit: s.userLimit}
	results, total := s.syncAssistants(ctx, userID, assistants, params)

	metrics.RecordSyncRun(TriggerUser, time.Since(start), total)
	s.logger.Info().
		Str("user_id", userID).
		Int("assistants", len(assistants)).
		Int("calls_processed", total).
		Dur("duration", time.Since(start)).
		Msg("User call history sync completed")

	return &models.SyncReport{
		Message:             MessageUserSyncDone,
		TotalCallsProcessed: total,
		Results:             results,
		Timestamp:           s.now().UTC(),
	}, nil
}

// SyncAll syncs recent calls of every active assistant, grouped by user in
// store order. trigger labels the run in metrics.
func (s *Synchronizer) SyncAll(ctx context.Context, trigger string) (*models.CronSyncReport, error) {
	start := time.Now()

	assistants, err := s.store.ListAllActiveAssistants(ctx)
	if err != nil {
		metrics.SyncErrors.WithLabelValues("assistants").Inc()
		return nil, fmt.Errorf("failed to list active assistants: %w", err)
	}
	if len(assistants) == 0 {
		return &models.CronSyncReport{Message: MessageNoActiveAssistants, Timestamp: s.now().UTC()}, nil
	}

	params := vapi.ListCallsParams{
		Limit:       s.cronLimit,
		CreatedAtGt: s.now().Add(-s.cronLookback),
	}

	report := &models.CronSyncReport{Message: MessageCronSyncDone}
	for _, group := range groupByUser(assistants) {
		results, n := s.syncAssistants(ctx, group.userID, group.assistants, params)
		report.TotalCallsProcessed += n
		report.Results = append(report.Results, models.UserSyncResult{
			UserID:     group.userID,
			Assistants: results,
		})
	}
	report.UsersProcessed = len(report.Results)
	report.Timestamp = s.now().UTC()

	metrics.RecordSyncRun(trigger, time.Since(start), report.TotalCallsProcessed)
	s.logger.Info().
		Str("trigger", trigger).
		Int("users", report.UsersProcessed).
		Int("calls_processed", report.TotalCallsProcessed).
		Dur("duration", time.Since(start)).
		Msg("Call history sync completed for all users")

	return report, nil
}

type userGroup struct {
	userID     string
	assistants []models.Assistant
}

// groupByUser groups assistants by user, keeping first-seen user order.
func groupByUser(assistants []models.Assistant) []userGroup {
	index := make(map[string]int)
	var groups []userGroup
	for _, a := range assistants {
		i, ok := index[a.UserID]
		if !ok {
			i = len(groups)
			index[a.UserID] = i
			groups = append(groups, userGroup{userID: a.UserID})
		}
		groups[i].assistants = append(groups[i].assistants, a)
	}
	return groups
}

// syncAssistants processes assistants one after another.
func (s *Synchronizer) syncAssistants(ctx context.Context, userID string, assistants []models.Assistant, params vapi.ListCallsParams) ([]models.AssistantSyncResult, int) {
	results := make([]models.AssistantSyncResult, 0, len(assistants))
	total := 0
	for i := range assistants {
		res := s.syncAssistant(ctx, userID, &assistants[i], params)
		total += res.CallsProcessed
		results = append(results, res)
	}
	return results, total
}

func (s *Synchronizer) syncAssistant(ctx context.Context, userID string, a *models.Assistant, params vapi.ListCallsParams) models.AssistantSyncResult {
	result := models.AssistantSyncResult{
		AssistantID:   a.VapiAssistantID,
		AssistantName: a.Name,
	}
	log := s.logger.With().
		Str("user_id", userID).
		Str("assistant_id", a.VapiAssistantID).
		Logger()

	params.AssistantID = a.VapiAssistantID
	calls, err := s.remote.ListCalls(ctx, params)
	if err != nil {
		metrics.SyncErrors.WithLabelValues("list_calls").Inc()
		log.Error().Err(err).Msg("Failed to list calls for assistant")
		result.Error = failedAssistantMessage
		return result
	}
	result.TotalCalls = len(calls)

	for i := range calls {
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Int("remaining", len(calls)-i).Msg("Sync canceled")
			result.Error = failedAssistantMessage
			break
		}
		if s.syncCall(ctx, userID, a, &calls[i], log) {
			result.CallsProcessed++
		}
	}
	return result
}

// syncCall stores one call and reports whether it was written. A failed
// transcript fetch still stores the call without a transcript.
func (s *Synchronizer) syncCall(ctx context.Context, userID string, a *models.Assistant, call *vapi.Call, log zerolog.Logger) bool {
	rec := &models.CallRecord{
		UserID:        userID,
		AssistantID:   a.ID,
		VapiCallID:    call.ID,
		AssistantName: a.Name,
		Status:        call.Status,
		EndedReason:   models.StringPtr(call.EndedReason),
		Duration:      call.DurationSeconds(),
		Cost:          call.Cost,
		PhoneNumber:   models.StringPtr(call.PhoneNumberString()),
		Metadata:      call.Metadata,
		CreatedAt:     call.CreatedAt,
	}

	if call.Status == models.CallStatusEnded {
		transcript, err := s.remote.GetCallTranscript(ctx, call.ID)
		if err != nil {
			metrics.SyncErrors.WithLabelValues("transcript").Inc()
			log.Warn().Err(err).Str("call_id", call.ID).Msg("Failed to fetch transcript")
		}
		rec.Transcript = models.StringPtr(transcript)
	}

	if err := s.store.UpsertCall(ctx, rec); err != nil {
		metrics.SyncErrors.WithLabelValues("upsert").Inc()
		log.Error().Err(err).Str("call_id", call.ID).Msg("Failed to store call")
		return false
	}
	return true
}
