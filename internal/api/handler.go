// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package api

import (
	"context"
	"time"

	"github.com/tomtom215/callboard/internal/analytics"
	"github.com/tomtom215/callboard/internal/cache"
	"github.com/tomtom215/callboard/internal/models"
	"github.com/tomtom215/callboard/internal/validation"
	"github.com/tomtom215/callboard/internal/vapi"
)

// Store is the persistence the handlers use. *database.DB implements it.
type Store interface {
	Ping(ctx context.Context) error

	CreateAssistant(ctx context.Context, a *models.Assistant) error
	GetAssistantByVapiID(ctx context.Context, userID, vapiAssistantID string) (*models.Assistant, error)
	ListAssistants(ctx context.Context, userID string) ([]models.Assistant, error)
	UpdateAssistantMirror(ctx context.Context, userID, vapiAssistantID string, upd models.AssistantUpdate) error
	DeleteAssistant(ctx context.Context, userID, vapiAssistantID string) error

	ListCalls(ctx context.Context, filter models.CallHistoryFilter) ([]models.CallRecord, error)
	CallStats(ctx context.Context, userID, assistantID string) (models.CallHistoryStats, error)
}

// AnalyticsService computes dashboard analytics. *analytics.Service implements it.
type AnalyticsService interface {
	Query(ctx context.Context, userID string, q analytics.Query) (*models.AnalyticsPayload, error)
	Recent(ctx context.Context, userID string, filter []string) (*models.AnalyticsPayload, error)
}

// UserSyncer syncs one user's call history. *sync.Synchronizer implements it.
type UserSyncer interface {
	SyncUser(ctx context.Context, userID string) (*models.SyncReport, error)
}

// CronSyncer runs the all-users sync. *sync.Manager implements it.
type CronSyncer interface {
	SyncAll(ctx context.Context, trigger string) (*models.CronSyncReport, error)
	LastSyncTime() time.Time
}

// BreakerReporter exposes the remote circuit breaker state.
type BreakerReporter interface {
	State() string
}

// CacheReporter exposes analytics cache counters. cache.Cacher implements it.
type CacheReporter interface {
	GetStats() cache.Stats
}

// Handler serves the /api routes.
//
// Handler methods are split across files:
//   - handlers_analytics.go: GET/POST /analytics
//   - handlers_assistants.go: assistant registration and remote configuration
//   - handlers_call_history.go: stored calls and user-triggered sync
//   - handlers_cron.go: scheduled all-users sync
//   - handlers_health.go: health probe
type Handler struct {
	store     Store
	remote    vapi.API
	analytics AnalyticsService
	syncer    UserSyncer
	cron      CronSyncer
	breaker   BreakerReporter
	cache     CacheReporter
	startTime time.Time

	// enrichConcurrency bounds remote lookups in GET /assistants.
	enrichConcurrency int

	defaultPageSize int
	maxPageSize     int
}

// HandlerDeps are the collaborators of a Handler.
type HandlerDeps struct {
	Store     Store
	Remote    vapi.API
	Analytics AnalyticsService
	Syncer    UserSyncer
	Cron      CronSyncer
	Breaker   BreakerReporter // optional
	Cache     CacheReporter   // optional

	// DefaultPageSize and MaxPageSize bound GET /call-history pages.
	// Zero values fall back to the validation limits.
	DefaultPageSize int
	MaxPageSize     int
}

// defaultEnrichConcurrency bounds parallel remote lookups per request.
const defaultEnrichConcurrency = 4

// NewHandler creates a Handler.
func NewHandler(deps HandlerDeps) *Handler {
	maxPage := deps.MaxPageSize
	if maxPage <= 0 || maxPage > validation.MaxCallHistoryLimit {
		maxPage = validation.MaxCallHistoryLimit
	}
	defaultPage := deps.DefaultPageSize
	if defaultPage <= 0 || defaultPage > maxPage {
		defaultPage = min(validation.DefaultCallHistoryLimit, maxPage)
	}

	return &Handler{
		store:             deps.Store,
		remote:            deps.Remote,
		analytics:         deps.Analytics,
		syncer:            deps.Syncer,
		cron:              deps.Cron,
		breaker:           deps.Breaker,
		cache:             deps.Cache,
		startTime:         time.Now(),
		enrichConcurrency: defaultEnrichConcurrency,
		defaultPageSize:   defaultPage,
		maxPageSize:       maxPage,
	}
}
