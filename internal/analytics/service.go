// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package analytics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/callboard/internal/cache"
	"github.com/tomtom215/callboard/internal/config"
	"github.com/tomtom215/callboard/internal/logging"
	"github.com/tomtom215/callboard/internal/metrics"
	"github.com/tomtom215/callboard/internal/models"
	"github.com/tomtom215/callboard/internal/vapi"
)

// fallbackCallLimit caps the raw call listing used for fallback metrics.
const fallbackCallLimit = 1000

// ErrCallListing marks a failed raw call listing. Without it no metrics
// can be computed.
var ErrCallListing = errors.New("analytics: call listing failed")

// errMalformedBody marks a successful analytics response that is not JSON.
var errMalformedBody = errors.New("analytics: response body is not valid JSON")

// AssistantLister reads a user's registrations.
type AssistantLister interface {
	ListAssistants(ctx context.Context, userID string) ([]models.Assistant, error)
	ListActiveAssistants(ctx context.Context, userID string) ([]models.Assistant, error)
}

// Query is a dashboard analytics request.
type Query struct {
	StartDate    string   `json:"startDate,omitempty"`
	EndDate      string   `json:"endDate,omitempty"`
	GroupBy      string   `json:"groupBy,omitempty"`
	AssistantIDs []string `json:"assistantIds,omitempty"`
}

// canonical returns q with assistant ids sorted and deduplicated, so that
// requests naming the same set share a cache entry.
func (q Query) canonical() Query {
	if len(q.AssistantIDs) == 0 {
		q.AssistantIDs = nil
		return q
	}
	ids := make([]string, 0, len(q.AssistantIDs))
	seen := make(map[string]bool, len(q.AssistantIDs))
	for _, id := range q.AssistantIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)
	q.AssistantIDs = ids
	return q
}

type cacheKeyParams struct {
	UserID string `json:"user_id"`
	Query  Query  `json:"query"`
}

// Service computes dashboard analytics.
type Service struct {
	remote vapi.API
	store  AssistantLister
	cache  cache.Cacher

	window    time.Duration
	hourStart int
	hourEnd   int
	location  *time.Location
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService builds a Service. The cache should use the configured TTL.
func NewService(remote vapi.API, store AssistantLister, c cache.Cacher, cfg *config.AnalyticsConfig, opts ...Option) *Service {
	s := &Service{
		remote:    remote,
		store:     store,
		cache:     c,
		window:    cfg.FallbackWindow,
		hourStart: cfg.HourStart,
		hourEnd:   cfg.HourEnd,
		location:  cfg.Location(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) windowAt(now time.Time) Window {
	return Window{
		Now:       now,
		Span:      s.window,
		Location:  s.location,
		HourStart: s.hourStart,
		HourEnd:   s.hourEnd,
	}
}

// branch is the outcome of one remote analytics query.
type branch struct {
	facet string
	raw   json.RawMessage
	err   error
}

// Query serves a cached payload for an identical request made within the
// cache TTL, otherwise recomputes it from four remote groupings and one
// raw call listing. A failed grouping falls back to metrics computed from
// the call listing; only a failed listing is returned as an error.
func (s *Service) Query(ctx context.Context, userID string, q Query) (*models.AnalyticsPayload, error) {
	q = q.canonical()
	key := cache.GenerateKey("analytics", cacheKeyParams{UserID: userID, Query: q})

	if data, ok := s.cache.Get(key); ok {
		var payload models.AnalyticsPayload
		if err := json.Unmarshal(data, &payload); err == nil {
			metrics.RecordCacheLookup(true)
			payload.Cached = true
			return &payload, nil
		}
		logging.Ctx(ctx).Warn().Str("key", key).Msg("Discarding undecodable analytics cache entry")
	}
	metrics.RecordCacheLookup(false)

	assistants, err := s.store.ListActiveAssistants(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assistants: %w", err)
	}

	ids := effectiveIDs(assistants, q.AssistantIDs)
	now := s.now()
	w := s.windowAt(now)

	branches, calls, err := s.fanOut(ctx, q, ids, w)
	if err != nil {
		return nil, err
	}

	fallback := ComputeFallback(calls, w)
	fallbackPerf := FallbackPerAssistant(calls, assistants)

	daily, ok := NormalizeDaily(Decode(branches[0].raw), fallback.DailyData)
	s.recordFallback(ctx, branches[0].facet, ok)
	outcomes, ok := NormalizeOutcomes(Decode(branches[1].raw), fallback.Outcomes)
	s.recordFallback(ctx, branches[1].facet, ok)
	hourly, ok := NormalizeHourly(Decode(branches[2].raw), fallback.HourlyData)
	s.recordFallback(ctx, branches[2].facet, ok)
	perf, ok := NormalizePerAssistant(Decode(branches[3].raw), assistants, fallbackPerf)
	s.recordFallback(ctx, branches[3].facet, ok)

	total, rate, avg := Summarize(daily)
	payload := &models.AnalyticsPayload{
		Analytics: models.AggregateMetrics{
			TotalCalls:  total,
			SuccessRate: rate,
			AvgDuration: avg,
			DailyData:   daily,
			Outcomes:    outcomes,
			HourlyData:  hourly,
		},
		AssistantPerformance: perf,
		TotalAssistants:      len(assistants),
		LastUpdated:          now.UTC(),
		VapiAnalytics: &models.RawAnalytics{
			Daily:        branches[0].raw,
			Outcomes:     branches[1].raw,
			Hourly:       branches[2].raw,
			PerAssistant: branches[3].raw,
		},
	}

	if data, err := json.Marshal(payload); err == nil {
		s.cache.Set(key, data)
	} else {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to encode analytics payload for cache")
	}
	return payload, nil
}

// effectiveIDs returns the remote ids to query: the requested ids the user
// has registered, or every registration when none were requested.
func effectiveIDs(assistants []models.Assistant, requested []string) []string {
	registered := make(map[string]bool, len(assistants))
	all := make([]string, 0, len(assistants))
	for _, a := range assistants {
		if a.VapiAssistantID == "" || registered[a.VapiAssistantID] {
			continue
		}
		registered[a.VapiAssistantID] = true
		all = append(all, a.VapiAssistantID)
	}
	if len(requested) == 0 {
		return all
	}
	ids := make([]string, 0, len(requested))
	for _, id := range requested {
		if registered[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// fanOut runs the four groupings and the call listing concurrently. Each
// grouping may fail on its own; its raw result is then nil. With no ids to
// query nothing is sent, since an unfiltered query would cover every
// assistant on the platform account.
func (s *Service) fanOut(ctx context.Context, q Query, ids []string, w Window) ([4]branch, []vapi.Call, error) {
	branches := [4]branch{
		{facet: "daily"},
		{facet: "outcomes"},
		{facet: "hourly"},
		{facet: "per_assistant"},
	}
	if len(ids) == 0 {
		return branches, nil, nil
	}

	groupings := [4]string{vapi.GroupByCreatedAt, vapi.GroupByEndedReason, vapi.GroupByHour, vapi.GroupByAssistantID}

	var (
		wg       sync.WaitGroup
		calls    []vapi.Call
		callsErr error
	)
	for i := range branches {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			raw, err := s.remote.QueryAnalytics(ctx, vapi.AnalyticsQuery{
				StartDate:    q.StartDate,
				EndDate:      q.EndDate,
				AssistantIDs: ids,
				GroupBy:      []string{groupings[i]},
			})
			if err == nil && !json.Valid(raw) {
				err = errMalformedBody
			}
			branches[i].raw, branches[i].err = raw, err
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		calls, callsErr = s.remote.ListCalls(ctx, vapi.ListCallsParams{
			Limit:       fallbackCallLimit,
			CreatedAtGt: w.Since(),
		})
	}()
	wg.Wait()

	for i := range branches {
		if branches[i].err != nil {
			metrics.AnalyticsBranchFailures.WithLabelValues(branches[i].facet).Inc()
			logging.Ctx(ctx).Warn().Err(branches[i].err).Str("facet", branches[i].facet).Msg("Remote analytics query failed, using fallback")
			branches[i].raw = nil
		}
	}

	if callsErr != nil {
		return branches, nil, fmt.Errorf("%w: %w", ErrCallListing, callsErr)
	}
	return branches, FilterCalls(calls, w, idSet(ids)), nil
}

func (s *Service) recordFallback(ctx context.Context, facet string, fromRemote bool) {
	if fromRemote {
		return
	}
	metrics.AnalyticsFallbacks.WithLabelValues(facet).Inc()
	logging.Ctx(ctx).Debug().Str("facet", facet).Msg("Facet computed from raw calls")
}

// Recent computes the last window of activity directly from the raw call
// listing, without the cache or grouped queries. filter optionally narrows
// the user's registrations to the given remote ids.
func (s *Service) Recent(ctx context.Context, userID string, filter []string) (*models.AnalyticsPayload, error) {
	assistants, err := s.store.ListAssistants(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assistants: %w", err)
	}

	ids := effectiveIDs(assistants, filter)
	set := idSet(ids)
	now := s.now()
	w := s.windowAt(now)

	var calls []vapi.Call
	if len(ids) > 0 {
		listed, err := s.remote.ListCalls(ctx, vapi.ListCallsParams{
			Limit:       fallbackCallLimit,
			CreatedAtGt: w.Since(),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCallListing, err)
		}
		calls = FilterCalls(listed, w, set)
	}

	selected := make([]models.Assistant, 0, len(assistants))
	for _, a := range assistants {
		if set[a.VapiAssistantID] {
			selected = append(selected, a)
		}
	}

	return &models.AnalyticsPayload{
		Analytics:            ComputeFallback(calls, w),
		AssistantPerformance: FallbackPerAssistant(calls, selected),
		TotalAssistants:      len(assistants),
		LastUpdated:          now.UTC(),
	}, nil
}
