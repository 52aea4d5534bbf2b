// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/callboard/internal/cache"
	"github.com/tomtom215/callboard/internal/config"
	"github.com/tomtom215/callboard/internal/metrics"
	"github.com/tomtom215/callboard/internal/models"
	"github.com/tomtom215/callboard/internal/vapi"
)

// fakeRemote answers analytics queries per grouping.
type fakeRemote struct {
	mu         sync.Mutex
	responses  map[string]string
	failures   map[string]error
	calls      []vapi.Call
	callsErr   error
	queries    []vapi.AnalyticsQuery
	listCounts int
}

func (f *fakeRemote) Ping(context.Context) error { return nil }
func (f *fakeRemote) GetAssistant(context.Context, string) (*vapi.Assistant, error) {
	return nil, vapi.ErrNotFound
}
func (f *fakeRemote) UpdateAssistant(context.Context, string, map[string]interface{}) (*vapi.Assistant, error) {
	return nil, nil
}
func (f *fakeRemote) GetCallTranscript(context.Context, string) (string, error) { return "", nil }

func (f *fakeRemote) ListCalls(context.Context, vapi.ListCallsParams) ([]vapi.Call, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCounts++
	return f.calls, f.callsErr
}

func (f *fakeRemote) QueryAnalytics(_ context.Context, q vapi.AnalyticsQuery) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	group := q.GroupBy[0]
	if err := f.failures[group]; err != nil {
		return nil, err
	}
	if body, ok := f.responses[group]; ok {
		return json.RawMessage(body), nil
	}
	return json.RawMessage(`null`), nil
}

func (f *fakeRemote) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type fakeLister struct {
	all    []models.Assistant
	active []models.Assistant
	err    error
}

func (f *fakeLister) ListAssistants(context.Context, string) ([]models.Assistant, error) {
	return f.all, f.err
}

func (f *fakeLister) ListActiveAssistants(context.Context, string) ([]models.Assistant, error) {
	return f.active, f.err
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testAnalyticsConfig() *config.AnalyticsConfig {
	return &config.AnalyticsConfig{
		CacheTTL:       60 * time.Second,
		FallbackWindow: 7 * 24 * time.Hour,
		HourStart:      9,
		HourEnd:        17,
		Timezone:       "UTC",
	}
}

func newTestService(remote *fakeRemote, lister *fakeLister) (*Service, *clock) {
	clk := &clock{now: testNow}
	c := cache.New(60*time.Second, cache.WithClock(clk.Now))
	return NewService(remote, lister, c, testAnalyticsConfig(), WithClock(clk.Now)), clk
}

var registrations = []models.Assistant{
	{ID: "r1", VapiAssistantID: "a1", Name: "Sales", IsActive: true},
	{ID: "r2", VapiAssistantID: "a2", Name: "Support", IsActive: true},
}

func TestQueryTotalsComeFromDailyFacet(t *testing.T) {
	remote := &fakeRemote{responses: map[string]string{
		vapi.GroupByCreatedAt: `{"rows":[
			{"date":"2024-01-02","calls":5,"successful":3,"duration":90},
			{"date":"2024-01-01","calls":10,"successful":8,"duration":120}
		]}`,
		vapi.GroupByEndedReason: `{"rows":[{"endedReason":"assistant-ended-call","count":11},{"endedReason":"busy","count":4}]}`,
		vapi.GroupByHour:        `{"data":[{"hour":9,"count":15}]}`,
		vapi.GroupByAssistantID: `{"rows":[{"assistantId":"a1","endedReason":"assistant-ended-call","count":15,"avgDuration":100}]}`,
	}}
	svc, _ := newTestService(remote, &fakeLister{active: registrations})

	got, err := svc.Query(context.Background(), "user-1", Query{StartDate: "2024-01-01", EndDate: "2024-01-07"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if got.Analytics.TotalCalls != 15 || got.Analytics.SuccessRate != 73.33 || got.Analytics.AvgDuration != 105 {
		t.Errorf("totals = %d/%v/%d, want 15/73.33/105", got.Analytics.TotalCalls, got.Analytics.SuccessRate, got.Analytics.AvgDuration)
	}
	sum := 0
	for _, d := range got.Analytics.DailyData {
		sum += d.Calls
	}
	if sum != got.Analytics.TotalCalls {
		t.Errorf("daily calls sum %d != total %d", sum, got.Analytics.TotalCalls)
	}
	if got.Analytics.Outcomes != (models.OutcomeDistribution{Successful: 11, Busy: 4}) {
		t.Errorf("Outcomes = %+v", got.Analytics.Outcomes)
	}
	wantPerf := []models.AssistantPerformance{
		{Name: "Sales", Calls: 15, SuccessRate: 100, AvgDuration: 100},
		{Name: "Support"},
	}
	if diff := cmp.Diff(wantPerf, got.AssistantPerformance); diff != "" {
		t.Errorf("AssistantPerformance mismatch (-want +got):\n%s", diff)
	}
	if got.TotalAssistants != 2 || got.Cached {
		t.Errorf("TotalAssistants=%d Cached=%v", got.TotalAssistants, got.Cached)
	}
	if got.VapiAnalytics == nil || len(got.VapiAnalytics.Daily) == 0 {
		t.Error("raw upstream payloads missing")
	}

	for _, q := range remote.queries {
		if diff := cmp.Diff([]string{"a1", "a2"}, q.AssistantIDs); diff != "" {
			t.Errorf("query assistant ids mismatch (-want +got):\n%s", diff)
		}
		if q.StartDate != "2024-01-01" || q.EndDate != "2024-01-07" {
			t.Errorf("query dates = %s..%s", q.StartDate, q.EndDate)
		}
	}
	if remote.queryCount() != 4 || remote.listCounts != 1 {
		t.Errorf("remote requests = %d queries, %d listings; want 4 and 1", remote.queryCount(), remote.listCounts)
	}
}

func TestQueryBranchFailuresFallBackIndependently(t *testing.T) {
	remote := &fakeRemote{
		responses: map[string]string{
			vapi.GroupByEndedReason: `{"rows":[{"endedReason":"no-answer","count":7}]}`,
		},
		failures: map[string]error{
			vapi.GroupByCreatedAt:   errors.New("boom"),
			vapi.GroupByHour:        errors.New("boom"),
			vapi.GroupByAssistantID: errors.New("boom"),
		},
		calls: []vapi.Call{
			call("c1", "a1", "ended", models.EndedReasonAssistantEndedCall, testNow.Add(-2*time.Hour), seconds(120)),
			call("c2", "a2", "ended", models.EndedReasonBusy, testNow.Add(-26*time.Hour), seconds(60)),
			call("c3", "stranger", "ended", models.EndedReasonAssistantEndedCall, testNow.Add(-time.Hour), seconds(60)),
			call("c4", "a1", "ended", models.EndedReasonAssistantEndedCall, testNow.Add(-30*24*time.Hour), seconds(60)),
		},
	}
	svc, _ := newTestService(remote, &fakeLister{active: registrations})

	got, err := svc.Query(context.Background(), "user-1", Query{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	wantDaily := []models.DailyRecord{
		{Date: "2024-01-07", Calls: 1, Successful: 0, Duration: 60},
		{Date: "2024-01-08", Calls: 1, Successful: 1, Duration: 120},
	}
	if diff := cmp.Diff(wantDaily, got.Analytics.DailyData); diff != "" {
		t.Errorf("fallback daily mismatch (-want +got):\n%s", diff)
	}
	if got.Analytics.TotalCalls != 2 || got.Analytics.SuccessRate != 50 {
		t.Errorf("totals = %d/%v, want 2/50", got.Analytics.TotalCalls, got.Analytics.SuccessRate)
	}
	if got.Analytics.Outcomes != (models.OutcomeDistribution{NoAnswer: 7}) {
		t.Errorf("remote outcomes not used: %+v", got.Analytics.Outcomes)
	}
	if len(got.Analytics.HourlyData) != 9 {
		t.Errorf("len(HourlyData) = %d, want fallback business hours", len(got.Analytics.HourlyData))
	}
	wantPerf := []models.AssistantPerformance{
		{Name: "Sales", Calls: 1, SuccessRate: 100, AvgDuration: 2},
		{Name: "Support", Calls: 1, SuccessRate: 0, AvgDuration: 1},
	}
	if diff := cmp.Diff(wantPerf, got.AssistantPerformance); diff != "" {
		t.Errorf("fallback per-assistant mismatch (-want +got):\n%s", diff)
	}
	if got.VapiAnalytics.Daily != nil || got.VapiAnalytics.Outcomes == nil {
		t.Errorf("raw payloads = %+v, want nil only for failed branches", got.VapiAnalytics)
	}
}

func TestQueryNonJSONRemoteBodyFallsBack(t *testing.T) {
	remote := &fakeRemote{
		responses: map[string]string{
			vapi.GroupByCreatedAt:   `<html>502 Bad Gateway</html>`,
			vapi.GroupByEndedReason: `{"rows":[{"endedReason":"busy","count":2}]}`,
		},
		calls: []vapi.Call{
			call("c1", "a1", "ended", models.EndedReasonAssistantEndedCall, testNow.Add(-2*time.Hour), seconds(90)),
		},
	}
	svc, _ := newTestService(remote, &fakeLister{active: registrations})
	ctx := context.Background()
	failures := testutil.ToFloat64(metrics.AnalyticsBranchFailures.WithLabelValues("daily"))

	got, err := svc.Query(ctx, "user-1", Query{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got.VapiAnalytics.Daily != nil {
		t.Errorf("raw daily = %s, want nil for a non-JSON body", got.VapiAnalytics.Daily)
	}
	if got.Analytics.TotalCalls != 1 {
		t.Errorf("TotalCalls = %d, want fallback count 1", got.Analytics.TotalCalls)
	}
	if _, err := json.Marshal(got); err != nil {
		t.Fatalf("payload does not encode: %v", err)
	}
	if delta := testutil.ToFloat64(metrics.AnalyticsBranchFailures.WithLabelValues("daily")) - failures; delta != 1 {
		t.Errorf("daily branch failures grew by %v, want 1", delta)
	}

	again, err := svc.Query(ctx, "user-1", Query{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if !again.Cached {
		t.Error("second request should be served from cache")
	}
	if remote.queryCount() != 4 {
		t.Errorf("remote queries = %d, want 4", remote.queryCount())
	}
}

func TestQueryCallListingFailureIsAnError(t *testing.T) {
	remote := &fakeRemote{callsErr: errors.New("unreachable")}
	svc, _ := newTestService(remote, &fakeLister{active: registrations})

	_, err := svc.Query(context.Background(), "user-1", Query{})
	if !errors.Is(err, ErrCallListing) {
		t.Fatalf("Query() error = %v, want ErrCallListing", err)
	}
}

func TestQueryCache(t *testing.T) {
	remote := &fakeRemote{responses: map[string]string{
		vapi.GroupByCreatedAt: `{"rows":[{"date":"2024-01-01","calls":3}]}`,
	}}
	svc, clk := newTestService(remote, &fakeLister{active: registrations})
	ctx := context.Background()
	q := Query{StartDate: "2024-01-01", AssistantIDs: []string{"a2", "a1"}}

	first, err := svc.Query(ctx, "user-1", q)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	// Same set in another order shares the entry.
	second, err := svc.Query(ctx, "user-1", Query{StartDate: "2024-01-01", AssistantIDs: []string{"a1", "a2", "a1"}})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if !second.Cached {
		t.Error("second identical request should be served from cache")
	}
	if remote.queryCount() != 4 {
		t.Errorf("remote queries = %d, want 4 (cache hit must not query)", remote.queryCount())
	}
	second.Cached = false
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("cached payload differs:\n%s\n%s", a, b)
	}

	if _, err := svc.Query(ctx, "user-1", Query{StartDate: "2024-01-01", AssistantIDs: []string{"a1"}}); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if remote.queryCount() != 8 {
		t.Errorf("remote queries = %d, want 8 (different id list must recompute)", remote.queryCount())
	}

	if _, err := svc.Query(ctx, "user-2", q); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if remote.queryCount() != 12 {
		t.Errorf("remote queries = %d, want 12 (other user must not share entries)", remote.queryCount())
	}

	clk.Advance(60 * time.Second)
	third, err := svc.Query(ctx, "user-1", q)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if third.Cached {
		t.Error("entry served at expiry")
	}
}

func TestQueryIgnoresUnregisteredIDs(t *testing.T) {
	remote := &fakeRemote{}
	svc, _ := newTestService(remote, &fakeLister{active: registrations})

	got, err := svc.Query(context.Background(), "user-1", Query{AssistantIDs: []string{"someone-elses"}})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if remote.queryCount() != 0 || remote.listCounts != 0 {
		t.Errorf("remote was called %d/%d times for ids the user does not own", remote.queryCount(), remote.listCounts)
	}
	if got.Analytics.TotalCalls != 0 || len(got.AssistantPerformance) != 2 {
		t.Errorf("payload = %+v", got.Analytics)
	}
}

func TestQueryStoreError(t *testing.T) {
	svc, _ := newTestService(&fakeRemote{}, &fakeLister{err: errors.New("db down")})
	if _, err := svc.Query(context.Background(), "user-1", Query{}); err == nil {
		t.Fatal("expected store error")
	}
}

func TestRecentFiltersToOwnedAssistants(t *testing.T) {
	inactive := models.Assistant{ID: "r3", VapiAssistantID: "a3", Name: "Retired"}
	remote := &fakeRemote{calls: []vapi.Call{
		call("c1", "a1", "ended", models.EndedReasonAssistantEndedCall, testNow.Add(-time.Hour), seconds(120)),
		call("c2", "a2", "ended", models.EndedReasonBusy, testNow.Add(-time.Hour), seconds(60)),
		call("c3", "a3", "ended", models.EndedReasonAssistantEndedCall, testNow.Add(-time.Hour), nil),
		call("c4", "stranger", "ended", models.EndedReasonAssistantEndedCall, testNow.Add(-time.Hour), nil),
	}}
	lister := &fakeLister{all: append(append([]models.Assistant{}, registrations...), inactive)}
	svc, _ := newTestService(remote, lister)

	got, err := svc.Recent(context.Background(), "user-1", []string{"a1", "a3", "stranger"})
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if got.Analytics.TotalCalls != 2 {
		t.Errorf("TotalCalls = %d, want 2", got.Analytics.TotalCalls)
	}
	wantPerf := []models.AssistantPerformance{
		{Name: "Sales", Calls: 1, SuccessRate: 100, AvgDuration: 2},
		{Name: "Retired", Calls: 1, SuccessRate: 100, AvgDuration: 0},
	}
	if diff := cmp.Diff(wantPerf, got.AssistantPerformance); diff != "" {
		t.Errorf("AssistantPerformance mismatch (-want +got):\n%s", diff)
	}
	if got.TotalAssistants != 3 {
		t.Errorf("TotalAssistants = %d, want 3", got.TotalAssistants)
	}
	if got.VapiAnalytics != nil || got.Cached {
		t.Error("recent analytics carry no raw payloads and are never cached")
	}

	all, err := svc.Recent(context.Background(), "user-1", nil)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if all.Analytics.TotalCalls != 3 || len(all.AssistantPerformance) != 3 {
		t.Errorf("unfiltered = %d calls, %d assistants; want 3 and 3", all.Analytics.TotalCalls, len(all.AssistantPerformance))
	}
}
