// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/callboard/internal/analytics"
	"github.com/tomtom215/callboard/internal/auth"
	"github.com/tomtom215/callboard/internal/database"
	"github.com/tomtom215/callboard/internal/models"
	"github.com/tomtom215/callboard/internal/vapi"
)

// fakeStore keeps registrations in memory with the store's uniqueness rules.
type fakeStore struct {
	mu sync.Mutex

	assistants map[string][]models.Assistant // by user
	nextID     int
	pingErr    error
	listErr    error
	createErr  error

	calls      []models.CallRecord
	callsErr   error
	stats      models.CallHistoryStats
	lastFilter models.CallHistoryFilter
	statsArgs  [2]string

	mirrorUpdates []models.AssistantUpdate
}

func newFakeStore() *fakeStore {
	return &fakeStore{assistants: map[string][]models.Assistant{}}
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) CreateAssistant(_ context.Context, a *models.Assistant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.assistants[a.UserID] {
		if existing.VapiAssistantID == a.VapiAssistantID {
			return database.ErrAssistantConflict
		}
	}
	f.nextID++
	a.ID = fmt.Sprintf("local-%d", f.nextID)
	a.IsActive = true
	f.assistants[a.UserID] = append(f.assistants[a.UserID], *a)
	return nil
}

func (f *fakeStore) GetAssistantByVapiID(_ context.Context, userID, vapiID string) (*models.Assistant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assistants[userID] {
		if a.VapiAssistantID == vapiID {
			return &a, nil
		}
	}
	return nil, database.ErrAssistantNotFound
}

func (f *fakeStore) ListAssistants(_ context.Context, userID string) ([]models.Assistant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Assistant(nil), f.assistants[userID]...), nil
}

func (f *fakeStore) UpdateAssistantMirror(_ context.Context, userID, vapiID string, upd models.AssistantUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, a := range f.assistants[userID] {
		if a.VapiAssistantID != vapiID {
			continue
		}
		f.mirrorUpdates = append(f.mirrorUpdates, upd)
		if upd.Name != nil {
			f.assistants[userID][i].Name = *upd.Name
		}
		return nil
	}
	return database.ErrAssistantNotFound
}

func (f *fakeStore) DeleteAssistant(_ context.Context, userID, vapiID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.assistants[userID]
	for i, a := range list {
		if a.VapiAssistantID == vapiID {
			f.assistants[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return database.ErrAssistantNotFound
}

func (f *fakeStore) ListCalls(_ context.Context, filter models.CallHistoryFilter) ([]models.CallRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	if f.callsErr != nil {
		return nil, f.callsErr
	}
	return f.calls, nil
}

func (f *fakeStore) CallStats(_ context.Context, userID, assistantID string) (models.CallHistoryStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsArgs = [2]string{userID, assistantID}
	return f.stats, nil
}

// fakeRemote serves assistants from a map and tracks concurrent lookups.
type fakeRemote struct {
	mu sync.Mutex

	assistants map[string]*vapi.Assistant
	getErr     map[string]error
	updateErr  error
	patches    []map[string]interface{}
	delay      time.Duration

	inFlight    int
	maxInFlight int
}

func newFakeRemote(assistants ...*vapi.Assistant) *fakeRemote {
	f := &fakeRemote{assistants: map[string]*vapi.Assistant{}, getErr: map[string]error{}}
	for _, a := range assistants {
		f.assistants[a.ID] = a
	}
	return f
}

func remoteAssistant(id, name, firstMessage string) *vapi.Assistant {
	a := &vapi.Assistant{
		ID:           id,
		Name:         name,
		FirstMessage: firstMessage,
		Model:        &vapi.AssistantModel{Provider: "openai", Model: "gpt-4o"},
		Voice:        &vapi.AssistantVoice{Provider: "11labs", VoiceID: "rachel"},
	}
	raw, _ := json.Marshal(a)
	a.Raw = raw
	return a
}

func (f *fakeRemote) Ping(context.Context) error { return nil }

func (f *fakeRemote) GetAssistant(_ context.Context, id string) (*vapi.Assistant, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if err := f.getErr[id]; err != nil {
		return nil, err
	}
	a, ok := f.assistants[id]
	if !ok {
		return nil, &vapi.APIError{Operation: "get_assistant", StatusCode: http.StatusNotFound}
	}
	return a, nil
}


func (f *fakeRemote) UpdateAssistant(_ context.Context, id string, patch map[string]interface{}) (*vapi.Assistant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	a, ok := f.assistants[id]
	if !ok {
		return nil, &vapi.APIError{Operation: "update_assistant", StatusCode: http.StatusNotFound}
	}
	if name, ok := patch["name"].(string); ok {
		updated := remoteAssistant(id, name, a.FirstMessage)
		f.assistants[id] = updated
		a = updated
	}
	return a, nil
}

func (f *fakeRemote) ListCalls(context.Context, vapi.ListCallsParams) ([]vapi.Call, error) {
	return nil, nil
}

func (f *fakeRemote) GetCallTranscript(context.Context, string) (string, error) { return "", nil }

func (f *fakeRemote) QueryAnalytics(context.Context, vapi.AnalyticsQuery) (json.RawMessage, error) {
	return nil, nil
}

type fakeAnalytics struct {
	mu sync.Mutex

	payload *models.AnalyticsPayload
	err     error

	recentFilters [][]string
	queries       []analytics.Query
	users         []string
}

func (f *fakeAnalytics) Query(_ context.Context, userID string, q analytics.Query) (*models.AnalyticsPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	f.queries = append(f.queries, q)
	return f.payload, f.err
}

func (f *fakeAnalytics) Recent(_ context.Context, userID string, filter []string) (*models.AnalyticsPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	f.recentFilters = append(f.recentFilters, filter)
	return f.payload, f.err
}

type fakeSyncer struct {
	report *models.SyncReport
	err    error
	users  []string
}

func (f *fakeSyncer) SyncUser(_ context.Context, userID string) (*models.SyncReport, error) {
	f.users = append(f.users, userID)
	return f.report, f.err
}

type fakeCron struct {
	report   *models.CronSyncReport
	err      error
	triggers []string
	last     time.Time
}

func (f *fakeCron) SyncAll(_ context.Context, trigger string) (*models.CronSyncReport, error) {
	f.triggers = append(f.triggers, trigger)
	return f.report, f.err
}

func (f *fakeCron) LastSyncTime() time.Time { return f.last }

type fakeBreaker string

func (b fakeBreaker) State() string { return string(b) }

// testUserHeader names the caller in tests.
const testUserHeader = "X-Test-User"

// testAuth authenticates from testUserHeader and checks the cron secret
// with the production comparison.
type testAuth struct {
	cronSecret string
}

func (a testAuth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(testUserHeader)
		if id == "" {
			NewResponseWriter(w, r).Unauthorized("Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithUser(r.Context(), &auth.User{ID: id})))
	})
}

func (a testAuth) RequireCronSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.CronAuthorized(r, a.cronSecret) {
			NewResponseWriter(w, r).Unauthorized("Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type testEnv struct {
	store     *fakeStore
	remote    *fakeRemote
	analytics *fakeAnalytics
	syncer    *fakeSyncer
	cron      *fakeCron
	handler   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:     newFakeStore(),
		remote:    newFakeRemote(),
		analytics: &fakeAnalytics{payload: &models.AnalyticsPayload{TotalAssistants: 1}},
		syncer:    &fakeSyncer{report: &models.SyncReport{Message: "ok"}},
		cron:      &fakeCron{report: &models.CronSyncReport{Message: "ok"}},
	}
	h := NewHandler(HandlerDeps{
		Store:     env.store,
		Remote:    env.remote,
		Analytics: env.analytics,
		Syncer:    env.syncer,
		Cron:      env.cron,
		Breaker:   fakeBreaker("closed"),
	})
	mw := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitDisabled: true})
	env.handler = NewRouter(h, testAuth{cronSecret: "s3cret"}, mw).SetupChi()
	return env
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

// do sends a request as user (anonymous when empty) and decodes the envelope.
func (env *testEnv) do(t *testing.T, method, path, user string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(testUserHeader, user)
	}
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	var env2 envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env2); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env2
}

func decodeData(t *testing.T, e envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(e.Data, v); err != nil {
		t.Fatalf("decode data %s: %v", e.Data, err)
	}
}

func newRequest(method, path string, body []byte) *http.Request {
	return httptest.NewRequest(method, path, bytes.NewReader(body))
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}
