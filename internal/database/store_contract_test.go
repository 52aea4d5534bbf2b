// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/tomtom215/callboard/internal/models"
)

// runStoreContract exercises the store against a driver. open must return
// a ready store; user ids are unique per subtest so a shared database works.
func runStoreContract(t *testing.T, open func(t *testing.T) *DB) {
	tests := []struct {
		name string
		fn   func(t *testing.T, db *DB, user string)
	}{
		{"CreateAndGetAssistant", testCreateAndGetAssistant},
		{"DuplicateAssistantConflicts", testDuplicateAssistantConflicts},
		{"ListAssistantsNewestFirst", testListAssistantsNewestFirst},
		{"ListActiveAssistants", testListActiveAssistants},
		{"UpdateAssistantMirror", testUpdateAssistantMirror},
		{"DeleteAssistant", testDeleteAssistant},
		{"UpsertCallIsIdempotent", testUpsertCallIsIdempotent},
		{"UpsertCallKeepsTranscript", testUpsertCallKeepsTranscript},
		{"ListCallsFiltersAndPages", testListCallsFiltersAndPages},
		{"CallStats", testCallStats},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := open(t)
			db.now = stepClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
			tt.fn(t, db, "user-"+uuid.New().String())
		})
	}
}

// stepClock returns a clock that advances one minute per call.
func stepClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
}

func str(s string) *string { return &s }

func num(f float64) *float64 { return &f }

func mustCreateAssistant(t *testing.T, db *DB, user, vapiID, name string) *models.Assistant {
	t.Helper()
	a := &models.Assistant{UserID: user, VapiAssistantID: vapiID, Name: name}
	if err := db.CreateAssistant(context.Background(), a); err != nil {
		t.Fatalf("CreateAssistant(%s) error = %v", vapiID, err)
	}
	return a
}

func testCreateAndGetAssistant(t *testing.T, db *DB, user string) {
	ctx := context.Background()
	a := &models.Assistant{
		UserID:          user,
		VapiAssistantID: "vapi-1",
		Name:            "Front Desk",
		Model:           str("gpt-4o"),
		Voice:           str("jennifer"),
		FirstMessage:    str("Hello!"),
		Metadata:        json.RawMessage(`{"team":"sales"}`),
	}
	if err := db.CreateAssistant(ctx, a); err != nil {
		t.Fatalf("CreateAssistant() error = %v", err)
	}
	if a.ID == "" || !a.IsActive || a.CreatedAt.IsZero() {
		t.Fatalf("CreateAssistant() did not fill defaults: %+v", a)
	}

	got, err := db.GetAssistantByVapiID(ctx, user, "vapi-1")
	if err != nil {
		t.Fatalf("GetAssistantByVapiID() error = %v", err)
	}
	if diff := cmp.Diff(a, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	if _, err := db.GetAssistantByVapiID(ctx, user, "missing"); !errors.Is(err, ErrAssistantNotFound) {
		t.Errorf("missing assistant error = %v, want ErrAssistantNotFound", err)
	}
	if _, err := db.GetAssistantByVapiID(ctx, "someone-else", "vapi-1"); !errors.Is(err, ErrAssistantNotFound) {
		t.Errorf("other user's lookup error = %v, want ErrAssistantNotFound", err)
	}
}

func testDuplicateAssistantConflicts(t *testing.T, db *DB, user string) {
	mustCreateAssistant(t, db, user, "vapi-1", "First")

	err := db.CreateAssistant(context.Background(), &models.Assistant{UserID: user, VapiAssistantID: "vapi-1", Name: "Again"})
	if !errors.Is(err, ErrAssistantConflict) {
		t.Errorf("duplicate CreateAssistant() error = %v, want ErrAssistantConflict", err)
	}

	// The same remote assistant may be registered by another user.
	mustCreateAssistant(t, db, user+"-other", "vapi-1", "Shared")
}

func testListAssistantsNewestFirst(t *testing.T, db *DB, user string) {
	mustCreateAssistant(t, db, user, "vapi-1", "Oldest")
	mustCreateAssistant(t, db, user, "vapi-2", "Middle")
	mustCreateAssistant(t, db, user, "vapi-3", "Newest")
	mustCreateAssistant(t, db, user+"-other", "vapi-4", "Not mine")

	got, err := db.ListAssistants(context.Background(), user)
	if err != nil {
		t.Fatalf("ListAssistants() error = %v", err)
	}
	var names []string
	for _, a := range got {
		names = append(names, a.Name)
	}
	if diff := cmp.Diff([]string{"Newest", "Middle", "Oldest"}, names); diff != "" {
		t.Errorf("ListAssistants() order (-want +got):\n%s", diff)
	}

	empty, err := db.ListAssistants(context.Background(), user+"-nobody")
	if err != nil {
		t.Fatalf("ListAssistants() error = %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("ListAssistants() for unknown user = %#v, want empty slice", empty)
	}
}

func testListActiveAssistants(t *testing.T, db *DB, user string) {
	ctx := context.Background()
	mustCreateAssistant(t, db, user, "vapi-1", "Active")
	mustCreateAssistant(t, db, user, "vapi-2", "Paused")
	other := user + "-other"
	mustCreateAssistant(t, db, other, "vapi-3", "Other active")

	inactive := false
	if err := db.UpdateAssistantMirror(ctx, user, "vapi-2", models.AssistantUpdate{IsActive: &inactive}); err != nil {
		t.Fatalf("UpdateAssistantMirror() error = %v", err)
	}

	active, err := db.ListActiveAssistants(ctx, user)
	if err != nil {
		t.Fatalf("ListActiveAssistants() error = %v", err)
	}
	if len(active) != 1 || active[0].VapiAssistantID != "vapi-1" {
		t.Errorf("ListActiveAssistants() = %+v, want only vapi-1", active)
	}

	all, err := db.ListAllActiveAssistants(ctx)
	if err != nil {
		t.Fatalf("ListAllActiveAssistants() error = %v", err)
	}
	seen := map[string]bool{}
	for _, a := range all {
		if a.UserID == user || a.UserID == other {
			seen[a.VapiAssistantID] = true
		}
		if !a.IsActive {
			t.Errorf("ListAllActiveAssistants() returned inactive %s", a.VapiAssistantID)
		}
	}
	if !seen["vapi-1"] || !seen["vapi-3"] || seen["vapi-2"] {
		t.Errorf("ListAllActiveAssistants() ids = %v, want vapi-1 and vapi-3", seen)
	}
}

func testUpdateAssistantMirror(t *testing.T, db *DB, user string) {
	ctx := context.Background()
	created := mustCreateAssistant(t, db, user, "vapi-1", "Before")

	err := db.UpdateAssistantMirror(ctx, user, "vapi-1", models.AssistantUpdate{
		Name:  str("After"),
		Voice: str("rachel"),
	})
	if err != nil {
		t.Fatalf("UpdateAssistantMirror() error = %v", err)
	}

	got, err := db.GetAssistantByVapiID(ctx, user, "vapi-1")
	if err != nil {
		t.Fatalf("GetAssistantByVapiID() error = %v", err)
	}
	if got.Name != "After" || models.Deref(got.Voice) != "rachel" {
		t.Errorf("updated fields = %q/%q, want After/rachel", got.Name, models.Deref(got.Voice))
	}
	if got.Model != nil {
		t.Errorf("Model = %q, want unchanged nil", *got.Model)
	}
	if !got.UpdatedAt.After(created.UpdatedAt) {
		t.Errorf("UpdatedAt %v not after %v", got.UpdatedAt, created.UpdatedAt)
	}

	err = db.UpdateAssistantMirror(ctx, user, "missing", models.AssistantUpdate{Name: str("x")})
	if !errors.Is(err, ErrAssistantNotFound) {
		t.Errorf("update of missing assistant error = %v, want ErrAssistantNotFound", err)
	}
}

func testDeleteAssistant(t *testing.T, db *DB, user string) {
	ctx := context.Background()
	mustCreateAssistant(t, db, user, "vapi-1", "Mine")
	other := user + "-other"
	mustCreateAssistant(t, db, other, "vapi-1", "Theirs")

	if err := db.DeleteAssistant(ctx, user, "vapi-1"); err != nil {
		t.Fatalf("DeleteAssistant() error = %v", err)
	}
	if err := db.DeleteAssistant(ctx, user, "vapi-1"); !errors.Is(err, ErrAssistantNotFound) {
		t.Errorf("second DeleteAssistant() error = %v, want ErrAssistantNotFound", err)
	}
	if _, err := db.GetAssistantByVapiID(ctx, other, "vapi-1"); err != nil {
		t.Errorf("other user's registration was affected: %v", err)
	}
}

func testUpsertCallIsIdempotent(t *testing.T, db *DB, user string) {
	ctx := context.Background()
	a := mustCreateAssistant(t, db, user, "vapi-1", "Sales")
	createdAt := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

	rec := &models.CallRecord{
		UserID: user, AssistantID: a.ID, VapiCallID: "call-1", AssistantName: "Sales",
		Status: "in-progress", CreatedAt: createdAt,
	}
	if err := db.UpsertCall(ctx, rec); err != nil {
		t.Fatalf("first UpsertCall() error = %v", err)
	}

	again := &models.CallRecord{
		UserID: user, AssistantID: a.ID, VapiCallID: "call-1", AssistantName: "Sales",
		Status: "ended", EndedReason: str(models.EndedReasonAssistantEndedCall),
		Duration: num(42.5), Cost: num(0.12), PhoneNumber: str("+15550100"),
		Metadata: json.RawMessage(`{"k":"v"}`), CreatedAt: createdAt,
	}
	if err := db.UpsertCall(ctx, again); err != nil {
		t.Fatalf("second UpsertCall() error = %v", err)
	}

	calls, err := db.ListCalls(ctx, models.CallHistoryFilter{UserID: user})
	if err != nil {
		t.Fatalf("ListCalls() error = %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("len(calls) = %d, want 1 after repeated upsert", len(calls))
	}
	got := calls[0]
	if got.ID != rec.ID {
		t.Errorf("ID = %s, want original %s", got.ID, rec.ID)
	}
	if got.Status != "ended" || models.Deref(got.EndedReason) != models.EndedReasonAssistantEndedCall {
		t.Errorf("status/reason = %s/%s, want refreshed values", got.Status, models.Deref(got.EndedReason))
	}
	if got.Duration == nil || *got.Duration != 42.5 || got.Cost == nil || *got.Cost != 0.12 {
		t.Errorf("duration/cost = %v/%v, want 42.5/0.12", got.Duration, got.Cost)
	}
	if !got.CreatedAt.Equal(createdAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, createdAt)
	}
	if string(got.Metadata) != `{"k":"v"}` {
		t.Errorf("Metadata = %s", got.Metadata)
	}
}

func testUpsertCallKeepsTranscript(t *testing.T, db *DB, user string) {
	ctx := context.Background()
	a := mustCreateAssistant(t, db, user, "vapi-1", "Sales")

	base := models.CallRecord{UserID: user, AssistantID: a.ID, VapiCallID: "call-1", AssistantName: "Sales", Status: "ended"}

	first := base
	first.Transcript = str("hello there")
	if err := db.UpsertCall(ctx, &first); err != nil {
		t.Fatalf("UpsertCall() error = %v", err)
	}

	second := base
	if err := db.UpsertCall(ctx, &second); err != nil {
		t.Fatalf("UpsertCall() without transcript error = %v", err)
	}
	calls, err := db.ListCalls(ctx, models.CallHistoryFilter{UserID: user})
	if err != nil {
		t.Fatalf("ListCalls() error = %v", err)
	}
	if models.Deref(calls[0].Transcript) != "hello there" {
		t.Errorf("Transcript = %v, want the stored transcript kept", calls[0].Transcript)
	}

	third := base
	third.Transcript = str("updated")
	if err := db.UpsertCall(ctx, &third); err != nil {
		t.Fatalf("UpsertCall() with transcript error = %v", err)
	}
	calls, err = db.ListCalls(ctx, models.CallHistoryFilter{UserID: user})
	if err != nil {
		t.Fatalf("ListCalls() error = %v", err)
	}
	if models.Deref(calls[0].Transcript) != "updated" {
		t.Errorf("Transcript = %v, want updated", calls[0].Transcript)
	}
}

func testListCallsFiltersAndPages(t *testing.T, db *DB, user string) {
	ctx := context.Background()
	sales := mustCreateAssistant(t, db, user, "vapi-1", "Sales")
	support := mustCreateAssistant(t, db, user, "vapi-2", "Support")

	base := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	insert := func(id, assistantID, name, status string, hour int) {
		t.Helper()
		rec := &models.CallRecord{
			UserID: user, AssistantID: assistantID, VapiCallID: id, AssistantName: name,
			Status: status, CreatedAt: base.Add(time.Duration(hour) * time.Hour),
		}
		if err := db.UpsertCall(ctx, rec); err != nil {
			t.Fatalf("UpsertCall(%s) error = %v", id, err)
		}
	}
	insert("c1", sales.ID, "Sales", "ended", 1)
	insert("c2", support.ID, "Support", "ended", 2)
	insert("c3", sales.ID, "Sales", "in-progress", 3)
	insert("c4", sales.ID, "Sales", "ended", 4)
	insert("c5", "deleted-assistant", "Gone", "ended", 5)

	ids := func(calls []models.CallRecord) []string {
		out := []string{}
		for _, c := range calls {
			out = append(out, c.VapiCallID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter models.CallHistoryFilter
		want   []string
	}{
		{"all newest first", models.CallHistoryFilter{UserID: user}, []string{"c5", "c4", "c3", "c2", "c1"}},
		{"by assistant", models.CallHistoryFilter{UserID: user, AssistantID: sales.ID}, []string{"c4", "c3", "c1"}},
		{"by status", models.CallHistoryFilter{UserID: user, Status: "in-progress"}, []string{"c3"}},
		{"both", models.CallHistoryFilter{UserID: user, AssistantID: sales.ID, Status: "ended"}, []string{"c4", "c1"}},
		{"first page", models.CallHistoryFilter{UserID: user, Limit: 2}, []string{"c5", "c4"}},
		{"second page", models.CallHistoryFilter{UserID: user, Limit: 2, Offset: 2}, []string{"c3", "c2"}},
		{"past the end", models.CallHistoryFilter{UserID: user, Limit: 2, Offset: 10}, []string{}},
		{"other user", models.CallHistoryFilter{UserID: user + "-other"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ListCalls(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListCalls() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
				t.Errorf("ListCalls() ids (-want +got):\n%s", diff)
			}
		})
	}

	all, err := db.ListCalls(ctx, models.CallHistoryFilter{UserID: user})
	if err != nil {
		t.Fatalf("ListCalls() error = %v", err)
	}
	if all[0].Assistant != nil {
		t.Errorf("call without a registration has assistant %+v", all[0].Assistant)
	}
	if all[1].Assistant == nil || all[1].Assistant.Name != "Sales" {
		t.Errorf("joined assistant = %+v, want Sales", all[1].Assistant)
	}
}

func testCallStats(t *testing.T, db *DB, user string) {
	ctx := context.Background()
	sales := mustCreateAssistant(t, db, user, "vapi-1", "Sales")
	support := mustCreateAssistant(t, db, user, "vapi-2", "Support")

	empty, err := db.CallStats(ctx, user, "")
	if err != nil {
		t.Fatalf("CallStats() error = %v", err)
	}
	if empty != (models.CallHistoryStats{}) {
		t.Errorf("CallStats() with no calls = %+v, want zeros", empty)
	}

	records := []models.CallRecord{
		{VapiCallID: "c1", AssistantID: sales.ID, Status: "ended", EndedReason: str(models.EndedReasonAssistantEndedCall), Duration: num(60), Cost: num(0.5)},
		{VapiCallID: "c2", AssistantID: sales.ID, Status: "ended", EndedReason: str(models.EndedReasonBusy), Duration: num(10)},
		{VapiCallID: "c3", AssistantID: sales.ID, Status: "in-progress", EndedReason: str(models.EndedReasonAssistantEndedCall)},
		{VapiCallID: "c4", AssistantID: support.ID, Status: "ended", EndedReason: str(models.EndedReasonAssistantEndedCall), Duration: num(30), Cost: num(0.25)},
	}
	for i := range records {
		records[i].UserID = user
		records[i].AssistantName = "x"
		if err := db.UpsertCall(ctx, &records[i]); err != nil {
			t.Fatalf("UpsertCall() error = %v", err)
		}
	}

	got, err := db.CallStats(ctx, user, "")
	if err != nil {
		t.Fatalf("CallStats() error = %v", err)
	}
	want := models.CallHistoryStats{TotalCalls: 4, TotalDuration: 100, TotalCost: 0.75, SuccessRate: 50}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CallStats() mismatch (-want +got):\n%s", diff)
	}

	got, err = db.CallStats(ctx, user, sales.ID)
	if err != nil {
		t.Fatalf("CallStats(sales) error = %v", err)
	}
	want = models.CallHistoryStats{TotalCalls: 3, TotalDuration: 70, TotalCost: 0.5, SuccessRate: 33.33}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CallStats(sales) mismatch (-want +got):\n%s", diff)
	}
}
