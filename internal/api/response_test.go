// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/callboard/internal/vapi"
)

func TestResponseEnvelope(t *testing.T) {
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Success(map[string]int{"n": 1})
	})
	handler = RequestIDWithLogging()(handler)

	rec := serve(handler, newRequest(http.MethodGet, "/", nil))
	if got := rec.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}

	var resp APIResponse
	decodeBody(t, rec, &resp)
	if !resp.Success || resp.Error != nil {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if resp.Meta == nil || resp.Meta.RequestID == "" || resp.Meta.Timestamp.IsZero() {
		t.Errorf("meta incomplete: %+v", resp.Meta)
	}
	if rec.Header().Get("X-Request-ID") != resp.Meta.RequestID {
		t.Errorf("X-Request-ID %q does not match meta %q", rec.Header().Get("X-Request-ID"), resp.Meta.RequestID)
	}
}

func TestResponseErrors(t *testing.T) {
	tests := []struct {
		name       string
		write      func(rw *ResponseWriter)
		wantStatus int
		wantCode   string
	}{
		{"bad request", func(rw *ResponseWriter) { rw.BadRequest("x") }, http.StatusBadRequest, ErrCodeBadRequest},
		{"not found", func(rw *ResponseWriter) { rw.NotFound("x") }, http.StatusNotFound, ErrCodeNotFound},
		{"conflict", func(rw *ResponseWriter) { rw.Conflict("x") }, http.StatusConflict, ErrCodeConflict},
		{"internal", func(rw *ResponseWriter) { rw.InternalError("x") }, http.StatusInternalServerError, ErrCodeInternalError},
		{"database", func(rw *ResponseWriter) { rw.DatabaseError(errors.New("secret dsn")) }, http.StatusInternalServerError, ErrCodeDatabaseError},
		{"upstream", func(rw *ResponseWriter) { rw.ExternalServiceError(http.StatusBadGateway, errors.New("eof")) }, http.StatusBadGateway, ErrCodeExternalServiceFail},
		{"validation", func(rw *ResponseWriter) { rw.ValidationError("x", map[string]string{"f": "bad"}) }, http.StatusBadRequest, ErrCodeValidationFailed},
		{"unencodable data", func(rw *ResponseWriter) { rw.Success(json.RawMessage(`<html>`)) }, http.StatusInternalServerError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(NewResponseWriter(rec, newRequest(http.MethodGet, "/", nil)))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp APIResponse
			decodeBody(t, rec, &resp)
			if resp.Success || resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Fatalf("unexpected envelope: %+v", resp)
			}
			if tt.wantCode == ErrCodeDatabaseError && resp.Error.Message != "A database error occurred" {
				t.Errorf("database error leaked details: %q", resp.Error.Message)
			}
		})
	}
}

func TestRemoteErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"upstream 401", &vapi.APIError{StatusCode: http.StatusUnauthorized}, http.StatusUnauthorized},
		{"wrapped upstream 500", fmt.Errorf("get: %w", &vapi.APIError{StatusCode: http.StatusInternalServerError}), http.StatusInternalServerError},
		{"breaker open", vapi.ErrCircuitOpen, http.StatusServiceUnavailable},
		{"transport", errors.New("dial tcp: refused"), http.StatusBadGateway},
		{"odd status", &vapi.APIError{StatusCode: 302}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := remoteErrorStatus(tt.err); got != tt.want {
				t.Errorf("remoteErrorStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseCommaSeparated(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{" a , b ,,c ", []string{"a", "b", "c"}},
		{",,", nil},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, parseCommaSeparated(tt.in)); diff != "" {
			t.Errorf("parseCommaSeparated(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestSanitizeLogValue(t *testing.T) {
	if got := sanitizeLogValue("a\nb\x7f"); got != `a\x0ab\x7f` {
		t.Errorf("sanitizeLogValue() = %q", got)
	}
	if got := sanitizeLogValue("plain-id_1"); got != "plain-id_1" {
		t.Errorf("sanitizeLogValue() = %q", got)
	}
}
