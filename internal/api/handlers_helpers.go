// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/callboard/internal/auth"
	"github.com/tomtom215/callboard/internal/vapi"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// sanitizeLogValue escapes control characters so request values cannot
// forge log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// currentUser returns the authenticated user id, writing a 401 when the
// request was not authenticated.
func currentUser(rw *ResponseWriter, r *http.Request) (string, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user.ID == "" {
		rw.Unauthorized("Unauthorized")
		return "", false
	}
	return user.ID, true
}

// decodeJSON decodes a bounded request body into v, writing a 400 on failure.
func decodeJSON(rw *ResponseWriter, r *http.Request, v interface{}) bool {
	body := http.MaxBytesReader(rw.w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			rw.BadRequest("Request body is required")
		} else {
			rw.BadRequest("Invalid JSON body")
		}
		return false
	}
	return true
}

// intParam parses an integer query parameter, falling back to def when absent.
func intParam(r *http.Request, key string, def int) (int, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

// parseCommaSeparated splits a comma list, dropping blanks.
func parseCommaSeparated(value string) []string {
	if value == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// remoteErrorStatus maps a platform client error to the status returned to
// the caller: the upstream status for non-2xx answers, 503 while the
// breaker is open, 502 otherwise.
func remoteErrorStatus(err error) int {
	var apiErr *vapi.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode <= 599:
		return apiErr.StatusCode
	case errors.Is(err, vapi.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
