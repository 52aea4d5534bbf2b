// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package vapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/callboard/internal/logging"
	"github.com/tomtom215/callboard/internal/metrics"
)

// maxErrorBodySize limits how much of an error response is kept.
const maxErrorBodySize = 64 * 1024

// maxResponseSize limits how much of a successful response is read.
const maxResponseSize = 32 * 1024 * 1024

// readBodyForError reads at most 64KB of r for error reporting.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// do performs one request against the platform and returns the response
// body of a 2xx answer. Non-2xx answers become *APIError.
func (c *Client) do(ctx context.Context, operation, method, path string, payload interface{}) (body []byte, err error) {
	start := time.Now()
	defer func() { metrics.RecordVapiRequest(operation, time.Since(start), err) }()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", operation, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       string(readBodyForError(resp.Body)),
		}
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", operation, err)
	}
	return body, nil
}

// decodeList decodes either a top-level JSON array or an object holding
// the array under key. Items that do not decode into T are skipped and
// counted in a warning, so one malformed item does not fail the listing.
func decodeList[T any](body []byte, key string) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}

	var rawItems []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &rawItems); err != nil {
			return nil, fmt.Errorf("failed to decode list: %w", err)
		}
	} else {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("failed to decode list: %w", err)
		}
		raw, ok := wrapper[key]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return []T{}, nil
		}
		if err := json.Unmarshal(raw, &rawItems); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", key, err)
		}
	}

	items := make([]T, 0, len(rawItems))
	var skipped int
	var firstErr error
	for _, raw := range rawItems {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			skipped++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		items = append(items, item)
	}
	if skipped > 0 {
		logging.Warn().Err(firstErr).Str("list", key).Int("skipped", skipped).Int("total", len(rawItems)).
			Msg("Skipped undecodable list items")
	}
	return items, nil
}

// decodeAssistant decodes one assistant document and keeps the raw bytes.
func decodeAssistant(body []byte) (*Assistant, error) {
	var a Assistant
	if err := json.Unmarshal(body, &a); err != nil {
		return nil, fmt.Errorf("failed to decode assistant: %w", err)
	}
	a.Raw = append(json.RawMessage(nil), body...)
	return &a, nil
}

// isClientError reports whether err is a 4xx answer from the platform.
// Those describe the request, not the platform's health.
func isClientError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 &&
		apiErr.StatusCode != http.StatusTooManyRequests
}
